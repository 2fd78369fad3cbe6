package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyFile        = errors.New("uploaded file contains no data rows")
	ErrUnsupportedFile  = errors.New("unsupported or unreadable file format")
	ErrParseTimeout     = errors.New("timed out while parsing uploaded file")
	ErrUploadInProgress = errors.New("another upload for this entity is already in progress")
	ErrUnknownEntity    = errors.New("unknown import entity")
)

// MissingHeadersError is returned when the header row does not cover every
// mandatory field of an entity.
type MissingHeadersError struct {
	Missing []string
	Seen    []string
}

func (e *MissingHeadersError) Error() string {
	return fmt.Sprintf("missing required headers: %s", strings.Join(e.Missing, ", "))
}
