package services

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"medequip-backend/db/models"
)

// Comparison is the outcome of diffing an incoming record against the stored one.
type Comparison struct {
	Changes       ChangeSet
	StatusChanged bool
	// Merged is the stored record overlaid with the provided fields.
	Merged Record
	// Update holds only the columns to write when Changes is non-empty.
	Update Record
}

// ChangeDetector diffs cleaned records against stored ones for one entity.
type ChangeDetector struct {
	cfg *EntityConfig
}

func NewChangeDetector(cfg *EntityConfig) *ChangeDetector {
	return &ChangeDetector{cfg: cfg}
}

// Compare inspects only the fields the row supplied. When status was not
// supplied the stored status is carried forward.
func (d *ChangeDetector) Compare(incoming CleanedRecord, existing Record) Comparison {
	cmp := Comparison{
		Merged: existing.Clone(),
		Update: make(Record, len(incoming.Provided)+1),
	}

	statusField := d.cfg.StatusField
	if !incoming.IsProvided(statusField) {
		if stored, ok := existing[statusField]; ok && hasValue(stored) {
			incoming.Values[statusField] = stored
		}
	}

	for _, field := range incoming.Provided {
		spec, _ := d.cfg.Field(field)
		newVal := incoming.Values[field]
		oldVal := existing[field]
		cmp.Merged[field] = newVal

		if comparableValue(spec.Kind, oldVal) == comparableValue(spec.Kind, newVal) {
			continue
		}
		cmp.Changes = append(cmp.Changes, FieldChange{Field: field, Old: oldVal, New: newVal})
		cmp.Update[field] = newVal
		if field == statusField {
			cmp.StatusChanged = true
		}
	}

	if !incoming.IsProvided(statusField) {
		cmp.Merged[statusField] = incoming.Values[statusField]
	}
	if len(cmp.Changes) > 0 {
		cmp.Update[FieldModifiedAt] = incoming.Values[FieldModifiedAt]
		cmp.Merged[FieldModifiedAt] = incoming.Values[FieldModifiedAt]
	}
	return cmp
}

// comparableValue reduces a value to the string form used for equality:
// trimmed strings, sorted arrays, ISO dates and canonical decimals.
func comparableValue(kind FieldKind, v any) string {
	switch kind {
	case ArrayField:
		items := toStrings(v)
		sort.Strings(items)
		return strings.Join(items, "\x1f")
	case PersonsField:
		persons := toPersons(v)
		keys := make([]string, 0, len(persons))
		for _, p := range persons {
			keys = append(keys, strings.TrimSpace(p.Name)+"\x1e"+strings.TrimSpace(p.EmployeeID))
		}
		sort.Strings(keys)
		return strings.Join(keys, "\x1f")
	case DateField:
		if v == nil {
			return ""
		}
		if t, ok := ParseDate(v); ok {
			return FormatDate(t)
		}
		if s, ok := v.(string); ok {
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(s)); err == nil {
				return FormatDate(t)
			}
		}
	case DecimalField:
		switch t := v.(type) {
		case decimal.Decimal:
			return t.String()
		case *decimal.Decimal:
			if t == nil {
				return ""
			}
			return t.String()
		case nil:
			return ""
		default:
			if d, err := decimal.NewFromString(strings.TrimSpace(cellString(v))); err == nil {
				return d.String()
			}
		}
	}
	return strings.TrimSpace(cellString(v))
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		out := make([]string, 0, len(t))
		for _, s := range t {
			out = append(out, strings.TrimSpace(s))
		}
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, s := range t {
			out = append(out, strings.TrimSpace(cellString(s)))
		}
		return out
	case string:
		var decoded []string
		if err := json.Unmarshal([]byte(t), &decoded); err == nil {
			return toStrings(decoded)
		}
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []string{strings.TrimSpace(t)}
	case []byte:
		return toStrings(string(t))
	}
	return nil
}

func toPersons(v any) []models.PersonResponsible {
	switch t := v.(type) {
	case []models.PersonResponsible:
		return t
	case string:
		var decoded []models.PersonResponsible
		if err := json.Unmarshal([]byte(t), &decoded); err == nil {
			return decoded
		}
	case []byte:
		return toPersons(string(t))
	}
	return nil
}
