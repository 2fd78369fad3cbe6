package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStorage stages uploaded import files until a background worker reads them.
type FileStorage interface {
	SaveFile(src io.Reader, fileName string) (string, error)
	ReadFile(fileName string) ([]byte, error)
	DeleteFile(fileName string) error
	FileExists(fileName string) (bool, error)
}

type LocalFileStorage struct {
	uploadPath string
}

func NewLocalFileStorage(uploadPath string) *LocalFileStorage {
	return &LocalFileStorage{uploadPath: uploadPath}
}

// resolve keeps every name inside the upload directory.
func (s *LocalFileStorage) resolve(fileName string) (string, error) {
	clean := filepath.Base(filepath.Clean(fileName))
	if clean == "." || clean == string(filepath.Separator) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid file name %q", fileName)
	}
	return filepath.Join(s.uploadPath, clean), nil
}

// SaveFile writes src under fileName and returns the stored name.
func (s *LocalFileStorage) SaveFile(src io.Reader, fileName string) (string, error) {
	fullPath, err := s.resolve(fileName)
	if err != nil {
		return "", err
	}
	if err := EnsureDirectoryExists(s.uploadPath); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to copy file content: %w", err)
	}
	return filepath.Base(fullPath), nil
}

func (s *LocalFileStorage) ReadFile(fileName string) ([]byte, error) {
	fullPath, err := s.resolve(fileName)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// DeleteFile removes a staged file; a missing file is not an error.
func (s *LocalFileStorage) DeleteFile(fileName string) error {
	fullPath, err := s.resolve(fileName)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalFileStorage) FileExists(fileName string) (bool, error) {
	fullPath, err := s.resolve(fileName)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(fullPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check file existence: %w", err)
}
