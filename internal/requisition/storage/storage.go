// Package storage keeps attachment bytes outside the database. The workflow
// only ever records the references returned here.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/bitfantasy/requisition/internal/requisition/entity"
	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrInvalidName = errors.New("invalid file name")
)

// File is an upload on its way into storage.
type File struct {
	Name     string
	MimeType string
	Size     int64
	Kind     entity.AttachmentKind
	Reader   io.Reader
}

// Store saves and retrieves attachment content.
type Store interface {
	Store(ctx context.Context, file File) (entity.Attachment, error)
	Fetch(ctx context.Context, filename string) (io.ReadCloser, error)
	Delete(ctx context.Context, filename string) error
}

// storedName builds a collision-free name that keeps the original extension.
func storedName(original string) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
	if base == "." || base == "_" || base == "" {
		base = "file"
	}
	return uuid.New().String() + "_" + base
}

// CleanName reduces a requested filename to its base name and rejects
// anything that could escape the storage root.
func CleanName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == ".." || base == "/" || base == "" {
		return "", ErrInvalidName
	}
	return base, nil
}
