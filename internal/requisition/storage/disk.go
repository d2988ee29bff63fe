package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bitfantasy/requisition/internal/requisition/entity"
	"github.com/google/uuid"
)

// DiskStore writes attachments into a single directory on local disk.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) Store(ctx context.Context, file File) (entity.Attachment, error) {
	name := storedName(file.Name)
	path := filepath.Join(s.root, name)

	dst, err := os.Create(path)
	if err != nil {
		return entity.Attachment{}, fmt.Errorf("create %s: %w", name, err)
	}
	defer dst.Close()

	n, err := io.Copy(dst, file.Reader)
	if err != nil {
		os.Remove(path)
		return entity.Attachment{}, fmt.Errorf("write %s: %w", name, err)
	}

	return entity.Attachment{
		ID:           uuid.New().String(),
		Kind:         file.Kind,
		Filename:     name,
		OriginalName: file.Name,
		MimeType:     file.MimeType,
		Size:         n,
		StoragePath:  path,
	}, nil
}

func (s *DiskStore) Fetch(ctx context.Context, filename string) (io.ReadCloser, error) {
	name, err := CleanName(filename)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.root, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *DiskStore) Delete(ctx context.Context, filename string) error {
	name, err := CleanName(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.root, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}
