package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/bitfantasy/requisition/internal/requisition/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStore_StoreAndFetch(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	att, err := store.Store(ctx, File{
		Name:     "bank letter.pdf",
		MimeType: "application/pdf",
		Kind:     entity.AttachmentBankLetter,
		Reader:   strings.NewReader("%PDF-1.4"),
	})
	require.NoError(t, err)
	assert.Equal(t, "bank letter.pdf", att.OriginalName)
	assert.True(t, strings.HasSuffix(att.Filename, "_bank_letter.pdf"), att.Filename)
	assert.Equal(t, int64(8), att.Size)
	assert.Equal(t, entity.AttachmentBankLetter, att.Kind)
	assert.NotEmpty(t, att.ID)

	rc, err := store.Fetch(ctx, att.Filename)
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "%PDF-1.4", string(body))
}

func TestDiskStore_FetchConfinedToRoot(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	att, err := store.Store(ctx, File{Name: "tpin.png", Reader: bytes.NewReader([]byte{1, 2, 3})})
	require.NoError(t, err)

	// Directory components are stripped before lookup.
	rc, err := store.Fetch(ctx, "../../"+att.Filename)
	require.NoError(t, err)
	rc.Close()

	_, err = store.Fetch(ctx, "..")
	assert.True(t, errors.Is(err, ErrInvalidName))

	_, err = store.Fetch(ctx, "nope.pdf")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStoredName(t *testing.T) {
	a := storedName(`C:\Users\me\quote (final).pdf`)
	b := storedName(`C:\Users\me\quote (final).pdf`)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, "_quote__final_.pdf"), a)
	assert.NotContains(t, a, "/")
}

func TestDiskStore_Delete(t *testing.T) {
	root := t.TempDir()
	store, err := NewDiskStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	att, err := store.Store(ctx, File{Name: "quote.pdf", Reader: strings.NewReader("quote")})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, att.Filename))
	_, err = store.Fetch(ctx, att.Filename)
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.True(t, errors.Is(store.Delete(ctx, att.Filename), ErrNotFound))
	assert.True(t, errors.Is(store.Delete(ctx, ".."), ErrInvalidName))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
