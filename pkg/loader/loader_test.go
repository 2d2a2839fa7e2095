package loader

import (
	"context"
	"testing"

	"github.com/OFFIS-RIT/bookgraph/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{name: "book.txt", want: FormatText},
		{name: "Book.PDF", want: FormatPDF},
		{name: "notes.docx", wantErr: true},
		{name: "README", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.name)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBookID(t *testing.T) {
	assert.Equal(t, "harry_potter_1", BookID("harry_potter_1.txt"))
	assert.Equal(t, "archive.tar", BookID("uploads/archive.tar.pdf"))
}

func TestExtractText(t *testing.T) {
	got, err := Extract(context.Background(), FormatText, []byte("Mr and Mrs Dursley"))
	require.NoError(t, err)
	assert.Equal(t, "Mr and Mrs Dursley", got)

	got, err = Extract(context.Background(), FormatText, []byte{'a', 0xff, 'b'})
	require.NoError(t, err)
	assert.Equal(t, "a�b", got)

	_, err = Extract(context.Background(), FormatText, []byte(" \n\t "))
	require.ErrorIs(t, err, ErrEmptyText)
}

func TestLoaderLoad(t *testing.T) {
	ctx := context.Background()
	blobs, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, blobs.Put(ctx, storage.UploadKey("hp1.txt"), []byte("The boy who lived.")))

	l := New(blobs)
	got, err := l.Load(ctx, "hp1.txt")
	require.NoError(t, err)
	assert.Equal(t, "The boy who lived.", got)

	_, err = l.Load(ctx, "missing.txt")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = l.Load(ctx, "hp1.epub")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
