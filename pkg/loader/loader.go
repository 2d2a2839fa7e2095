// Package loader turns uploaded book files into plain text.
package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/OFFIS-RIT/bookgraph/internal/storage"
	"github.com/OFFIS-RIT/bookgraph/pkg/loader/pdf"
)

var (
	// ErrUnsupportedFormat is returned for files other than .pdf and .txt.
	ErrUnsupportedFormat = errors.New("unsupported file format, please upload .pdf or .txt")
	// ErrEmptyText is returned when a file yields no text.
	ErrEmptyText = errors.New("failed to extract text from file, it might be empty or corrupted")
)

// Format is a supported upload format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatText Format = "txt"
)

// DetectFormat returns the format of filename by extension, case-insensitively.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF, nil
	case ".txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%s: %w", filename, ErrUnsupportedFormat)
	}
}

// BookID derives the book ID from an upload name: the file name without
// directory and extension.
func BookID(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Extract returns the text of a file in the given format. Text files must be
// UTF-8; invalid sequences are replaced.
func Extract(ctx context.Context, format Format, data []byte) (string, error) {
	var text string
	switch format {
	case FormatPDF:
		t, err := pdf.Parse(ctx, data)
		if err != nil {
			return "", err
		}
		text = t
	case FormatText:
		text = string(data)
		if !utf8.ValidString(text) {
			text = strings.ToValidUTF8(text, "�")
		}
	default:
		return "", fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

// Loader reads uploads from blob storage and extracts their text.
type Loader struct {
	blobs storage.BlobStore
}

func New(blobs storage.BlobStore) *Loader {
	return &Loader{blobs: blobs}
}

// Load extracts the text of the upload called filename.
func (l *Loader) Load(ctx context.Context, filename string) (string, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return "", err
	}
	data, err := l.blobs.Get(ctx, storage.UploadKey(filename))
	if err != nil {
		return "", err
	}
	return Extract(ctx, format, data)
}
