// Package storage keeps uploads and graph artifacts in a flat key space,
// either on the local disk or in an S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("storage: object not found")

// BlobStore stores opaque objects under slash-separated keys.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// List returns all keys below prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// UploadKey is where an uploaded source file is kept.
func UploadKey(filename string) string {
	return path.Join("uploads", filename)
}

// BooksPrefix holds one directory per analyzed book.
const BooksPrefix = "books/"

// GraphKey is where the serialized graph of a book is kept.
func GraphKey(bookID string) string {
	return path.Join(BooksPrefix, bookID, "graph.json")
}

// IndexKey is where the blob vector store keeps the index of a book.
func IndexKey(bookID string) string {
	return path.Join(BooksPrefix, bookID, "index.json")
}

// EntryKey is where the catalogue entry of a book is kept.
func EntryKey(bookID string) string {
	return path.Join(BooksPrefix, bookID, "book.json")
}

// BookIDFromEntryKey returns the book of a key written by EntryKey.
func BookIDFromEntryKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, BooksPrefix)
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/book.json")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// cleanKey normalizes key and rejects keys escaping the store root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	for part := range strings.SplitSeq(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("storage: invalid key %q", key)
		}
	}
	return k, nil
}
