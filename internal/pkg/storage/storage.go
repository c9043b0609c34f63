// Package storage keeps uploaded documents (papers, books, covers, avatars)
// in a blob store: the local filesystem or an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/epreuvespro/epreuvespro/internal/pkg/env"
)

// ErrNotFound is returned when a key has no blob behind it.
var ErrNotFound = errors.New("blob not found")

// Object describes a stored blob.
type Object struct {
	Key         string
	Size        int64
	ContentType string
	ModifiedAt  time.Time
}

// Store is the blob store used by uploads and downloads.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, *Object, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Folders under which documents are grouped.
const (
	FolderSubjects    = "papers/subjects"
	FolderCorrections = "papers/corrections"
	FolderReports     = "papers/reports"
	FolderBooksPDF    = "books/pdf"
	FolderBooksEPUB   = "books/epub"
	FolderCovers      = "books/covers"
	FolderAvatars     = "avatars"
)

// NewKey builds a collision free key like "papers/subjects/2024/03/<uuid>.pdf".
func NewKey(folder, ext string, now time.Time) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join(folder, fmt.Sprintf("%04d/%02d", now.Year(), int(now.Month())), uuid.NewString()+ext)
}

// ValidKey rejects keys that could escape the store root.
func ValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return false
		}
	}
	return true
}

// ContentType guesses the MIME type of a stored document from its extension.
func ContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".pdf":
		return "application/pdf"
	case ".epub":
		return "application/epub+zip"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}

// NewFromEnv builds the store selected by STORAGE_DRIVER (local or s3).
func NewFromEnv(ctx context.Context) (Store, error) {
	switch strings.ToLower(env.GetEnv("STORAGE_DRIVER", "local")) {
	case "s3":
		cfg, err := LoadS3Config()
		if err != nil {
			return nil, err
		}
		return NewS3Store(ctx, cfg)
	case "local", "":
		return NewLocalStore(env.GetEnv("STORAGE_LOCAL_ROOT", "uploads"))
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", env.GetEnv("STORAGE_DRIVER", ""))
	}
}
