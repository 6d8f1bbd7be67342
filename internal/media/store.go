// Package media persists uploaded patient media to local disk and decides
// how a file will be analyzed from its name.
package media

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/diewo77/emotion-tracker/internal/models"
)

var (
	// ErrEmptyName means the upload carried no usable filename.
	ErrEmptyName = errors.New("empty filename")
	// ErrUnsupportedType means the extension is outside the allow-list.
	ErrUnsupportedType = errors.New("unsupported media type")
)

// allowedExtensions maps each accepted extension to its analysis type.
var allowedExtensions = map[string]string{
	"png":  models.AnalysisTypeImage,
	"jpg":  models.AnalysisTypeImage,
	"jpeg": models.AnalysisTypeImage,
	"mp4":  models.AnalysisTypeVideo,
	"avi":  models.AnalysisTypeVideo,
}

// Kind classifies a filename as image or video by its suffix.
// Returns ErrEmptyName or ErrUnsupportedType for unusable names.
func Kind(filename string) (string, error) {
	name := strings.TrimSpace(filename)
	if name == "" {
		return "", ErrEmptyName
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return "", ErrUnsupportedType
	}
	kind, ok := allowedExtensions[ext]
	if !ok {
		return "", ErrUnsupportedType
	}
	return kind, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeName strips any path components and replaces characters outside
// [a-zA-Z0-9._-] with underscores.
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	return strings.Trim(name, "._")
}

// DiskStore writes media under a configured directory. The directory is
// injected so tests can point it at a temp dir.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the directory if needed and returns the store.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *DiskStore) Dir() string { return s.dir }

// Save validates the filename against the allow-list and persists the
// content under a uuid-prefixed sanitized name, so concurrent uploads of the
// same filename never overwrite each other. Returns the stored path.
func (s *DiskStore) Save(src io.Reader, filename string) (string, error) {
	if _, err := Kind(filename); err != nil {
		return "", err
	}
	stored := uuid.NewString() + "_" + SanitizeName(filename)
	path := filepath.Join(s.dir, stored)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, src); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
