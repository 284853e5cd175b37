package storage

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// ErrFileNotFound is returned when a content file is missing on disk.
var ErrFileNotFound = errors.New("file not found")

// PublicPrefix marks files exposed through the public disk instead of the signed file route.
const PublicPrefix = "public/"

// LocalStorage reads uploaded content files from a base directory.
type LocalStorage struct {
	baseDir string
}

// File is an opened content file with its metadata.
type File struct {
	*os.File
	Name     string
	Size     int64
	MimeType string
}

// NewLocalStorage returns a reader rooted at baseDir.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./storage/app"
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: abs}, nil
}

// Exists reports whether relPath points to a regular file.
func (s *LocalStorage) Exists(relPath string) bool {
	path, err := s.resolve(relPath)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Open returns a read-only handle for relPath. fallbackType is used when the extension is unknown.
func (s *LocalStorage) Open(relPath, fallbackType string) (*File, error) {
	path, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("open content file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat content file: %w", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, ErrFileNotFound
	}

	mimeType := fallbackType
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(path))
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return &File{File: f, Name: filepath.Base(path), Size: info.Size(), MimeType: mimeType}, nil
}

// IsPublic reports whether relPath lives on the public disk.
func IsPublic(relPath string) bool {
	return strings.HasPrefix(relPath, PublicPrefix)
}

func (s *LocalStorage) resolve(relPath string) (string, error) {
	if relPath == "" {
		return "", ErrFileNotFound
	}
	path := filepath.Join(s.baseDir, filepath.Clean("/"+relPath))
	if path != s.baseDir && !strings.HasPrefix(path, s.baseDir+string(filepath.Separator)) {
		return "", ErrFileNotFound
	}
	return path, nil
}
