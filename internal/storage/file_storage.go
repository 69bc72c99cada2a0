// Package storage keeps inbound attachment bytes on the local filesystem.
// The database only stores the relative path returned by Save.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPathTraversal = errors.New("path traversal detected")
	ErrFileNotFound  = errors.New("file not found")
	ErrFileTooLarge  = errors.New("file exceeds size limit")
	ErrBlockedExt    = errors.New("file extension is blocked")
)

// MaxFileSize is the largest attachment kept (25 MB)
const MaxFileSize = 25 * 1024 * 1024

// BlockedExtensions are executable types that are never written to disk
var BlockedExtensions = map[string]bool{
	".exe": true, ".bat": true, ".cmd": true, ".com": true,
	".pif": true, ".scr": true, ".vbs": true, ".js": true,
	".jar": true, ".ps1": true, ".sh": true, ".bash": true,
	".msi": true, ".dll": true, ".sys": true,
}

// FileStorage stores attachment content
type FileStorage interface {
	Save(filename string, content io.Reader) (string, error)
	Get(filePath string) (io.ReadCloser, error)
	Delete(filePath string) error
}

// diskStore keeps attachments under root, sharded by the day they arrived.
type diskStore struct {
	root string
	now  func() time.Time
}

// NewLocalStorage creates root when missing
func NewLocalStorage(root string) (FileStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment root: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve attachment root: %w", err)
	}
	return &diskStore{root: abs, now: time.Now}, nil
}

// resolve maps a stored relative path to its location under root. Absolute
// paths and paths escaping root are rejected.
func (s *diskStore) resolve(rel string) (string, error) {
	rel = filepath.FromSlash(rel)
	if !filepath.IsLocal(rel) {
		return "", ErrPathTraversal
	}
	return filepath.Join(s.root, rel), nil
}

// ValidateFile rejects blocked extensions and sizes over MaxFileSize
func ValidateFile(filename string, size int64) error {
	if BlockedExtensions[strings.ToLower(filepath.Ext(filename))] {
		return ErrBlockedExt
	}
	if size > MaxFileSize {
		return ErrFileTooLarge
	}
	return nil
}

// safeExt keeps short alphanumeric extensions so downloads stay recognisable
func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

// Save writes content to yyyy/mm/dd/<uuid><ext> and returns that slash
// separated path. The sender's filename only contributes its extension.
func (s *diskStore) Save(filename string, content io.Reader) (string, error) {
	if err := ValidateFile(filename, 0); err != nil {
		return "", err
	}

	day := s.now().UTC().Format("2006/01/02")
	rel := path.Join(day, uuid.NewString()+safeExt(filename))
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create attachment dir: %w", err)
	}

	if err := writeCapped(full, content); err != nil {
		_ = os.Remove(full)
		return "", err
	}
	return rel, nil
}

// writeCapped creates full exclusively and copies at most MaxFileSize bytes.
func writeCapped(full string, content io.Reader) error {
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	n, copyErr := io.Copy(f, io.LimitReader(content, MaxFileSize+1))
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		return fmt.Errorf("write attachment: %w", copyErr)
	case n > MaxFileSize:
		return ErrFileTooLarge
	case closeErr != nil:
		return fmt.Errorf("write attachment: %w", closeErr)
	}
	return nil
}

// Get opens a stored attachment
func (s *diskStore) Get(rel string) (io.ReadCloser, error) {
	full, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	return f, nil
}

// Delete removes a stored attachment. Missing files are not an error.
func (s *diskStore) Delete(rel string) error {
	full, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}
