package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) (*diskStore, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewLocalStorage(dir)
	require.NoError(t, err)
	return fs.(*diskStore), dir
}

func TestResolve_RejectsTraversal(t *testing.T) {
	ls, _ := newTestStorage(t)

	tests := []struct {
		name string
		path string
	}{
		{"simple traversal", "../etc/passwd"},
		{"double traversal", "../../etc/passwd"},
		{"nested traversal", "2026/../../../etc/passwd"},
		{"absolute", "/etc/passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ls.resolve(tt.path)
			assert.ErrorIs(t, err, ErrPathTraversal)
		})
	}
}

func TestResolve_AcceptsStoredLayout(t *testing.T) {
	ls, dir := newTestStorage(t)
	absBase, _ := filepath.Abs(dir)

	for _, p := range []string{"file.txt", "2026/10/ab123456-7890.pdf", "a/b/c/file.txt"} {
		t.Run(p, func(t *testing.T) {
			result, err := ls.resolve(p)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(result, absBase))
		})
	}
}

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		size     int64
		want     error
	}{
		{"exe blocked", "malware.exe", 10, ErrBlockedExt},
		{"uppercase exe blocked", "MALWARE.EXE", 10, ErrBlockedExt},
		{"js blocked", "invoice.pdf.js", 10, ErrBlockedExt},
		{"pdf allowed", "invoice.pdf", 10, nil},
		{"at limit", "scan.png", MaxFileSize, nil},
		{"over limit", "scan.png", MaxFileSize + 1, ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFile(tt.filename, tt.size)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestSafeExt(t *testing.T) {
	assert.Equal(t, ".pdf", safeExt("Invoice.PDF"))
	assert.Equal(t, "", safeExt("noext"))
	assert.Equal(t, "", safeExt("weird.p$f"))
	assert.Equal(t, "", safeExt("long.abcdefghijkl"))
}

func TestSave_LayoutAndRoundTrip(t *testing.T) {
	ls, dir := newTestStorage(t)
	ls.now = func() time.Time { return time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC) }

	path, err := ls.Save("Invoice.PDF", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "2026/03/09/"), path)
	assert.True(t, strings.HasSuffix(path, ".pdf"), path)

	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(path)))
	require.NoError(t, err)

	reader, err := ls.Get(path)
	require.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestSave_UniqueNames(t *testing.T) {
	ls, _ := newTestStorage(t)

	a, err := ls.Save("same.txt", strings.NewReader("a"))
	require.NoError(t, err)
	b, err := ls.Save("same.txt", strings.NewReader("b"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSave_RejectsBlockedExtension(t *testing.T) {
	ls, dir := newTestStorage(t)

	_, err := ls.Save("payload.exe", strings.NewReader("MZ"))
	assert.ErrorIs(t, err, ErrBlockedExt)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSave_RejectsOversizedContent(t *testing.T) {
	ls, _ := newTestStorage(t)

	big := bytes.NewReader(make([]byte, MaxFileSize+1))
	_, err := ls.Save("huge.bin", big)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestGetAndDelete(t *testing.T) {
	ls, _ := newTestStorage(t)

	_, err := ls.Get("../../../etc/passwd")
	assert.ErrorIs(t, err, ErrPathTraversal)
	assert.ErrorIs(t, ls.Delete("../../../etc/passwd"), ErrPathTraversal)

	_, err = ls.Get("missing.txt")
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.NoError(t, ls.Delete("missing.txt"))

	path, err := ls.Save("note.txt", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, ls.Delete(path))
	_, err = ls.Get(path)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestNewLocalStorage_CreatesDirectory(t *testing.T) {
	newDir := filepath.Join(t.TempDir(), "new", "nested", "dir")

	_, err := NewLocalStorage(newDir)
	require.NoError(t, err)

	info, err := os.Stat(newDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
