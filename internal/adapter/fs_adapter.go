package adapter

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/moby/sys/atomicwriter"
	m "modhook.dev/pkg/modhook/internal/model"
)

// FSAdapter abstracts the filesystem operations the patcher workflow and the
// plugin loader rely on, so domain logic can be tested against temp dirs.
type FSAdapter interface {
	// FileInfo returns metadata for a path.
	FileInfo(path m.Path) (os.FileInfo, error)

	// Exists reports whether a regular file or directory exists at path.
	Exists(path m.Path) bool

	// HashFile returns the SHA-256 fingerprint of the file at path.
	HashFile(path m.Path) (string, error)

	// Snapshot returns path, hash and size of a file.
	Snapshot(path m.Path) (m.File, error)

	// CopyFile copies src over dst atomically, preserving the source mode.
	CopyFile(src, dst m.Path) error

	// ListFiles returns the regular files directly under dir, sorted by name.
	ListFiles(dir m.Path) ([]m.Path, error)

	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir m.Path) error

	// ReadFile loads a file from disk.
	ReadFile(path m.Path) ([]byte, error)

	// JoinPath joins path elements into a single path.
	JoinPath(elem ...string) m.Path
}

// LocalFSAdapter implements FSAdapter on the local disk.
type LocalFSAdapter struct{}

// NewLocalFSAdapter constructs a LocalFSAdapter.
func NewLocalFSAdapter() *LocalFSAdapter {
	return &LocalFSAdapter{}
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	return os.Stat(string(path))
}

// Exists reports whether path exists.
func (a *LocalFSAdapter) Exists(path m.Path) bool {
	_, err := os.Stat(string(path))
	return err == nil
}

// HashFile returns the SHA-256 hash of the file at the provided path.
func (a *LocalFSAdapter) HashFile(path m.Path) (string, error) {
	f, err := os.Open(string(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// Snapshot hashes the file and records its size.
func (a *LocalFSAdapter) Snapshot(path m.Path) (m.File, error) {
	info, err := os.Stat(string(path))
	if err != nil {
		return m.File{}, err
	}

	hash, err := a.HashFile(path)
	if err != nil {
		return m.File{}, err
	}

	return m.File{Path: path, Hash: hash, Size: info.Size()}, nil
}

// CopyFile reads src fully and writes it through a temporary file renamed
// over dst, so dst holds either the old or the new content.
func (a *LocalFSAdapter) CopyFile(src, dst m.Path) error {
	info, err := os.Stat(string(src))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(string(src))
	if err != nil {
		return err
	}

	return atomicwriter.WriteFile(string(dst), data, info.Mode().Perm())
}

// ListFiles returns regular files directly under dir in lexicographic order.
func (a *LocalFSAdapter) ListFiles(dir m.Path) ([]m.Path, error) {
	entries, err := os.ReadDir(string(dir))
	if err != nil {
		return nil, err
	}

	files := make([]m.Path, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		files = append(files, m.Path(filepath.Join(string(dir), entry.Name())))
	}

	sort.Slice(files, func(i, j int) bool { return files[i] < files[j] })

	return files, nil
}

// MkdirAll creates a directory tree.
func (a *LocalFSAdapter) MkdirAll(dir m.Path) error {
	return os.MkdirAll(string(dir), 0o755)
}

// ReadFile loads file contents from disk.
func (a *LocalFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	return os.ReadFile(string(path))
}

// JoinPath joins path elements.
func (a *LocalFSAdapter) JoinPath(elem ...string) m.Path {
	return m.Path(filepath.Join(elem...))
}
