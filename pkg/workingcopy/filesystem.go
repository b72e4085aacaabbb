package workingcopy

import (
	"os"
	"path/filepath"
	"time"
)

// Filesystem is the on-disk WorkingCopy implementation.
type Filesystem struct {
	Root string
}

func NewFilesystem(root string) *Filesystem {
	return &Filesystem{Root: root}
}

func (f *Filesystem) abs(path string) string {
	return filepath.Join(f.Root, filepath.FromSlash(path))
}

func (f *Filesystem) FileMetadata(path string) (Metadata, error) {
	info, err := os.Stat(f.abs(path))
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{Mode: uint32(info.Mode().Perm()), IsDir: info.IsDir()}, nil
}

func (f *Filesystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(f.abs(path))
}

func (f *Filesystem) WriteFile(path string) (Writer, error) {
	abs := f.abs(path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, err
	}
	// Write to a sibling temp path and rename over the target, keeping
	// the working copy crash-consistent (spec.md §9, "Atomic file
	// writes").
	tmp := abs + ".pristine-tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return nil, err
	}
	return &atomicWriter{file: file, tmp: tmp, target: abs}, nil
}

type atomicWriter struct {
	file   *os.File
	tmp    string
	target string
}

func (w *atomicWriter) Write(p []byte) (int, error) { return w.file.Write(p) }

func (w *atomicWriter) Close() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	return os.Rename(w.tmp, w.target)
}

func (f *Filesystem) ModifiedTime(path string) (time.Time, error) {
	info, err := os.Stat(f.abs(path))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (f *Filesystem) CreateDirAll(path string) error {
	return os.MkdirAll(f.abs(path), 0o755)
}

func (f *Filesystem) RemovePath(path string, recursive bool) error {
	if recursive {
		return os.RemoveAll(f.abs(path))
	}
	return os.Remove(f.abs(path))
}

func (f *Filesystem) Rename(from, to string) error {
	toAbs := f.abs(to)
	if err := os.MkdirAll(filepath.Dir(toAbs), 0o755); err != nil {
		return err
	}
	return os.Rename(f.abs(from), toAbs)
}

func (f *Filesystem) SetPermissions(path string, mode uint32) error {
	return os.Chmod(f.abs(path), os.FileMode(mode))
}
