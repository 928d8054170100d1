package stream

import (
	"errors"
	"fmt"
	"os"
)

// LazyFile is a temporary file that is only created on the first Write.
// A transfer that fails before receiving any body leaves nothing on disk.
type LazyFile struct {
	dir     string
	pattern string
	f       *os.File
}

// NewLazyFile returns a LazyFile that will be created in dir using the
// os.CreateTemp pattern.
func NewLazyFile(dir, pattern string) *LazyFile {
	return &LazyFile{dir: dir, pattern: pattern}
}

// Write creates the file if needed and appends p.
func (l *LazyFile) Write(p []byte) (int, error) {
	if err := l.create(); err != nil {
		return 0, err
	}
	return l.f.Write(p)
}

// Created reports whether the file exists on disk.
func (l *LazyFile) Created() bool {
	return l.f != nil
}

// Name returns the temporary file path, or "" before creation.
func (l *LazyFile) Name() string {
	if l.f == nil {
		return ""
	}
	return l.f.Name()
}

func (l *LazyFile) create() error {
	if l.f != nil {
		return nil
	}
	f, err := os.CreateTemp(l.dir, l.pattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	l.f = f
	return nil
}

// Commit syncs the file and renames it to path, creating an empty file
// first if nothing was written.
func (l *LazyFile) Commit(path string) error {
	if err := l.create(); err != nil {
		return err
	}
	tmp := l.f.Name()
	if err := l.f.Sync(); err != nil {
		l.Discard()
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := l.f.Close(); err != nil {
		l.f = nil
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	l.f = nil
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// Discard closes and removes the file if it was created.
func (l *LazyFile) Discard() error {
	if l.f == nil {
		return nil
	}
	name := l.f.Name()
	err := l.f.Close()
	l.f = nil
	return errors.Join(err, os.Remove(name))
}
