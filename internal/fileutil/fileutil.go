// Package fileutil moves finished tracks into place.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// MoveFile renames src to dst, replacing dst. When the two paths live on
// different filesystems the file is copied with verification and src removed.
func MoveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, unix.EXDEV) {
		return err
	}
	if err := CopyFileVerified(src, dst); err != nil {
		return fmt.Errorf("copy across filesystems: %w", err)
	}
	return os.Remove(src)
}

// CopyFileVerified copies src to dst keeping its permission bits. The data is
// written to a partial file beside dst, synced, read back and compared against
// the source digest before it replaces dst. dst is untouched on failure.
func CopyFileVerified(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	partial, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.partial")
	if err != nil {
		return err
	}
	partialPath := partial.Name()
	committed := false
	defer func() {
		if !committed {
			_ = partial.Close()
			_ = os.Remove(partialPath)
		}
	}()

	want := sha256.New()
	written, err := io.Copy(partial, io.TeeReader(in, want))
	if err != nil {
		return err
	}
	if written != info.Size() {
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
	}
	if err := partial.Chmod(info.Mode().Perm()); err != nil {
		return err
	}
	if err := partial.Sync(); err != nil {
		return err
	}
	if err := partial.Close(); err != nil {
		return err
	}

	got, err := digestFile(partialPath)
	if err != nil {
		return fmt.Errorf("read back copy: %w", err)
	}
	if !bytes.Equal(got, want.Sum(nil)) {
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	if err := os.Rename(partialPath, dst); err != nil {
		return err
	}
	committed = true
	return nil
}

func digestFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
