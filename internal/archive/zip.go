// Package archive packages rendered project trees into in-memory zip
// archives. Symbolic links are stored as symlink entries (link target as
// payload, Unix mode bits in the external attributes) so that a Unix-aware
// unzip recreates the link instead of a regular file.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// BuildZip walks root recursively and returns a zip archive of every
// regular file and symlink beneath it, entry names relative to root.
// Directories produce no entries of their own. The whole archive is built
// in memory.
func BuildZip(root string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		if d.Type()&fs.ModeSymlink != 0 {
			return writeSymlink(zw, name, path)
		}
		if !d.Type().IsRegular() {
			// Sockets, devices and the like have no zip representation.
			return nil
		}
		return writeFile(zw, name, path)
	})
	if err != nil {
		return nil, fmt.Errorf("archive %s: %w", root, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

func writeFile(zw *zip.Writer, name, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	header := &zip.FileHeader{
		Name:   name,
		Method: zip.Deflate,
	}
	header.SetMode(info.Mode())
	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func writeSymlink(zw *zip.Writer, name, path string) error {
	target, err := os.Readlink(path)
	if err != nil {
		return err
	}
	header := &zip.FileHeader{
		Name:   name,
		Method: zip.Store,
	}
	// 0o120000 (symlink) | 0o755, encoded into the external attributes
	// with the Unix creator tag by SetMode.
	header.SetMode(fs.ModeSymlink | 0o755)
	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = w.Write([]byte(target))
	return err
}
