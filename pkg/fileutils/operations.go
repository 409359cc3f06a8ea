// Package fileutils implements the filesystem primitives the import pipeline
// builds on: cross-device safe moves, dotfile backups for rollback, and
// cleanup of the directory skeleton left behind by moves and deletes.
package fileutils

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// MoveFile moves a file, creating the destination directory as needed. It
// tries a rename first and falls back to copy+delete for cross-device moves.
func MoveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.WithStack(err)
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := copyFile(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		// Couldn't remove the source, so don't leave two copies around.
		os.Remove(dst)
		return errors.WithStack(err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.WithStack(err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.WithStack(err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.WithStack(err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return errors.WithStack(err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return errors.WithStack(err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return errors.WithStack(err)
	}
	return nil
}

// BackupPath is the sibling dotfile a file gets moved to while an import
// overwrites it: /lib/Author/Book.m4b -> /lib/Author/.Book.m4b.bak.
func BackupPath(path string) string {
	dir, name := filepath.Split(path)
	return filepath.Join(dir, "."+name+".bak")
}

// BackupFile moves path aside to its backup name. A missing source is not an
// error; the bool reports whether a backup was actually made.
func BackupFile(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.WithStack(err)
	}
	if err := os.Rename(path, BackupPath(path)); err != nil {
		return false, errors.WithStack(err)
	}
	return true, nil
}

// RestoreBackup moves a backup back into place, overwriting whatever partial
// file the failed operation left behind.
func RestoreBackup(path string) error {
	return errors.WithStack(os.Rename(BackupPath(path), path))
}

// RemoveBackup deletes the backup once the new content is safely in place.
// Backups can be whole directories; a missing backup is fine.
func RemoveBackup(path string) error {
	return errors.WithStack(os.RemoveAll(BackupPath(path)))
}

// RemoveFile deletes a file, treating an already-missing file as success.
func RemoveFile(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return errors.WithStack(err)
	}
	return nil
}

// PruneEmptyDirs removes dir and then its parents while they are empty,
// stopping (exclusive) at root. It never touches root itself and stops
// quietly at the first non-empty directory.
func PruneEmptyDirs(dir, root string) error {
	root = filepath.Clean(root)
	dir = filepath.Clean(dir)
	for dir != root && strings.HasPrefix(dir+string(filepath.Separator), root+string(filepath.Separator)) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				dir = filepath.Dir(dir)
				continue
			}
			return errors.WithStack(err)
		}
		if len(entries) > 0 {
			return nil
		}
		if err := os.Remove(dir); err != nil {
			return errors.WithStack(err)
		}
		dir = filepath.Dir(dir)
	}
	return nil
}
