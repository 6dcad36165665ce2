package paths

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rpmbot/rpmbot/pkg/errors"
)

// EnsureDir makes sure path exists and is a directory.
func EnsureDir(path string) error {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return nil
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot create directory `%s`", path)
	}
	return nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// IsFile reports whether path exists and is a regular file.
func IsFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// RemovePath removes a file or a directory tree. A missing path is not an
// error.
func RemovePath(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot remove `%s`", path)
	}
	return nil
}

// RotateLog backs up an existing log file to `<path>.bak`, dropping any
// previous backup.
func RotateLog(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	_ = os.Remove(path + ".bak")
	if err := os.Rename(path, path+".bak"); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot rename `%s` to `.bak`", path)
	}
	return nil
}

// CopyFile copies src to the full destination path dst, preserving the file
// mode and modification time. Preserving mtime matters: copied artifacts
// must still match the mtimes recorded in their build summary.
func CopyFile(src, dst string) error {
	fi, err := os.Stat(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot stat `%s`", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot open `%s`", src)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot create `%s`", dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return errors.Wrapf(err, errors.ErrIO, "cannot copy `%s` to `%s`", src, dst)
	}
	if err := out.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot write `%s`", dst)
	}

	if err := os.Chtimes(dst, fi.ModTime(), fi.ModTime()); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot set times on `%s`", dst)
	}
	return nil
}

// CopyFileToDir copies src into the directory dstDir keeping its basename.
func CopyFileToDir(src, dstDir string) error {
	return CopyFile(src, filepath.Join(dstDir, filepath.Base(src)))
}

// MoveFileToDir moves src into dstDir, falling back to copy-and-remove when
// a plain rename is not possible (different filesystems).
func MoveFileToDir(src, dstDir string) error {
	dst := filepath.Join(dstDir, filepath.Base(src))
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := CopyFile(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot remove `%s`", src)
	}
	return nil
}
