//go:build linux

package capfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"unicode/utf8"
)

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// OpenOptional is like Open but returns a nil file and no error if there is
// no file at name. Symbolic links are followed, a dangling link is reported as
// an absent file.
func (d *Dir) OpenOptional(name string) (*os.File, error) {
	f, err := d.Open(name)
	if isNotExist(err) {
		return nil, nil
	}
	return f, err
}

// OpenDirOptional is like OpenDir but returns a nil directory and no error if
// there is nothing at name.
func (d *Dir) OpenDirOptional(name string) (*Dir, error) {
	dir, err := d.OpenDir(name)
	if isNotExist(err) {
		return nil, nil
	}
	return dir, err
}

// StatOptional is like Stat but returns nil metadata and no error if there is
// no file at name.
func (d *Dir) StatOptional(name string) (fs.FileInfo, error) {
	info, err := d.Stat(name)
	if isNotExist(err) {
		return nil, nil
	}
	return info, err
}

// LstatOptional is like Lstat but returns nil metadata and no error if there is
// no file at name.
func (d *Dir) LstatOptional(name string) (fs.FileInfo, error) {
	info, err := d.Lstat(name)
	if isNotExist(err) {
		return nil, nil
	}
	return info, err
}

// ReadFileOptional is like ReadFile but returns false and no error if there is
// no file at name.
func (d *Dir) ReadFileOptional(name string) ([]byte, bool, error) {
	f, err := d.OpenOptional(name)
	if err != nil || f == nil {
		return nil, false, err
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// ReadFileToStringOptional is like ReadFileOptional but returns the content as
// a string, failing if the file does not contain valid UTF-8.
func (d *Dir) ReadFileToStringOptional(name string) (string, bool, error) {
	b, ok, err := d.ReadFileOptional(name)
	if err != nil || !ok {
		return "", ok, err
	}
	if !utf8.Valid(b) {
		return "", false, &fs.PathError{Op: "read", Path: d.join(name), Err: errInvalidUTF8}
	}
	return string(b), true, nil
}

var errInvalidUTF8 = fmt.Errorf("stream did not contain valid UTF-8: %w", fs.ErrInvalid)

// RemoveFileOptional removes the file or symbolic link at name. It returns
// true if an entry was removed, and false without error if there was none.
func (d *Dir) RemoveFileOptional(name string) (bool, error) {
	err := d.Remove(name)
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RemoveAllOptional removes the entry at name. Directories are removed with
// their content, any other type of file (symbolic links included) is removed
// without being followed. The method returns true if an entry was removed, and
// false without error if there was none.
func (d *Dir) RemoveAllOptional(name string) (bool, error) {
	info, err := d.LstatOptional(name)
	if err != nil || info == nil {
		return false, err
	}
	if info.IsDir() {
		err = d.RemoveAll(name)
	} else {
		err = d.Remove(name)
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
