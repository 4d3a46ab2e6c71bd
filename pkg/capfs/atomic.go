//go:build linux

package capfs

import (
	"bufio"
	"io/fs"
	"os"

	"go.uber.org/zap"
)

// AtomicWriter is passed to the functions producing the content of a file
// replaced atomically. Writes are buffered; the buffer is flushed after the
// function returns.
type AtomicWriter struct {
	*bufio.Writer
	file *os.File
}

// File returns the temporary file that the content is written to. Writes to
// the file bypass the buffer of the AtomicWriter.
func (w *AtomicWriter) File() *os.File { return w.file }

// Chmod changes the permissions that the file will have once in place.
func (w *AtomicWriter) Chmod(perm fs.FileMode) error { return w.file.Chmod(perm) }

// AtomicReplaceWith atomically replaces the file at name in d with the content
// written by fn. Readers of the file observe either the previous content or
// the new one, never a partially written file; after a crash the file has
// either the previous content or the new one.
//
// If a regular file already exists at name, the new file inherits its
// permissions. Otherwise the new file receives the default permissions of the
// filesystem (0666 minus the umask). A symbolic link at name is replaced by
// the new file and its target is left untouched.
//
// The value and error returned by fn are passed through unchanged. The file
// at name is unmodified if fn returns an error.
func AtomicReplaceWith[T any](d *Dir, name string, fn func(*AtomicWriter) (T, error)) (T, error) {
	return atomicReplace(d, name, nil, fn)
}

// AtomicReplaceWithPerms is like AtomicReplaceWith but the file is given the
// permissions perm, which are applied before fn is called.
func AtomicReplaceWithPerms[T any](d *Dir, name string, perm fs.FileMode, fn func(*AtomicWriter) (T, error)) (T, error) {
	return atomicReplace(d, name, &perm, fn)
}

// AtomicReplace is like AtomicReplaceWith for writers producing no value.
func (d *Dir) AtomicReplace(name string, fn func(*AtomicWriter) error) error {
	_, err := AtomicReplaceWith(d, name, func(w *AtomicWriter) (struct{}, error) {
		return struct{}{}, fn(w)
	})
	return err
}

// AtomicWrite atomically replaces the content of the file at name with data.
func (d *Dir) AtomicWrite(name string, data []byte) error {
	return d.AtomicReplace(name, func(w *AtomicWriter) error {
		_, err := w.Write(data)
		return err
	})
}

// AtomicWriteWithPerms is like AtomicWrite but the file is given the
// permissions perm.
func (d *Dir) AtomicWriteWithPerms(name string, data []byte, perm fs.FileMode) error {
	_, err := AtomicReplaceWithPerms(d, name, perm, func(w *AtomicWriter) (struct{}, error) {
		_, err := w.Write(data)
		return struct{}{}, err
	})
	return err
}

func atomicReplace[T any](d *Dir, name string, perm *fs.FileMode, fn func(*AtomicWriter) (T, error)) (ret T, err error) {
	parent, base, err := d.subdirOf(name)
	if err != nil {
		return ret, err
	}
	if parent != d {
		defer parent.Close()
	}

	var inherited fs.FileMode
	var inherit bool
	if perm == nil {
		inherited, inherit, err = parent.regularFilePerm(base)
		if err != nil {
			return ret, err
		}
	}

	createPerm := fs.FileMode(0666)
	if perm != nil {
		createPerm = defaultTempfilePerm
	}

	t, err := newTempfile(parent, base, createPerm)
	if err != nil {
		return ret, err
	}
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			Logger().Debug("closing temporary file",
				zap.String("path", d.join(name)),
				zap.Error(closeErr),
			)
		}
	}()

	switch {
	case perm != nil:
		err = t.file.Chmod(*perm)
	case inherit:
		err = t.file.Chmod(inherited)
	}
	if err != nil {
		return ret, err
	}

	var zero T
	w := &AtomicWriter{Writer: bufio.NewWriter(t.file), file: t.file}
	if ret, err = fn(w); err != nil {
		return ret, err
	}
	if err := w.Flush(); err != nil {
		return zero, err
	}
	if err := t.Sync(); err != nil {
		return zero, err
	}
	if err := t.replace(); err != nil {
		return zero, err
	}
	if err := parent.Sync(); err != nil {
		return zero, err
	}
	return ret, nil
}

// subdirOf splits name into the directory that contains it and its last
// component. The returned directory is d itself when name has a single
// component, the caller must close it otherwise.
func (d *Dir) subdirOf(name string) (*Dir, string, error) {
	clean := cleanPath(name)
	dir, base := splitPath(clean)
	switch base {
	case "", ".", "..":
		return nil, "", &fs.PathError{Op: "open", Path: d.join(name), Err: ErrNoFileName}
	}
	if isAbs(clean) {
		return nil, "", &fs.PathError{Op: "open", Path: d.join(name), Err: ErrEscape}
	}
	if dir == "." {
		return d, base, nil
	}
	parent, err := d.OpenDir(dir)
	if err != nil {
		return nil, "", err
	}
	return parent, base, nil
}
