//go:build linux

package capfs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"unicode/utf8"

	"golang.org/x/sys/unix"
)

// RootDir is a directory treated as the root of a filesystem when resolving
// paths: ".." never climbs above it and symbolic links, including absolute
// ones, are interpreted relative to it. This is the mode of resolution
// suitable to read the content of a container image or a chroot without
// letting its symbolic links reach the host filesystem.
//
// Only lookups performed by RootDir methods carry this guarantee. RootDir is
// read oriented; Reopen gives access to the underlying directory for other
// operations, which are then resolved with the rules of Dir.
//
// RootDir requires openat2(2) (Linux 5.6+); on older kernels the methods fail
// with ErrUnsupported.
type RootDir struct {
	dir *Dir
}

// NewRootDir opens the directory at path in d and returns it as a RootDir.
func NewRootDir(d *Dir, path string) (*RootDir, error) {
	dir, err := d.OpenDir(path)
	if err != nil {
		return nil, err
	}
	return &RootDir{dir: dir}, nil
}

// OpenAmbientRoot opens the directory at path, resolved against the working
// directory of the process, and returns it as a RootDir.
func OpenAmbientRoot(path string) (*RootDir, error) {
	dir, err := OpenAmbientDir(path)
	if err != nil {
		return nil, err
	}
	return &RootDir{dir: dir}, nil
}

// RootDirFrom returns a RootDir taking ownership of d.
func RootDirFrom(d *Dir) *RootDir {
	return &RootDir{dir: d}
}

// Name returns the name that the root was opened with.
func (r *RootDir) Name() string { return r.dir.name }

// Close releases the directory.
func (r *RootDir) Close() error { return r.dir.Close() }

// Open opens the file at path for reading.
func (r *RootDir) Open(path string) (*os.File, error) {
	fd, err := openat2(r.dir.fd, path, O_RDONLY, 0, unix.RESOLVE_IN_ROOT|unix.RESOLVE_NO_MAGICLINKS)
	if err != nil {
		if err == ENOSYS {
			err = ErrUnsupported
		}
		return nil, &fs.PathError{Op: "open", Path: r.join(path), Err: err}
	}
	return os.NewFile(uintptr(fd), r.join(path)), nil
}

// OpenOptional is like Open but returns a nil file and no error when there is
// no file at path.
func (r *RootDir) OpenOptional(path string) (*os.File, error) {
	f, err := r.Open(path)
	if isNotExist(err) {
		return nil, nil
	}
	return f, err
}

// ReadFile reads the content of the file at path.
func (r *RootDir) ReadFile(path string) ([]byte, error) {
	f, err := r.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// ReadFileToString is like ReadFile but fails if the content is not valid
// UTF-8.
func (r *RootDir) ReadFileToString(path string) (string, error) {
	b, err := r.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", &fs.PathError{Op: "read", Path: r.join(path), Err: errInvalidUTF8}
	}
	return string(b), nil
}

// Entries returns an iterator over the entries of the root directory.
func (r *RootDir) Entries() (*DirIter, error) {
	return r.dir.Entries()
}

// ReadDir returns the entries of the directory at path. The directory is
// looked up with the rules of Dir.OpenDir, not with those of RootDir.Open.
func (r *RootDir) ReadDir(path string) ([]DirEntry, error) {
	d, err := r.dir.OpenDir(path)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	entries, err := d.ReadDir()
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].dir = r.dir
		entries[i].path = joinPath(cleanPath(path), entries[i].name)
	}
	return entries, nil
}

// Reopen returns a new, independent, handle on the root directory which does
// not apply the resolution rules of RootDir.
func (r *RootDir) Reopen() (*Dir, error) {
	return r.dir.Reopen()
}

func (r *RootDir) join(path string) string {
	return r.dir.join(path)
}

func (r *RootDir) String() string {
	return fmt.Sprintf("RootDir(%s)", r.dir.name)
}
