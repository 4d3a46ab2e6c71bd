//go:build linux

package capfs

import (
	"bytes"
	"io/fs"
)

// The xattr syscalls have no variant taking a directory file descriptor, so
// the path of the file is expressed relative to the /proc/self/fd entry of the
// directory. The l* variants are used so the last component is not followed
// when it is a symbolic link.

const (
	getxattrBufferSize  = 256
	listxattrBufferSize = 512
)

// xattrAt invokes fn with the path to use with the xattr syscalls to reach
// name in d. Paths must not contain ".." components. The directory containing
// the last component is resolved beneath d first, so the kernel only walks a
// single component from the /proc/self/fd entry.
func (d *Dir) xattrAt(op, name string, fn func(path string) error) error {
	if isAbs(name) || hasUplink(name) {
		return &fs.PathError{Op: op, Path: d.join(name), Err: ErrEscape}
	}
	return d.at(op, name, func(dirfd int, base string) error {
		return fn(procSelfFd(dirfd) + "/" + base)
	})
}

// Getxattr returns the value of the extended attribute key of the file at
// name. The boolean is false if the file has no such attribute. Symbolic links
// are not followed.
func (d *Dir) Getxattr(name, key string) ([]byte, bool, error) {
	var value []byte
	var found bool
	err := d.xattrAt("getxattr", name, func(path string) error {
		buf := make([]byte, getxattrBufferSize)
		for {
			n, err := lgetxattr(path, key, buf)
			switch err {
			case nil:
				value, found = buf[:n:n], true
				return nil
			case ERANGE:
				buf = make([]byte, 2*len(buf))
			case ENODATA:
				return nil
			default:
				return err
			}
		}
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// Listxattr returns the names of the extended attributes of the file at name.
// Symbolic links are not followed.
func (d *Dir) Listxattr(name string) (XattrList, error) {
	var list XattrList
	err := d.xattrAt("listxattr", name, func(path string) error {
		buf := make([]byte, listxattrBufferSize)
		for {
			n, err := llistxattr(path, buf)
			switch err {
			case nil:
				list.buf = buf[:n:n]
				return nil
			case ERANGE:
				buf = make([]byte, 2*len(buf))
			default:
				return err
			}
		}
	})
	return list, err
}

// Setxattr sets the extended attribute key of the file at name to value,
// creating the attribute or replacing its previous value. Symbolic links are
// not followed.
func (d *Dir) Setxattr(name, key string, value []byte) error {
	return d.xattrAt("setxattr", name, func(path string) error {
		return lsetxattr(path, key, value)
	})
}

// XattrList is the list of extended attribute names of a file.
type XattrList struct {
	buf []byte
}

// Len returns the number of names in the list.
func (l XattrList) Len() int {
	n := 0
	l.Range(func([]byte) bool { n++; return true })
	return n
}

// Names returns the names in the list.
func (l XattrList) Names() []string {
	var names []string
	l.Range(func(name []byte) bool {
		names = append(names, string(name))
		return true
	})
	return names
}

// Range calls fn for each name in the list, until fn returns false. The byte
// slice passed to fn is only valid for the duration of the call.
func (l XattrList) Range(fn func(name []byte) bool) {
	b := l.buf
	for len(b) > 0 {
		var name []byte
		if i := bytes.IndexByte(b, 0); i < 0 {
			name, b = b, nil
		} else {
			name, b = b[:i], b[i+1:]
		}
		if len(name) > 0 && !fn(name) {
			return
		}
	}
}
