//go:build linux

package capfs

import (
	"bytes"
	"io"
	"io/fs"
	"unsafe"

	"golang.org/x/sys/unix"
)

const sizeOfDirent = 19

type dirent struct {
	ino    uint64
	off    uint64
	reclen uint16
	typ    uint8
}

// DirEntry is an entry read from a directory. The type of the entry is the
// one reported by the directory listing; symbolic links are not followed.
type DirEntry struct {
	dir  *Dir
	path string // relative to dir, defaults to name
	name string
	typ  fs.FileMode
}

func (e DirEntry) Name() string { return e.name }

func (e DirEntry) Type() fs.FileMode { return e.typ }

func (e DirEntry) IsDir() bool { return e.typ == fs.ModeDir }

// Info returns the metadata of the entry, without following symbolic links.
func (e DirEntry) Info() (fs.FileInfo, error) {
	if e.path != "" {
		return e.dir.Lstat(e.path)
	}
	return e.dir.Lstat(e.name)
}

func (e DirEntry) String() string { return fs.FormatDirEntry(e) }

var _ fs.DirEntry = DirEntry{}

// DirIter is an iterator over the entries of a directory. It holds its own
// file descriptor so iterating concurrently with other operations on the
// directory is safe.
type DirIter struct {
	dir *Dir
	buf dirbuf
}

// Next returns the next entry of the directory, or io.EOF when all entries
// were read. The "." and ".." entries are never returned.
func (it *DirIter) Next() (DirEntry, error) {
	name, typ, err := it.buf.readDirEntry()
	if err != nil {
		if err != io.EOF {
			err = &fs.PathError{Op: "readdir", Path: it.dir.name, Err: err}
		}
		return DirEntry{}, err
	}
	if typ == fs.ModeIrregular {
		var stat unix.Stat_t
		if err := fstatat(it.buf.fd, name, &stat, unix.AT_SYMLINK_NOFOLLOW); err != nil {
			return DirEntry{}, &fs.PathError{Op: "stat", Path: it.dir.join(name), Err: err}
		}
		typ = fileModeOf(stat.Mode).Type()
	}
	return DirEntry{dir: it.dir, name: name, typ: typ}, nil
}

// Close releases the file descriptor held by the iterator.
func (it *DirIter) Close() error {
	if fd := it.buf.fd; fd >= 0 {
		it.buf.fd = -1
		closeTraceError(fd)
	}
	return nil
}

const dirbufsize = 2 * PATH_MAX // must be greater than sizeOfDirent

type dirbuf struct {
	buffer *[dirbufsize]byte
	offset int
	length int
	fd     int
}

func (d *dirbuf) readDirEntry() (string, fs.FileMode, error) {
	if d.buffer == nil {
		d.buffer = new([dirbufsize]byte)
	}

	for {
		if (d.length - d.offset) < sizeOfDirent {
			n, err := getdents(d.fd, d.buffer[:])
			if err != nil {
				return "", 0, err
			}
			if n == 0 {
				return "", 0, io.EOF
			}
			d.offset = 0
			d.length = n
		}

		dirent := (*dirent)(unsafe.Pointer(&d.buffer[d.offset]))

		if (d.offset + int(dirent.reclen)) > d.length {
			d.offset = d.length
			continue
		}

		mode := fs.FileMode(0)
		switch dirent.typ {
		case unix.DT_REG:
			mode = 0
		case unix.DT_BLK:
			mode = fs.ModeDevice
		case unix.DT_CHR:
			mode = fs.ModeDevice | fs.ModeCharDevice
		case unix.DT_DIR:
			mode = fs.ModeDir
		case unix.DT_LNK:
			mode = fs.ModeSymlink
		case unix.DT_FIFO:
			mode = fs.ModeNamedPipe
		case unix.DT_SOCK:
			mode = fs.ModeSocket
		default: // DT_WHT, DT_UNKNOWN
			mode = fs.ModeIrregular
		}

		i := d.offset + sizeOfDirent
		j := d.offset + int(dirent.reclen)
		name := d.buffer[i:j:j]

		n := bytes.IndexByte(name, 0)
		if n >= 0 {
			name = name[:n:n]
		}

		d.offset += int(dirent.reclen)

		switch string(name) {
		case ".", "..":
		default:
			return string(name), mode, nil
		}
	}
}
