//go:build linux

package capfs

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"
)

// Dir is a handle on an open directory. All paths passed to its methods are
// resolved beneath the directory.
//
// A Dir must be closed when the program does not need it anymore. A Dir is
// safe to use from multiple goroutines concurrently, except for Close.
type Dir struct {
	fd   int
	name string
}

// OpenAmbientDir opens the directory at path, resolved against the working
// directory of the process. It is the entry point from the ambient namespace
// into the capability model of this package.
func OpenAmbientDir(path string) (*Dir, error) {
	fd, err := openat(unix.AT_FDCWD, path, openDirFlags, 0)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}
	return &Dir{fd: fd, name: path}, nil
}

// NewDir constructs a Dir from an open directory. The returned Dir holds a
// duplicate of the file descriptor, the caller remains responsible for
// closing f.
func NewDir(f *os.File) (*Dir, error) {
	rc, err := f.SyscallConn()
	if err != nil {
		return nil, err
	}
	var fd int
	var dupErr error
	if err := rc.Control(func(sysfd uintptr) {
		fd, dupErr = dup(int(sysfd))
	}); err != nil {
		return nil, err
	}
	if dupErr != nil {
		return nil, &fs.PathError{Op: "dup", Path: f.Name(), Err: dupErr}
	}
	var stat unix.Stat_t
	if err := fstat(fd, &stat); err != nil {
		closeTraceError(fd)
		return nil, &fs.PathError{Op: "stat", Path: f.Name(), Err: err}
	}
	if (stat.Mode & unix.S_IFMT) != unix.S_IFDIR {
		closeTraceError(fd)
		return nil, &fs.PathError{Op: "open", Path: f.Name(), Err: ENOTDIR}
	}
	return &Dir{fd: fd, name: f.Name()}, nil
}

func dup(oldfd int) (int, error) {
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()
	newfd, err := ignoreEINTR2(func() (int, error) {
		return unix.Dup(oldfd)
	})
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(newfd)
	return newfd, nil
}

// Fd returns the file descriptor of the directory.
func (d *Dir) Fd() uintptr {
	return uintptr(d.fd)
}

// Name returns the name that the directory was opened with.
func (d *Dir) Name() string {
	return d.name
}

func (d *Dir) Close() error {
	fd := d.fd
	d.fd = -1
	if fd >= 0 {
		closeTraceError(fd)
	}
	return nil
}

// Sync flushes the directory entries to stable storage.
func (d *Dir) Sync() error {
	if err := fsync(d.fd); err != nil {
		return &fs.PathError{Op: "sync", Path: d.name, Err: err}
	}
	return nil
}

// Reopen returns a new independent handle on the same directory.
func (d *Dir) Reopen() (*Dir, error) {
	fd, err := openat(d.fd, ".", openDirFlags, 0)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: d.name, Err: err}
	}
	return &Dir{fd: fd, name: d.name}, nil
}

func (d *Dir) join(name string) string {
	if name == "" || name == "." {
		return d.name
	}
	return joinPath(d.name, name)
}

// OpenDir opens the directory at name.
func (d *Dir) OpenDir(name string) (*Dir, error) {
	fd, err := openBeneath(d.fd, name, openDirFlags, 0)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: d.join(name), Err: err}
	}
	return &Dir{fd: fd, name: d.join(name)}, nil
}

// openChild opens a subdirectory of d named by a single path component,
// refusing to follow a symbolic link at that name.
func (d *Dir) openChild(name string) (*Dir, error) {
	fd, err := openat(d.fd, name, openDirFlags|O_NOFOLLOW, 0)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: d.join(name), Err: err}
	}
	return &Dir{fd: fd, name: d.join(name)}, nil
}

// Open opens the file at name for reading.
func (d *Dir) Open(name string) (*os.File, error) {
	return d.OpenFile(name, O_RDONLY, 0)
}

// Create creates a new file at name, failing if it already exists.
func (d *Dir) Create(name string, perm fs.FileMode) (*os.File, error) {
	return d.OpenFile(name, O_RDWR|O_CREAT|O_EXCL, perm)
}

// OpenFile opens the file at name with the given flags (O_RDONLY etc...).
// When creating a file, perm is applied before the umask.
func (d *Dir) OpenFile(name string, flags int, perm fs.FileMode) (*os.File, error) {
	fd, err := openBeneath(d.fd, name, flags, unixMode(perm))
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: d.join(name), Err: err}
	}
	return os.NewFile(uintptr(fd), d.join(name)), nil
}

// ReadFile reads the whole content of the file at name.
func (d *Dir) ReadFile(name string) ([]byte, error) {
	f, err := d.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// WriteFile writes data to the file at name, creating it if needed and
// truncating it otherwise. The write is not atomic, see AtomicWrite for an
// alternative.
func (d *Dir) WriteFile(name string, data []byte, perm fs.FileMode) error {
	f, err := d.OpenFile(name, O_WRONLY|O_CREAT|O_TRUNC, perm)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	if err1 := f.Close(); err1 != nil && err == nil {
		err = err1
	}
	return err
}

// Stat returns the metadata of the file at name, following symbolic links.
func (d *Dir) Stat(name string) (fs.FileInfo, error) {
	fd, err := openBeneath(d.fd, name, O_PATH, 0)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: d.join(name), Err: err}
	}
	defer closeTraceError(fd)
	var stat unix.Stat_t
	if err := fstat(fd, &stat); err != nil {
		return nil, &fs.PathError{Op: "stat", Path: d.join(name), Err: err}
	}
	return newFileInfo(d.join(name), &stat), nil
}

// Lstat returns the metadata of the file at name. If the file is a symbolic
// link, the metadata describe the link itself.
func (d *Dir) Lstat(name string) (fs.FileInfo, error) {
	var stat unix.Stat_t
	err := d.at("lstat", name, func(dirfd int, base string) error {
		return fstatat(dirfd, base, &stat, unix.AT_SYMLINK_NOFOLLOW)
	})
	if err != nil {
		return nil, err
	}
	return newFileInfo(d.join(name), &stat), nil
}

// Readlink returns the target of the symbolic link at name.
func (d *Dir) Readlink(name string) (string, error) {
	var target string
	err := d.at("readlink", name, func(dirfd int, base string) (err error) {
		target, err = readlink(dirfd, base)
		return err
	})
	return target, err
}

// Symlink creates a symbolic link at name pointing to target. The target is
// stored as is; it is not required to resolve beneath d.
func (d *Dir) Symlink(target, name string) error {
	return d.at("symlink", name, func(dirfd int, base string) error {
		return symlinkat(target, dirfd, base)
	})
}

// Mkdir creates a directory at name.
func (d *Dir) Mkdir(name string, perm fs.FileMode) error {
	return d.at("mkdir", name, func(dirfd int, base string) error {
		return mkdirat(dirfd, base, unixMode(perm))
	})
}

// MkdirAll creates the directory at name and all its missing parents.
func (d *Dir) MkdirAll(name string, perm fs.FileMode) error {
	name = cleanPath(name)
	if name == "." {
		return nil
	}
	if isAbs(name) {
		return &fs.PathError{Op: "mkdir", Path: name, Err: ErrEscape}
	}
	for i := 0; i <= len(name); i++ {
		if i == len(name) || name[i] == '/' {
			if _, err := d.EnsureDir(name[:i], perm); err != nil {
				return err
			}
		}
	}
	return nil
}

// Remove removes the file or symbolic link at name.
func (d *Dir) Remove(name string) error {
	return d.at("unlink", name, func(dirfd int, base string) error {
		return unlinkat(dirfd, base, 0)
	})
}

// RemoveDir removes the empty directory at name.
func (d *Dir) RemoveDir(name string) error {
	return d.at("rmdir", name, func(dirfd int, base string) error {
		return unlinkat(dirfd, base, unix.AT_REMOVEDIR)
	})
}

// RemoveAll removes the file or directory tree at name. Symbolic links are
// removed, never followed. Like os.RemoveAll, it returns nil if name does not
// exist.
func (d *Dir) RemoveAll(name string) error {
	err := d.at("remove", name, func(dirfd int, base string) error {
		return removeAll(dirfd, base)
	})
	if errors.Is(err, fs.ErrNotExist) {
		err = nil
	}
	return err
}

func removeAll(dirfd int, name string) error {
	err := unlinkat(dirfd, name, 0)
	if err != EISDIR {
		return err
	}
	fd, err := openat(dirfd, name, openDirFlags|O_NOFOLLOW, 0)
	if err != nil {
		return err
	}
	child := &Dir{fd: fd, name: name}
	defer child.Close()

	for {
		names, err := child.ReadDirNames()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			break
		}
		for _, name := range names {
			if err := removeAll(fd, name); err != nil && err != ENOENT {
				return err
			}
		}
	}
	return unlinkat(dirfd, name, unix.AT_REMOVEDIR)
}

// Rename moves the file at oldname to newname in newDir, replacing any
// existing file at the destination.
func (d *Dir) Rename(oldname string, newDir *Dir, newname string) error {
	return d.atLink("rename", oldname, newDir, newname, func(olddirfd int, oldbase string, newdirfd int, newbase string) error {
		return renameat(olddirfd, oldbase, newdirfd, newbase)
	})
}

// Link creates a hard link at newname in newDir for the file at oldname.
func (d *Dir) Link(oldname string, newDir *Dir, newname string) error {
	return d.atLink("link", oldname, newDir, newname, func(olddirfd int, oldbase string, newdirfd int, newbase string) error {
		return linkat(olddirfd, oldbase, newdirfd, newbase, 0)
	})
}

// Chmod changes the permissions of the file at name, following symbolic
// links beneath d.
func (d *Dir) Chmod(name string, perm fs.FileMode) error {
	fd, err := openBeneath(d.fd, name, O_PATH, 0)
	if err != nil {
		return &fs.PathError{Op: "chmod", Path: d.join(name), Err: err}
	}
	defer closeTraceError(fd)
	if err := fchmodat(unix.AT_FDCWD, procSelfFd(fd), unixMode(perm)); err != nil {
		return &fs.PathError{Op: "chmod", Path: d.join(name), Err: err}
	}
	return nil
}

// Entries returns an iterator over the entries of the directory.
func (d *Dir) Entries() (*DirIter, error) {
	fd, err := openat(d.fd, ".", openDirFlags, 0)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: d.name, Err: err}
	}
	return &DirIter{dir: d, buf: dirbuf{fd: fd}}, nil
}

// ReadDir returns all the entries of the directory, in the order that the
// filesystem lists them.
func (d *Dir) ReadDir() ([]DirEntry, error) {
	it, err := d.Entries()
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var entries []DirEntry
	for {
		entry, err := it.Next()
		if err != nil {
			if err == io.EOF {
				err = nil
			}
			return entries, err
		}
		entries = append(entries, entry)
	}
}

// ReadDirNames returns the names of all the entries in the directory.
func (d *Dir) ReadDirNames() ([]string, error) {
	entries, err := d.ReadDir()
	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.name
	}
	return names, err
}

// at invokes fn with the directory containing the last component of name and
// that component. The directory is resolved beneath d.
func (d *Dir) at(op, name string, fn func(dirfd int, base string) error) error {
	dirfd, base, err := d.openParent(name)
	if err != nil {
		return &fs.PathError{Op: op, Path: d.join(name), Err: err}
	}
	if dirfd != d.fd {
		defer closeTraceError(dirfd)
	}
	if err := fn(dirfd, base); err != nil {
		return &fs.PathError{Op: op, Path: d.join(name), Err: err}
	}
	return nil
}

func (d *Dir) atLink(op, oldname string, newDir *Dir, newname string, fn func(int, string, int, string) error) error {
	olddirfd, oldbase, err := d.openParent(oldname)
	if err != nil {
		return &os.LinkError{Op: op, Old: d.join(oldname), New: newDir.join(newname), Err: err}
	}
	if olddirfd != d.fd {
		defer closeTraceError(olddirfd)
	}
	newdirfd, newbase, err := newDir.openParent(newname)
	if err != nil {
		return &os.LinkError{Op: op, Old: d.join(oldname), New: newDir.join(newname), Err: err}
	}
	if newdirfd != newDir.fd {
		defer closeTraceError(newdirfd)
	}
	if err := fn(olddirfd, oldbase, newdirfd, newbase); err != nil {
		return &os.LinkError{Op: op, Old: d.join(oldname), New: newDir.join(newname), Err: err}
	}
	return nil
}

// openParent resolves the directory containing the last component of name.
// The returned file descriptor is d.fd when name has a single component, the
// caller must close it otherwise.
func (d *Dir) openParent(name string) (int, string, error) {
	name = cleanPath(name)
	if isAbs(name) {
		return -1, "", ErrEscape
	}
	dir, base := splitPath(name)
	switch base {
	case ".":
		return d.fd, base, nil
	case "..":
		dir, base = name, "."
	}
	if dir == "." {
		return d.fd, base, nil
	}
	dirfd, err := openBeneath(d.fd, dir, openPathFlags, 0)
	if err != nil {
		return -1, "", err
	}
	return dirfd, base, nil
}

// Set when the kernel does not implement openat2(2), in which case lookups
// are resolved in user space one path component at a time.
var openat2Unsupported atomic.Bool

// openBeneath opens path relative to dirfd, refusing any resolution that would
// leave the directory.
func openBeneath(dirfd int, path string, flags int, mode uint32) (int, error) {
	if !openat2Unsupported.Load() {
		fd, err := openat2(dirfd, path, flags, mode, unix.RESOLVE_BENEATH|unix.RESOLVE_NO_MAGICLINKS)
		switch err {
		case nil:
			return fd, nil
		case EXDEV:
			return -1, ErrEscape
		case ENOSYS:
			openat2Unsupported.Store(true)
		default:
			return -1, err
		}
	}
	return resolveBeneath(dirfd, path, flags, mode)
}

// Maximum number of symbolic links followed while resolving a path, matching
// the limit of the kernel.
const maxFollowSymlink = 40

// resolveBeneath emulates openat2(RESOLVE_BENEATH) for kernels which do not
// have it. Every component is opened with O_NOFOLLOW; symbolic links are read
// and substituted in the remaining path, and absolute targets are rejected.
// The directories traversed are kept open so ".." steps back to the previous
// one instead of being resolved by the kernel.
func resolveBeneath(dirfd int, name string, flags int, mode uint32) (int, error) {
	var stack []int
	defer func() {
		for _, fd := range stack {
			closeTraceError(fd)
		}
	}()
	cwd := func() int {
		if len(stack) == 0 {
			return dirfd
		}
		return stack[len(stack)-1]
	}

	followSymlinkDepth := 0
	followSymlink := func(link, rest string) error {
		if followSymlinkDepth == maxFollowSymlink {
			return ELOOP
		}
		followSymlinkDepth++
		if isAbs(link) {
			return ErrEscape
		}
		if rest != "" {
			link += "/" + rest
		}
		name = link
		return nil
	}

	if isAbs(name) {
		return -1, ErrEscape
	}
	for {
		elem, rest := walkPath(cleanPath(name))

		switch elem {
		case ".":
			return openat(cwd(), ".", flags, mode)
		case "..":
			if len(stack) == 0 {
				return -1, ErrEscape
			}
			closeTraceError(stack[len(stack)-1])
			stack = stack[:len(stack)-1]
			if name = rest; name == "" {
				name = "."
			}
			continue
		}

		if rest == "" {
			fd, err := openat(cwd(), elem, flags|O_NOFOLLOW, mode)
			if (flags & O_NOFOLLOW) != 0 {
				return fd, err
			}
			switch err {
			case nil:
				// O_PATH|O_NOFOLLOW opens the symbolic link itself.
				if (flags&O_PATH) == 0 || !isSymlink(fd) {
					return fd, nil
				}
				closeTraceError(fd)
			case ELOOP, ENOTDIR:
			default:
				return -1, err
			}
			link, lerr := readlink(cwd(), elem)
			if lerr != nil {
				if err == nil {
					err = lerr
				}
				return -1, err
			}
			if err := followSymlink(link, ""); err != nil {
				return -1, err
			}
			continue
		}

		fd, err := openat(cwd(), elem, openPathFlags|O_NOFOLLOW, 0)
		switch err {
		case nil:
			stack = append(stack, fd)
			name = rest
			continue
		case ENOTDIR, ELOOP:
		default:
			return -1, err
		}
		link, lerr := readlink(cwd(), elem)
		if lerr != nil {
			// EINVAL: not a symbolic link.
			return -1, err
		}
		if err := followSymlink(link, rest); err != nil {
			return -1, err
		}
	}
}

func isSymlink(fd int) bool {
	var stat unix.Stat_t
	return fstat(fd, &stat) == nil && (stat.Mode&unix.S_IFMT) == unix.S_IFLNK
}

func readlink(dirfd int, name string) (string, error) {
	for size := 256; ; size *= 2 {
		buf := make([]byte, size)
		n, err := readlinkat(dirfd, name, buf)
		if err != nil {
			return "", err
		}
		if n < size {
			return string(buf[:n]), nil
		}
	}
}
