//go:build linux

package capfs

import (
	"io/fs"
	"math"
	"os"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const (
	tempfilePrefix = ".capfs-tmp."

	// Number of random names tried before giving up on creating or naming a
	// temporary file.
	maxTempfileAttempts = math.MaxUint32 - 1

	defaultTempfilePerm fs.FileMode = 0600
)

const (
	tempfileUndecided int32 = iota
	tempfileAnonymous
	tempfileNamed
)

// The strategy used to create temporary files. It starts undecided
// and moves to tempfileNamed if the kernel turns out not to know O_TMPFILE.
var tempfileStrategy atomic.Int32

// LinkableTempfile is a temporary file created in the directory of its final
// name, which it is only given once its content is complete.
//
// When the kernel and filesystem support it, the file is created with
// O_TMPFILE and has no name at all until it is linked into the directory, so
// an interrupted program leaves nothing behind. Otherwise the file is created
// under a random name which is removed when the file is closed without having
// been linked.
//
// The zero value is not usable, temporary files must be created with
// NewLinkableTempfile. Close must be called in all cases, typically with a
// defer right after creating the file.
type LinkableTempfile struct {
	dir *Dir
	// Set when dir was opened for this file and must be closed with it.
	ownDir bool
	target string
	file   *os.File
	// Scratch name of the file in dir, empty if the file is anonymous or has
	// already been given its final name.
	name string
	done bool
}

// NewLinkableTempfile creates a temporary file meant to be given the name
// target in d. The file is created in the directory containing target, with
// permissions 0600; d must remain open until the temporary file is closed.
func NewLinkableTempfile(d *Dir, target string) (*LinkableTempfile, error) {
	parent, base, err := d.subdirOf(target)
	if err != nil {
		return nil, err
	}
	t, err := newTempfile(parent, base, defaultTempfilePerm)
	if err != nil {
		if parent != d {
			parent.Close()
		}
		return nil, err
	}
	t.ownDir = parent != d
	return t, nil
}

func newTempfile(d *Dir, target string, perm fs.FileMode) (*LinkableTempfile, error) {
	if tempfileStrategy.Load() != tempfileNamed {
		fd, err := openat(d.fd, ".", O_RDWR|O_TMPFILE, unixMode(perm))
		switch {
		case err == nil:
			tempfileStrategy.CompareAndSwap(tempfileUndecided, tempfileAnonymous)
			return &LinkableTempfile{
				dir:    d,
				target: target,
				file:   os.NewFile(uintptr(fd), d.join(".")),
			}, nil
		case tmpfileUnknown(err):
			tempfileStrategy.Store(tempfileNamed)
		case err == EOPNOTSUPP:
			// The filesystem of this directory does not support anonymous
			// files, others might.
		default:
			return nil, &fs.PathError{Op: "open", Path: d.name, Err: err}
		}
	}

	for i := uint32(0); i < maxTempfileAttempts; i++ {
		name := tempfileName()
		fd, err := openat(d.fd, name, O_RDWR|O_CREAT|O_EXCL|O_NOFOLLOW, unixMode(perm))
		switch err {
		case nil:
			return &LinkableTempfile{
				dir:    d,
				target: target,
				file:   os.NewFile(uintptr(fd), d.join(name)),
				name:   name,
			}, nil
		case EEXIST:
			continue
		default:
			return nil, &fs.PathError{Op: "open", Path: d.join(name), Err: err}
		}
	}
	return nil, &fs.PathError{Op: "open", Path: d.name, Err: ErrTooManyTempfiles}
}

// tmpfileUnknown reports whether err indicates a kernel predating O_TMPFILE.
// Such kernels either ignore the flag and attempt to open the directory for
// writing, or reject the combination of flags.
func tmpfileUnknown(err error) bool {
	return err == EISDIR || err == EINVAL
}

func tempfileName() string {
	return tempfilePrefix + uuid.NewString()
}

// File returns the underlying file.
func (t *LinkableTempfile) File() *os.File { return t.file }

// Dir returns the directory that the file is given its final name in.
func (t *LinkableTempfile) Dir() *Dir { return t.dir }

// Write writes b to the temporary file.
func (t *LinkableTempfile) Write(b []byte) (int, error) { return t.file.Write(b) }

// Sync flushes the content of the temporary file to stable storage.
func (t *LinkableTempfile) Sync() error { return t.file.Sync() }

// Emplace gives the temporary file its final name, failing with an error
// matching fs.ErrExist if a file already exists there.
func (t *LinkableTempfile) Emplace() error {
	return t.finalize("link", func() error {
		if t.name == "" {
			return t.linkAnonymous(t.dir.fd, t.target)
		}
		if err := linkat(t.dir.fd, t.name, t.dir.fd, t.target, 0); err != nil {
			return err
		}
		t.removeScratchName()
		return nil
	})
}

// Replace atomically gives the temporary file its final name, replacing any
// existing file. If the existing file is a regular file, its permissions are
// copied to the temporary file, otherwise the file keeps permissions 0600.
func (t *LinkableTempfile) Replace() error {
	if t.done {
		return t.errClosed("rename")
	}
	perm, ok, err := t.dir.regularFilePerm(t.target)
	if err != nil {
		return err
	}
	if !ok {
		perm = defaultTempfilePerm
	}
	return t.ReplaceWithPerms(perm)
}

// ReplaceWithPerms is like Replace but sets the permissions of the file to
// perm.
func (t *LinkableTempfile) ReplaceWithPerms(perm fs.FileMode) error {
	if t.done {
		return t.errClosed("rename")
	}
	if err := t.file.Chmod(perm); err != nil {
		return err
	}
	return t.replace()
}

// ReplaceContents writes data to the temporary file, flushes it to stable
// storage and then behaves like Replace.
func (t *LinkableTempfile) ReplaceContents(data []byte) error {
	if err := t.writeContents(data); err != nil {
		return err
	}
	return t.Replace()
}

// ReplaceContentsUsingPerms is like ReplaceContents but sets the permissions
// of the file to perm.
func (t *LinkableTempfile) ReplaceContentsUsingPerms(data []byte, perm fs.FileMode) error {
	if err := t.writeContents(data); err != nil {
		return err
	}
	return t.ReplaceWithPerms(perm)
}

func (t *LinkableTempfile) writeContents(data []byte) error {
	if t.done {
		return t.errClosed("write")
	}
	if _, err := t.file.Write(data); err != nil {
		return err
	}
	return t.file.Sync()
}

// replace renames the temporary file over its final name, leaving its
// permissions unchanged.
func (t *LinkableTempfile) replace() error {
	return t.finalize("rename", func() error {
		if t.name == "" {
			if err := t.linkScratchName(); err != nil {
				return err
			}
		}
		if err := renameat(t.dir.fd, t.name, t.dir.fd, t.target); err != nil {
			t.removeScratchName()
			return err
		}
		t.name = ""
		return nil
	})
}

func (t *LinkableTempfile) finalize(op string, fn func() error) error {
	if t.done {
		return t.errClosed(op)
	}
	if err := fn(); err != nil {
		return &fs.PathError{Op: op, Path: t.dir.join(t.target), Err: err}
	}
	t.done = true
	return nil
}

func (t *LinkableTempfile) errClosed(op string) error {
	return &fs.PathError{Op: op, Path: t.dir.join(t.target), Err: fs.ErrClosed}
}

// linkAnonymous links an O_TMPFILE file into a directory. The kernel only
// allows linking an anonymous file through its /proc/self/fd entry unless the
// process has CAP_DAC_READ_SEARCH.
func (t *LinkableTempfile) linkAnonymous(dirfd int, base string) error {
	fd := int(t.file.Fd())
	err := linkat(unix.AT_FDCWD, procSelfFd(fd), dirfd, base, unix.AT_SYMLINK_FOLLOW)
	if err == ENOENT {
		// /proc is not mounted.
		err = linkat(fd, "", dirfd, base, unix.AT_EMPTY_PATH)
	}
	return err
}

func (t *LinkableTempfile) linkScratchName() error {
	for i := uint32(0); i < maxTempfileAttempts; i++ {
		name := tempfileName()
		switch err := t.linkAnonymous(t.dir.fd, name); err {
		case nil:
			t.name = name
			return nil
		case EEXIST:
			continue
		default:
			return err
		}
	}
	return ErrTooManyTempfiles
}

func (t *LinkableTempfile) removeScratchName() {
	if t.name == "" {
		return
	}
	name := t.name
	t.name = ""
	if err := unlinkat(t.dir.fd, name, 0); err != nil && err != ENOENT {
		Logger().Debug("removing temporary file",
			zap.String("path", t.dir.join(name)),
			zap.Error(err),
		)
	}
}

// Close releases the temporary file. If the file was never given its final
// name, it is discarded.
func (t *LinkableTempfile) Close() error {
	t.removeScratchName()
	err := t.file.Close()
	if t.ownDir {
		t.dir.Close()
	}
	return err
}

// regularFilePerm returns the permissions of the file at name if it is a
// regular file. Symbolic links are not followed, the permissions of a file
// must never be inherited from a link target that could have been placed
// there by another user.
func (d *Dir) regularFilePerm(name string) (fs.FileMode, bool, error) {
	info, err := d.LstatOptional(name)
	if err != nil || info == nil {
		return 0, false, err
	}
	mode := info.Mode()
	if !mode.IsRegular() {
		return 0, false, nil
	}
	return mode &^ fs.ModeType, true, nil
}
