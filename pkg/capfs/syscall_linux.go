package capfs

import (
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const (
	EAGAIN     = unix.EAGAIN
	EEXIST     = unix.EEXIST
	EINTR      = unix.EINTR
	EINVAL     = unix.EINVAL
	EISDIR     = unix.EISDIR
	ELOOP      = unix.ELOOP
	ENODATA    = unix.ENODATA
	ENOENT     = unix.ENOENT
	ENOSYS     = unix.ENOSYS
	ENOTDIR    = unix.ENOTDIR
	ENOTEMPTY  = unix.ENOTEMPTY
	ENOTSUP    = unix.ENOTSUP
	EOPNOTSUPP = unix.EOPNOTSUPP
	ERANGE     = unix.ERANGE
	EXDEV      = unix.EXDEV
)

const (
	O_RDONLY    = unix.O_RDONLY
	O_WRONLY    = unix.O_WRONLY
	O_RDWR      = unix.O_RDWR
	O_APPEND    = unix.O_APPEND
	O_CREAT     = unix.O_CREAT
	O_EXCL      = unix.O_EXCL
	O_TRUNC     = unix.O_TRUNC
	O_DIRECTORY = unix.O_DIRECTORY
	O_NOFOLLOW  = unix.O_NOFOLLOW
	O_PATH      = unix.O_PATH
	O_TMPFILE   = unix.O_TMPFILE
)

const (
	openDirFlags  = unix.O_RDONLY | unix.O_DIRECTORY
	openPathFlags = unix.O_PATH | unix.O_DIRECTORY

	PATH_MAX = 4096
)

// This function is used to automatically retry syscalls when they return EINTR
// due to having handled a signal instead of executing.
func ignoreEINTR(f func() error) error {
	for {
		if err := f(); err != EINTR {
			return err
		}
	}
}

func ignoreEINTR2[F func() (R, error), R any](f F) (R, error) {
	for {
		v, err := f()
		if err != EINTR {
			return v, err
		}
	}
}

func closeTraceError(fd int) {
	if err := unix.Close(fd); err != nil {
		Logger().Warn("close",
			zap.Int("fd", fd),
			zap.Error(err),
			zap.Stack("stack"),
		)
	}
}

func procSelfFd(fd int) string {
	return "/proc/self/fd/" + strconv.Itoa(fd)
}

func openat(dirfd int, path string, flags int, mode uint32) (int, error) {
	return ignoreEINTR2(func() (int, error) { return unix.Openat(dirfd, path, flags|unix.O_CLOEXEC, mode) })
}

// openat2 retries on both EINTR and EAGAIN. The kernel returns EAGAIN when
// a concurrent rename raced with a RESOLVE_BENEATH or RESOLVE_IN_ROOT lookup,
// and there is no bound on how many times it may ask us to try again.
func openat2(dirfd int, path string, flags int, mode uint32, resolve uint64) (int, error) {
	how := &unix.OpenHow{
		Flags:   uint64(flags | unix.O_CLOEXEC),
		Resolve: resolve,
	}
	if (flags & (unix.O_CREAT | unix.O_TMPFILE)) != 0 {
		how.Mode = uint64(mode)
	}
	for {
		fd, err := unix.Openat2(dirfd, path, how)
		switch err {
		case EINTR, EAGAIN:
			continue
		}
		return fd, err
	}
}

func fstat(fd int, stat *unix.Stat_t) error {
	return ignoreEINTR(func() error { return unix.Fstat(fd, stat) })
}

func fstatat(dirfd int, path string, stat *unix.Stat_t, flags int) error {
	return ignoreEINTR(func() error { return unix.Fstatat(dirfd, path, stat, flags) })
}

func statx(dirfd int, path string, flags, mask int, stat *unix.Statx_t) error {
	return ignoreEINTR(func() error { return unix.Statx(dirfd, path, flags, mask, stat) })
}

func fsync(fd int) error {
	return ignoreEINTR(func() error { return unix.Fsync(fd) })
}

func fchmodat(dirfd int, path string, mode uint32) error {
	return ignoreEINTR(func() error { return unix.Fchmodat(dirfd, path, mode, 0) })
}

func readlinkat(dirfd int, path string, buf []byte) (int, error) {
	return ignoreEINTR2(func() (int, error) { return unix.Readlinkat(dirfd, path, buf) })
}

func utimensat(dirfd int, path string, ts *[2]unix.Timespec, flags int) error {
	return ignoreEINTR(func() error { return unix.UtimesNanoAt(dirfd, path, ts[:], flags) })
}

func mkdirat(dirfd int, path string, mode uint32) error {
	return ignoreEINTR(func() error { return unix.Mkdirat(dirfd, path, mode) })
}

func linkat(olddirfd int, oldpath string, newdirfd int, newpath string, flags int) error {
	return ignoreEINTR(func() error { return unix.Linkat(olddirfd, oldpath, newdirfd, newpath, flags) })
}

func renameat(olddirfd int, oldpath string, newdirfd int, newpath string) error {
	return ignoreEINTR(func() error { return unix.Renameat(olddirfd, oldpath, newdirfd, newpath) })
}

func symlinkat(target string, dirfd int, path string) error {
	return ignoreEINTR(func() error { return unix.Symlinkat(target, dirfd, path) })
}

func unlinkat(dirfd int, path string, flags int) error {
	return ignoreEINTR(func() error { return unix.Unlinkat(dirfd, path, flags) })
}

func getdents(fd int, buf []byte) (int, error) {
	return ignoreEINTR2(func() (int, error) { return unix.ReadDirent(fd, buf) })
}

func lgetxattr(path, name string, buf []byte) (int, error) {
	return ignoreEINTR2(func() (int, error) { return unix.Lgetxattr(path, name, buf) })
}

func llistxattr(path string, buf []byte) (int, error) {
	return ignoreEINTR2(func() (int, error) { return unix.Llistxattr(path, buf) })
}

func lsetxattr(path, name string, value []byte) error {
	return ignoreEINTR(func() error { return unix.Lsetxattr(path, name, value, 0) })
}
