//go:build linux

// Package capfs provides capability-oriented filesystem primitives for Linux.
//
// Every operation starts from a *Dir, an owned handle on an open directory.
// Paths given to a Dir are always interpreted relative to it: absolute paths,
// ".." components climbing above the handle, and symbolic links pointing
// outside of it are refused with ErrEscape. No function of this package
// resolves a path against the process working directory, with the exception
// of the constructors whose name contains "Ambient".
//
// On top of the handle, the package offers:
//
//   - optional variants of common operations, reporting absent files as a
//     value rather than an error (OpenOptional, StatOptional, ...)
//   - RootDir, which resolves every symbolic link as if the directory was the
//     root of the filesystem
//   - atomic file replacement (AtomicReplaceWith, AtomicWrite, ...)
//   - LinkableTempfile, an anonymous file which is given a name only once its
//     content is complete
//   - extended attributes (Getxattr, Listxattr, Setxattr)
//   - a recursive walker (Walk) which never follows symbolic links and can stop
//     at mount boundaries
package capfs

import (
	"io/fs"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	// ErrEscape is returned when a path would resolve to a location outside
	// of the directory it was given to.
	ErrEscape error = &sentinelError{"a path led outside of the filesystem", fs.ErrPermission}

	// ErrNoFileName is returned when a path given to an operation creating a
	// file does not end with a file name.
	ErrNoFileName error = &sentinelError{"no file name", fs.ErrInvalid}

	// ErrNotDir is returned by EnsureDir when the path exists and is not a
	// directory.
	ErrNotDir error = &sentinelError{"found non-directory", ENOTDIR}

	// ErrTooManyTempfiles is returned when no unused temporary file name could
	// be found.
	ErrTooManyTempfiles error = &sentinelError{"too many temporary files exist", fs.ErrExist}

	// ErrUnsupported is returned when the kernel does not support a feature
	// that an operation requires.
	ErrUnsupported error = &sentinelError{"operation not supported by the kernel", ENOSYS}
)

type sentinelError struct {
	msg string
	is  error
}

func (e *sentinelError) Error() string { return e.msg }

func (e *sentinelError) Is(target error) bool { return target == e.is }

var logger atomic.Pointer[zap.Logger]

// Logger returns the package logger. It is a no-op logger unless SetLogger
// was called.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// SetLogger configures the logger used to report errors that the package
// cannot return to the caller, like failing to remove a temporary file after
// an aborted write.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}
