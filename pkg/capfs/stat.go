//go:build linux

package capfs

import (
	"io/fs"
	"path"
	"time"

	"golang.org/x/sys/unix"
)

type fileInfo struct {
	name string
	stat unix.Stat_t
}

func newFileInfo(name string, stat *unix.Stat_t) *fileInfo {
	return &fileInfo{name: path.Base(name), stat: *stat}
}

func (info *fileInfo) Name() string { return info.name }

func (info *fileInfo) Size() int64 { return info.stat.Size }

func (info *fileInfo) Mode() fs.FileMode { return fileModeOf(info.stat.Mode) }

func (info *fileInfo) ModTime() time.Time {
	return time.Unix(info.stat.Mtim.Unix())
}

func (info *fileInfo) IsDir() bool { return info.Mode().IsDir() }

// Sys returns the underlying *unix.Stat_t.
func (info *fileInfo) Sys() any { return &info.stat }

func fileModeOf(mode uint32) fs.FileMode {
	fileMode := fs.FileMode(mode & 0777)

	switch mode & unix.S_IFMT {
	case unix.S_IFREG:
	case unix.S_IFBLK:
		fileMode |= fs.ModeDevice
	case unix.S_IFCHR:
		fileMode |= fs.ModeDevice | fs.ModeCharDevice
	case unix.S_IFDIR:
		fileMode |= fs.ModeDir
	case unix.S_IFIFO:
		fileMode |= fs.ModeNamedPipe
	case unix.S_IFLNK:
		fileMode |= fs.ModeSymlink
	case unix.S_IFSOCK:
		fileMode |= fs.ModeSocket
	default:
		fileMode |= fs.ModeIrregular
	}

	if (mode & unix.S_ISUID) != 0 {
		fileMode |= fs.ModeSetuid
	}
	if (mode & unix.S_ISGID) != 0 {
		fileMode |= fs.ModeSetgid
	}
	if (mode & unix.S_ISVTX) != 0 {
		fileMode |= fs.ModeSticky
	}
	return fileMode
}

// unixMode converts the permission bits of a fs.FileMode to the values
// expected by chmod(2).
func unixMode(mode fs.FileMode) uint32 {
	m := uint32(mode.Perm())
	if (mode & fs.ModeSetuid) != 0 {
		m |= unix.S_ISUID
	}
	if (mode & fs.ModeSetgid) != 0 {
		m |= unix.S_ISGID
	}
	if (mode & fs.ModeSticky) != 0 {
		m |= unix.S_ISVTX
	}
	return m
}
