//go:build linux

package capfs

import (
	"errors"
	"io/fs"

	"golang.org/x/exp/slices"
	"golang.org/x/sys/unix"
)

// EnsureDir creates a directory at name unless it already exists. The method
// returns true when it created the directory.
//
// If name exists and is not a directory, the method fails with ErrNotDir.
// Symbolic links are not followed, a link to a directory is not a directory.
func (d *Dir) EnsureDir(name string, perm fs.FileMode) (bool, error) {
	err := d.Mkdir(name, perm)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return false, err
	}
	info, err := d.Lstat(name)
	if err != nil {
		return false, err
	}
	if !info.IsDir() {
		return false, &fs.PathError{Op: "mkdir", Path: d.join(name), Err: ErrNotDir}
	}
	return false, nil
}

// IsMountpoint reports whether the directory at name is the root of a mount.
// The second return value is false if the kernel cannot tell.
func (d *Dir) IsMountpoint(name string) (isMountpoint, ok bool, err error) {
	var stat unix.Statx_t
	err = d.at("statx", name, func(dirfd int, base string) error {
		return statx(dirfd, base, unix.AT_SYMLINK_NOFOLLOW|unix.AT_NO_AUTOMOUNT, 0, &stat)
	})
	if err != nil {
		return false, false, err
	}
	if (stat.Attributes_mask & unix.STATX_ATTR_MOUNT_ROOT) == 0 {
		return false, false, nil
	}
	return (stat.Attributes & unix.STATX_ATTR_MOUNT_ROOT) != 0, true, nil
}

// OpenDirNoxdev opens the directory at name, unless the path crosses a mount
// point, in which case it returns a nil directory and no error.
func (d *Dir) OpenDirNoxdev(name string) (*Dir, error) {
	const resolve = unix.RESOLVE_BENEATH | unix.RESOLVE_NO_MAGICLINKS

	fd, err := openat2(d.fd, name, openDirFlags, 0, resolve|unix.RESOLVE_NO_XDEV)
	switch err {
	case nil:
		return &Dir{fd: fd, name: d.join(name)}, nil
	case EXDEV:
		// The kernel reports both escaping the directory and crossing a mount
		// point with EXDEV, retry without RESOLVE_NO_XDEV to tell them apart.
		fd, err = openat2(d.fd, name, openPathFlags, 0, resolve)
		if err == nil {
			closeTraceError(fd)
			return nil, nil
		}
		if err == EXDEV {
			err = ErrEscape
		}
	case ENOSYS:
		err = ErrUnsupported
	}
	return nil, &fs.PathError{Op: "open", Path: d.join(name), Err: err}
}

// UpdateTimestamps sets the access and modification times of the file at name
// to the current time. Symbolic links are not followed.
func (d *Dir) UpdateTimestamps(name string) error {
	ts := [2]unix.Timespec{
		{Nsec: unix.UTIME_NOW},
		{Nsec: unix.UTIME_NOW},
	}
	return d.at("utimensat", name, func(dirfd int, base string) error {
		return utimensat(dirfd, base, &ts, unix.AT_SYMLINK_NOFOLLOW)
	})
}

// FilenamesSorted returns the names of the entries in the directory, sorted
// in lexical order.
func (d *Dir) FilenamesSorted() ([]string, error) {
	return d.FilenamesFilteredSorted(nil)
}

// FilenamesFilteredSorted is like FilenamesSorted but only returns the names
// of the entries for which keep returns true. A nil keep function retains all
// entries.
func (d *Dir) FilenamesFilteredSorted(keep func(DirEntry) bool) ([]string, error) {
	entries, err := d.ReadDir()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if keep == nil || keep(entry) {
			names = append(names, entry.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}
