//go:build linux

package capfs

import (
	"io"
	"io/fs"
	"path"

	"golang.org/x/exp/slices"
)

// WalkResult is returned by WalkFunc to control the traversal.
type WalkResult int

const (
	// WalkContinue moves on to the next entry, descending into the entry
	// first if it is a directory.
	WalkContinue WalkResult = iota
	// WalkSkipSubtree does not descend into the entry if it is a directory
	// and moves on to its next sibling. It has no effect on other entries.
	WalkSkipSubtree
	// WalkAbort terminates the walk immediately. Walk returns nil.
	WalkAbort
	// WalkBreak behaves like WalkSkipSubtree on directories and like
	// WalkAbort on any other entry.
	WalkBreak
)

func (r WalkResult) String() string {
	switch r {
	case WalkContinue:
		return "continue"
	case WalkSkipSubtree:
		return "skip-subtree"
	case WalkAbort:
		return "abort"
	case WalkBreak:
		return "break"
	default:
		return "unknown"
	}
}

// WalkConfig configures Walk.
type WalkConfig struct {
	// When set, the entries of each directory are sorted with this function
	// before being visited. The function returns a negative number when a
	// sorts before b, a positive number when a sorts after b, and zero when
	// their order does not matter.
	Sort func(a, b DirEntry) int
	// When true, directories on a filesystem other than the one of the walk
	// root are not visited.
	NoXDev bool
	// Prefix prepended to the paths reported in WalkEntry.Path. It has no
	// effect on how entries are looked up.
	PathPrefix string
}

// SortByName is a WalkConfig.Sort function ordering entries by name.
func SortByName(a, b DirEntry) int {
	switch {
	case a.name < b.name:
		return -1
	case a.name > b.name:
		return +1
	default:
		return 0
	}
}

// WalkEntry describes an entry visited by Walk. The value passed to the
// WalkFunc is only valid for the duration of the call.
type WalkEntry struct {
	// Path of the entry relative to the walk root, prefixed with
	// WalkConfig.PathPrefix.
	Path string
	// Directory containing the entry.
	Dir *Dir
	// Name of the entry in Dir.
	Name string
	// Type of the entry, symbolic links are not followed.
	Type fs.FileMode
	// Entry is the raw directory entry.
	Entry DirEntry
}

// WalkFunc is the type of functions called by Walk for each entry.
//
// Returning an error stops the walk; Walk then returns the error unchanged.
type WalkFunc func(*WalkEntry) (WalkResult, error)

// Walk walks the tree rooted at d depth-first, calling fn for each entry
// found. The root itself is not passed to fn.
//
// Symbolic links are reported but never followed. Walk returns nil if fn
// interrupts the walk with WalkAbort or WalkBreak, or if all entries were
// visited; any error reading directories terminates the walk and is returned.
func (d *Dir) Walk(config WalkConfig, fn WalkFunc) error {
	w := walker{config: &config, fn: fn}
	_, err := w.walk(d, config.PathPrefix)
	return err
}

type walker struct {
	config *WalkConfig
	fn     WalkFunc
	entry  WalkEntry
}

// walk visits the entries of dir, returning true if the walk was aborted.
func (w *walker) walk(dir *Dir, prefix string) (bool, error) {
	if w.config.Sort != nil {
		entries, err := dir.ReadDir()
		if err != nil {
			return true, err
		}
		slices.SortStableFunc(entries, func(a, b DirEntry) bool {
			return w.config.Sort(a, b) < 0
		})
		for _, entry := range entries {
			if stop, err := w.visit(dir, prefix, entry); stop || err != nil {
				return true, err
			}
		}
		return false, nil
	}

	it, err := dir.Entries()
	if err != nil {
		return true, err
	}
	defer it.Close()

	for {
		entry, err := it.Next()
		if err != nil {
			if err == io.EOF {
				return false, nil
			}
			return true, err
		}
		if stop, err := w.visit(dir, prefix, entry); stop || err != nil {
			return true, err
		}
	}
}

func (w *walker) visit(dir *Dir, prefix string, entry DirEntry) (bool, error) {
	w.entry = WalkEntry{
		Path:  path.Join(prefix, entry.name),
		Dir:   dir,
		Name:  entry.name,
		Type:  entry.typ,
		Entry: entry,
	}

	res, err := w.fn(&w.entry)
	if err != nil {
		return true, err
	}

	isDir := entry.IsDir()
	switch res {
	case WalkAbort:
		return true, nil
	case WalkBreak:
		return !isDir, nil
	case WalkSkipSubtree:
		return false, nil
	}
	if !isDir {
		return false, nil
	}

	entryPath := w.entry.Path
	var child *Dir
	if w.config.NoXDev {
		child, err = dir.OpenDirNoxdev(entry.name)
		if child == nil && err == nil {
			return false, nil
		}
	} else {
		child, err = dir.openChild(entry.name)
	}
	if err != nil {
		return true, err
	}
	defer child.Close()
	return w.walk(child, entryPath)
}
