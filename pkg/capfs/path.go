//go:build linux

package capfs

import (
	"strings"
)

// cleanPath is like path.Clean but it preserves parent directory references;
// a ".." following a symbolic link does not cancel the previous component.
func cleanPath(path string) string {
	if path == "" {
		return "."
	}
	parts := make([]string, 0, 16)
	if isAbs(path) {
		parts = append(parts, "")
	}
	for {
		path = trimLeadingSlash(path)
		if path == "" {
			if len(parts) == 0 {
				return "."
			}
			if len(parts) == 1 && parts[0] == "" {
				return "/"
			}
			return strings.Join(parts, "/")
		}
		var elem string
		if i := strings.IndexByte(path, '/'); i < 0 {
			elem = path
			path = ""
		} else {
			elem = path[:i]
			path = path[i:]
		}
		if elem != "." {
			parts = append(parts, elem)
		}
	}
}

// splitPath splits a clean relative path into the directory containing its
// last component and the component itself. The directory is "." when the path
// has a single component.
func splitPath(path string) (dir, base string) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return ".", path
	}
	return path[:i], path[i+1:]
}

// walkPath returns the first component of a clean relative path and the
// remainder, which is empty when path has a single component.
func walkPath(path string) (elem, rest string) {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i], path[i+1:]
	}
	return path, ""
}

// hasUplink reports whether any component of path is "..".
func hasUplink(path string) bool {
	for path != "" {
		var elem string
		if i := strings.IndexByte(path, '/'); i < 0 {
			elem, path = path, ""
		} else {
			elem, path = path[:i], path[i+1:]
		}
		if elem == ".." {
			return true
		}
	}
	return false
}

func joinPath(dir, name string) string {
	return trimTrailingSlash(dir) + "/" + trimLeadingSlash(name)
}

func trimLeadingSlash(s string) string {
	i := 0
	for i < len(s) && s[i] == '/' {
		i++
	}
	return s[i:]
}

func trimTrailingSlash(s string) string {
	i := len(s)
	for i > 0 && s[i-1] == '/' {
		i--
	}
	return s[:i]
}

func isAbs(path string) bool {
	return len(path) > 0 && path[0] == '/'
}
