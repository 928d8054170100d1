// Package pathutil provides path manipulation for slash-separated manifest
// entry paths. Entry paths are absolute: the package root is "/".
package pathutil

import "strings"

// Root is the path of the package root entry.
const Root = "/"

// Clean normalizes an entry path.
//
// It performs the following transformations:
//   - Converts empty string to root: "" → "/"
//   - Adds a leading slash: "a/b" → "/a/b"
//   - Strips trailing slashes: "/a/b/" → "/a/b"
//   - Collapses consecutive slashes: "/a//b" → "/a/b"
//
// It reports false when any element is "." or "..".
func Clean(p string) (string, bool) {
	parts := Segments(p)
	for _, part := range parts {
		if part == "." || part == ".." {
			return "", false
		}
	}
	return "/" + strings.Join(parts, "/"), true
}

// Segments returns the non-empty elements of p.
func Segments(p string) []string {
	fields := strings.Split(p, "/")
	out := fields[:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Base returns the last element of a cleaned path.
// For the root it returns "/".
func Base(p string) string {
	if p == Root || p == "" {
		return Root
	}
	p = strings.TrimSuffix(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Parent returns the parent of a cleaned path.
// The parent of a top-level entry is the root; the root has no parent and
// yields "".
func Parent(p string) string {
	if p == Root || p == "" {
		return ""
	}
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return Root
	}
	return p[:i]
}

// Join appends name to the cleaned directory path dir.
func Join(dir, name string) string {
	if dir == Root || dir == "" {
		return Root + name
	}
	return dir + "/" + name
}

// ValidName reports whether name can be used as a single path element.
func ValidName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.Contains(name, "/")
}

// Rel returns p relative to the root, without the leading slash.
// The root itself yields ".".
func Rel(p string) string {
	if p == Root || p == "" {
		return "."
	}
	return strings.TrimPrefix(p, "/")
}
