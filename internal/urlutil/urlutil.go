// Package urlutil joins site-relative paths onto a base URL.
package urlutil

import "strings"

// Join builds an absolute URL from base and path. Absolute paths are
// returned unchanged; an empty path yields the normalized base.
func Join(base, path string) string {
	base = Normalize(base)
	if path == "" {
		return base
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return base + path
	}
	return base + "/" + path
}

// Normalize trims whitespace and trailing slashes from base.
func Normalize(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/")
}
