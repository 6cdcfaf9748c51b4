package utils

import "strings"

// SafeRedirect returns next when it is a local absolute path and def
// otherwise. Scheme-relative ("//host") and backslash tricks are refused.
func SafeRedirect(next, def string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") {
		return def
	}
	if strings.HasPrefix(next, "//") || strings.Contains(next, "\\") || strings.Contains(next, "://") {
		return def
	}
	return next
}
