package claude

import (
	"path/filepath"
	"regexp"
	"strings"
)

// NormalizePath cleans a file path to a canonical form suitable for comparison.
// It resolves ".." components, removes trailing slashes, and normalizes
// separators. Returns an empty string for empty input.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}

var projectDirUnsafe = regexp.MustCompile(`[^A-Za-z0-9-]`)

// ProjectDirName returns the directory name Claude Code uses under
// projects/ for a working directory: every character outside [A-Za-z0-9-]
// becomes a dash, so "/home/me/app" maps to "-home-me-app".
func ProjectDirName(projectPath string) string {
	p := NormalizePath(projectPath)
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return projectDirUnsafe.ReplaceAllString(filepath.ToSlash(p), "-")
}

// DecodeProjectDir is the lossy inverse of ProjectDirName. Dashes inside
// the original path cannot be told apart from separators, so callers prefer
// the cwd recorded in the transcript when one exists.
func DecodeProjectDir(name string) string {
	if !strings.HasPrefix(name, "-") {
		return name
	}
	return strings.ReplaceAll(name, "-", "/")
}
