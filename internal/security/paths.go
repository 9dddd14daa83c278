// Package security provides filename and path checks applied before any
// user-supplied name reaches a cloud provider request or the local disk.
package security

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var allowedFilename = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// MaxFilenameLength bounds names sent to providers.
const MaxFilenameLength = 255

// ValidateFilename checks a backup filename against the strict allow-list
// (letters, digits, '_', '-', '.'). Query-based providers call it before
// interpolating the name into a search expression.
func ValidateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("invalid filename: empty")
	}
	if len(name) > MaxFilenameLength {
		return fmt.Errorf("invalid filename: longer than %d characters", MaxFilenameLength)
	}
	if !allowedFilename.MatchString(name) {
		return fmt.Errorf("invalid filename %q: only letters, digits, '_', '-' and '.' are allowed", name)
	}
	if strings.Contains(name, "..") || name == "." {
		return fmt.Errorf("invalid filename %q: path traversal detected", name)
	}
	return nil
}

// SanitizeFilename strips traversal sequences, directory separators and any
// character outside the allow-list. Path-based providers use the result as
// the last component of the blob path.
func SanitizeFilename(name string) string {
	cleaned := name
	for {
		next := strings.NewReplacer("../", "", `..\`, "").Replace(cleaned)
		if next == cleaned {
			break
		}
		cleaned = next
	}
	cleaned = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '_' || r == '-' || r == '.':
			return r
		default:
			return -1
		}
	}, cleaned)
	for strings.Contains(cleaned, "..") {
		cleaned = strings.ReplaceAll(cleaned, "..", ".")
	}
	cleaned = strings.Trim(cleaned, ".")
	if len(cleaned) > MaxFilenameLength {
		cleaned = cleaned[:MaxFilenameLength]
	}
	return cleaned
}

// SanitizePath cleans and validates a file path to prevent path traversal attacks.
// It ensures the path doesn't escape the base directory.
func SanitizePath(basePath, userPath string) (string, error) {
	cleanBase := filepath.Clean(basePath)
	cleanFull := filepath.Clean(filepath.Join(cleanBase, userPath))

	if cleanFull != cleanBase && !strings.HasPrefix(cleanFull, cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %s escapes base %s", userPath, basePath)
	}

	return cleanFull, nil
}

// IsPathSafe checks if a filename contains any suspicious path traversal characters.
func IsPathSafe(filename string) bool {
	dangerous := []string{
		"..",
		"/",
		`\`,
		":",
	}

	for _, pattern := range dangerous {
		if strings.Contains(filename, pattern) {
			return false
		}
	}

	return true
}
