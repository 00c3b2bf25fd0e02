package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// uploadCodeRegex matches the short codes that name upload directories.
var uploadCodeRegex = regexp.MustCompile(`^[A-Za-z0-9]{1,32}$`)

// ValidateUploadCode validates the code that names an upload directory.
// Codes are joined onto the upload root, so anything but a short
// alphanumeric token is rejected.
func ValidateUploadCode(code string) error {
	if code == "" {
		return New(ErrCodeInvalidInput, "upload code cannot be empty")
	}
	if !uploadCodeRegex.MatchString(code) {
		return New(ErrCodeInvalidInput, "invalid upload code: %q", code)
	}
	return nil
}

// ValidateFilename validates a source filename for safety.
// It ensures the filename is a simple basename without path components.
//
// Validation rules:
//   - Filename cannot be empty
//   - Maximum length of 255 characters
//   - No null bytes or control characters
//   - No path separators or traversal sequences
//   - No hidden files
func ValidateFilename(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPath, "filename cannot be empty")
	}

	if len(name) > 255 {
		return New(ErrCodeInvalidPath, "filename too long (max 255 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "filename contains invalid control characters")
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidPath, "filename cannot contain path separators")
	}

	if name == ".." || strings.HasPrefix(name, ".") {
		return New(ErrCodeInvalidPath, "filename cannot be a hidden file")
	}

	return nil
}

// ValidatePath validates a relative path for safety.
// It prevents path traversal attacks and ensures reasonable path length.
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}
