package util

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
)

// IsValidAudioFile checks if a filename has a valid audio extension
func IsValidAudioFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	validExts := []string{".mp3", ".wav", ".aiff", ".aif", ".m4a", ".flac", ".ogg"}

	for _, validExt := range validExts {
		if ext == validExt {
			return true
		}
	}
	return false
}

// ValidateFilename checks if a display filename is valid.
// Filename is required and cannot contain directory separators.
// Must be <= 255 chars.
func ValidateFilename(filename string) error {
	if filename == "" {
		return errors.New("filename is required")
	}
	if strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
		return errors.New("filename cannot contain directory paths")
	}
	if len(filename) > 255 {
		return errors.New("filename too long (max 255 characters)")
	}
	return nil
}

// ValidateString validates a string length
func ValidateString(value, fieldName string, minLen, maxLen int) error {
	if minLen > 0 && len(value) < minLen {
		return errors.New(fieldName + " is too short")
	}
	if maxLen > 0 && len(value) > maxLen {
		return errors.New(fieldName + " is too long")
	}
	return nil
}

// ValidateUUID validates UUID format (basic check)
func ValidateUUID(id string) error {
	if id == "" {
		return errors.New("id is required")
	}
	if len(id) != 36 {
		return errors.New("invalid id format")
	}
	if !regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`).MatchString(id) {
		return errors.New("invalid id format")
	}
	return nil
}

// ValidatePaginationLimit validates pagination limit
func ValidatePaginationLimit(limit int64) error {
	if limit < 1 {
		return errors.New("limit must be at least 1")
	}
	if limit > 1000 {
		return errors.New("limit must be at most 1000")
	}
	return nil
}

// ValidatePaginationOffset validates pagination offset
func ValidatePaginationOffset(offset int64) error {
	if offset < 0 {
		return errors.New("offset must be non-negative")
	}
	return nil
}
