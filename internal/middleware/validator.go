package middleware

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Input validation and sanitization utilities

var backendName = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,64}$`)

// ValidateRequestID checks that id is a UUID as generated on submission.
func ValidateRequestID(id string) error {
	if id == "" {
		return fmt.Errorf("request ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid request ID format")
	}
	return nil
}

// ValidateBackendName validates provider names used in URLs.
func ValidateBackendName(name string) error {
	if !backendName.MatchString(name) {
		return fmt.Errorf("invalid backend name (alphanumeric, dot, dash, underscore only, max 64 chars)")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidatePage parses a 1-based page number.
func ValidatePage(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ValidateLimit validates pagination limit
func ValidateLimit(raw string) int {
	limit, _ := strconv.Atoi(raw)
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
