package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// String length limits
const (
	MaxIDLength      = 128
	MaxGroupIDLength = 128
	MaxGroupCount    = 1024
)

// Regular expressions for validation
var (
	// SafeIDPattern allows alphanumeric, hyphens, underscores
	SafeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// GroupIDPattern additionally allows the '@' and '.' of chat addresses
	// such as 120363025246125486@g.us
	GroupIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._@-]+$`)
)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidateSessionID validates a session id. Session ids name on-disk
// directories, so only path-safe characters are accepted.
func ValidateSessionID(id string) error {
	if err := ValidateString(id, "userId", 1, MaxIDLength, true); err != nil {
		return err
	}

	if !SafeIDPattern.MatchString(id) {
		return fmt.Errorf("userId contains invalid characters (only alphanumeric, hyphens, and underscores allowed)")
	}

	return nil
}

// ValidateGroupIDs validates an allow-list payload
func ValidateGroupIDs(ids []string) error {
	if len(ids) > MaxGroupCount {
		return fmt.Errorf("too many groups (max %d)", MaxGroupCount)
	}

	for i, gid := range ids {
		field := fmt.Sprintf("registeredGroups[%d]", i)
		if err := ValidateString(gid, field, 1, MaxGroupIDLength, true); err != nil {
			return err
		}
		if !GroupIDPattern.MatchString(gid) {
			return fmt.Errorf("%s contains invalid characters", field)
		}
	}

	return nil
}
