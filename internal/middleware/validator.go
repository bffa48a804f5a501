package middleware

import (
	"fmt"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

// Media payload ceilings; anything larger is rejected before staging.
const (
	MaxTextLen     = 8 * 1024
	MaxVoiceBytes  = 8 << 20 // 8 MiB
	MaxImageBytes  = 5 << 20 // 5 MiB
	MaxVoiceSecs   = 300
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ValidateTenantID validates tenant ID format
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}
	if !idPattern.MatchString(tenant) {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateSubjectID validates student/subject identifiers
func ValidateSubjectID(subject string) error {
	if subject == "" {
		return fmt.Errorf("subject ID cannot be empty")
	}
	if !idPattern.MatchString(subject) {
		return fmt.Errorf("invalid subject ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateEntryID validates triage entry ID format
func ValidateEntryID(id string) error {
	if id == "" {
		return fmt.Errorf("entry ID cannot be empty")
	}

	// UUID with kind suffix: uuid-triage
	pattern := `^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}-.+$`
	matched, _ := regexp.MatchString(pattern, id)
	if !matched {
		return fmt.Errorf("invalid entry ID format")
	}
	return nil
}

// ValidateTextInput bounds free-form check-in text
func ValidateTextInput(text string) error {
	if len(text) > MaxTextLen {
		return fmt.Errorf("text input exceeds %d bytes", MaxTextLen)
	}
	return nil
}

// ValidateMediaSize bounds a binary payload
func ValidateMediaSize(kind string, size, max int) error {
	if size > max {
		return fmt.Errorf("%s payload exceeds %d bytes", kind, max)
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

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
