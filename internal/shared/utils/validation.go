package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

// Size limits (in bytes)
const (
	MaxSubmissionSize = 256 * 1024 // Learner code
	MaxSkeletonSize   = 512 * 1024 // Analyzer input over the API
	MaxMessageSize    = 1 * 1024 * 1024
)

// String length limits
const (
	MaxIDLength      = 128
	MaxPatternLength = 96
	MaxNameLength    = 256
)

var (
	// SafeIDPattern allows alphanumeric, hyphens, underscores
	SafeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// PatternIDPattern allows lowercase slugs such as "debounced-search"
	PatternIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
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

// ValidateID validates an ID field
func ValidateID(id, fieldName string, required bool) error {
	if err := ValidateString(id, fieldName, 1, MaxIDLength, required); err != nil {
		return err
	}

	if id != "" && !SafeIDPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (only alphanumeric, hyphens, and underscores allowed)", fieldName)
	}

	return nil
}

// ValidateExerciseKey validates a framework and pattern pair
func ValidateExerciseKey(framework, pattern string) error {
	if !types.FrameworkID(framework).Valid() {
		return fmt.Errorf("unknown framework %q", framework)
	}
	if err := ValidateString(pattern, "pattern", 1, MaxPatternLength, true); err != nil {
		return err
	}
	if !PatternIDPattern.MatchString(pattern) {
		return fmt.Errorf("pattern contains invalid characters (lowercase letters, digits, dots, hyphens, underscores)")
	}
	return nil
}

// ValidateSource validates a code payload against a byte limit.
// Empty code is allowed: grading it simply fails every predicate.
func ValidateSource(code, fieldName string, maxBytes int) error {
	if len(code) > maxBytes {
		return fmt.Errorf("%s size %d bytes exceeds maximum %d bytes", fieldName, len(code), maxBytes)
	}
	if !utf8.ValidString(code) {
		return fmt.Errorf("%s is not valid UTF-8", fieldName)
	}
	if strings.Contains(code, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}
	return nil
}
