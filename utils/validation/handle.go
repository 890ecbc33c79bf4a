package validation

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
)

// Handle rules: 3-15 chars, lowercase letters/digits/underscores, must start
// with a letter, no trailing underscore, no consecutive underscores.

var (
	startsWithLetter = regexp.MustCompile(`^[a-z]`)
	handlePattern    = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	invalidChars     = regexp.MustCompile(`[^a-z0-9_]`)
	repeatUnderscore = regexp.MustCompile(`__+`)
	nonAlphanumeric  = regexp.MustCompile(`[^a-z0-9]`)
	whitespace       = regexp.MustCompile(`\s+`)
)

// HandleResult is the outcome of a format check. Error holds the first
// violated rule's message when IsValid is false.
type HandleResult struct {
	IsValid bool   `json:"is_valid"`
	Error   string `json:"error,omitempty"`
}

// ValidateHandleFormat checks a handle against the format rules, in order,
// and reports the first violation.
func ValidateHandleFormat(handle string) HandleResult {
	if handle == "" {
		return HandleResult{Error: "Handle is required"}
	}
	if len(handle) < 3 {
		return HandleResult{Error: "Handle must be at least 3 characters"}
	}
	if len(handle) > 15 {
		return HandleResult{Error: "Handle must be 15 characters or less"}
	}
	if !startsWithLetter.MatchString(handle) {
		return HandleResult{Error: "Handle must start with a letter"}
	}
	if !handlePattern.MatchString(handle) {
		return HandleResult{Error: "Handle can only contain lowercase letters, numbers, and underscores"}
	}
	if strings.HasSuffix(handle, "_") {
		return HandleResult{Error: "Handle cannot end with an underscore"}
	}
	if strings.Contains(handle, "__") {
		return HandleResult{Error: "Handle cannot have consecutive underscores"}
	}
	return HandleResult{IsValid: true}
}

// SanitizeHandle cleans up live input: lowercase, strip invalid characters,
// collapse repeated underscores, cap at 15 chars. It does not validate.
func SanitizeHandle(input string) string {
	s := strings.ToLower(input)
	s = invalidChars.ReplaceAllString(s, "")
	s = repeatUnderscore.ReplaceAllString(s, "_")
	if len(s) > 15 {
		s = s[:15]
	}
	return s
}

// fallbackSuggestions is returned when a name yields no usable base.
var fallbackSuggestions = []string{"rider123", "biker456", "moto789"}

// GenerateHandleSuggestions derives up to 5 candidate handles from a display
// name. Suggestions carry no uniqueness guarantee and must still pass the
// availability check before use.
func GenerateHandleSuggestions(name string) []string {
	base := strings.ToLower(name)
	base = whitespace.ReplaceAllString(base, "")
	base = nonAlphanumeric.ReplaceAllString(base, "")
	if len(base) > 12 {
		base = base[:12]
	}

	if base == "" || !startsWithLetter.MatchString(base) {
		out := make([]string, len(fallbackSuggestions))
		copy(out, fallbackSuggestions)
		return out
	}

	suggestions := []string{base}
	suggestions = append(suggestions, base+strconv.Itoa(rand.Intn(100)))
	suggestions = append(suggestions, base+strconv.Itoa(rand.Intn(1000)))
	if len(base) <= 11 {
		suggestions = append(suggestions, base+"_moto", base+"_ride")
	}
	if len(suggestions) > 5 {
		suggestions = suggestions[:5]
	}
	return suggestions
}
