package validation

import (
	"strings"
	"testing"
)

func TestValidateHandleFormat(t *testing.T) {
	tests := []struct {
		name    string
		handle  string
		valid   bool
		wantErr string
	}{
		{"empty", "", false, "Handle is required"},
		{"too short", "ab", false, "Handle must be at least 3 characters"},
		{"too long", "abcdefghijklmnop", false, "Handle must be 15 characters or less"},
		{"starts with digit", "3rider", false, "Handle must start with a letter"},
		{"starts with underscore", "_rider", false, "Handle must start with a letter"},
		{"uppercase", "Rider", false, "Handle must start with a letter"},
		{"invalid character", "john-doe", false, "Handle can only contain lowercase letters, numbers, and underscores"},
		{"consecutive underscores", "john__doe", false, "Handle cannot have consecutive underscores"},
		{"trailing underscore", "john_", false, "Handle cannot end with an underscore"},
		{"valid plain", "johnrider", true, ""},
		{"valid with underscore", "john_doe", true, ""},
		{"valid with digits", "rider42", true, ""},
		{"valid minimum length", "abc", true, ""},
		{"valid maximum length", "abcdefghijklmno", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateHandleFormat(tt.handle)
			if result.IsValid != tt.valid {
				t.Fatalf("ValidateHandleFormat(%q).IsValid = %v, want %v", tt.handle, result.IsValid, tt.valid)
			}
			if !tt.valid && result.Error != tt.wantErr {
				t.Errorf("ValidateHandleFormat(%q).Error = %q, want %q", tt.handle, result.Error, tt.wantErr)
			}
			if tt.valid && result.Error != "" {
				t.Errorf("ValidateHandleFormat(%q) returned error %q for valid handle", tt.handle, result.Error)
			}
		})
	}
}

func TestSanitizeHandle(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"John Doe", "johndoe"},
		{"JOHN__DOE", "john_doe"},
		{"rider!!!42", "rider42"},
		{"a___b___c", "a_b_c"},
		{"abcdefghijklmnopqrst", "abcdefghijklmno"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		if got := SanitizeHandle(tt.input); got != tt.want {
			t.Errorf("SanitizeHandle(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestGenerateHandleSuggestionsFromName(t *testing.T) {
	suggestions := GenerateHandleSuggestions("John Rider")
	if len(suggestions) == 0 || len(suggestions) > 5 {
		t.Fatalf("expected 1-5 suggestions, got %d", len(suggestions))
	}
	if suggestions[0] != "johnrider" {
		t.Errorf("expected base suggestion %q, got %q", "johnrider", suggestions[0])
	}
	for _, s := range suggestions {
		if !strings.HasPrefix(s, "johnrider") {
			t.Errorf("suggestion %q does not derive from the name", s)
		}
	}
}

func TestGenerateHandleSuggestionsFallback(t *testing.T) {
	for _, name := range []string{"", "123", "!!!", "42nd Street"} {
		suggestions := GenerateHandleSuggestions(name)
		want := []string{"rider123", "biker456", "moto789"}
		if len(suggestions) != len(want) {
			t.Fatalf("GenerateHandleSuggestions(%q) = %v, want fallback list", name, suggestions)
		}
		for i := range want {
			if suggestions[i] != want[i] {
				t.Errorf("GenerateHandleSuggestions(%q)[%d] = %q, want %q", name, i, suggestions[i], want[i])
			}
		}
	}
}

func TestGenerateHandleSuggestionsLongName(t *testing.T) {
	// Base is truncated to 12 chars; at that length the themed suffixes
	// would overflow the handle limit and are skipped.
	suggestions := GenerateHandleSuggestions("Bartholomew Kuzminski")
	if suggestions[0] != "bartholomewk" {
		t.Fatalf("expected truncated base %q, got %q", "bartholomewk", suggestions[0])
	}
	for _, s := range suggestions {
		if strings.HasSuffix(s, "_moto") || strings.HasSuffix(s, "_ride") {
			t.Errorf("themed suffix present for long base: %q", s)
		}
	}
}
