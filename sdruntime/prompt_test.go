package sdruntime

import (
	"errors"
	"strings"
	"testing"
)

func TestValidatePrompt(t *testing.T) {
	tests := []struct {
		name    string
		prompt  string
		wantErr bool
	}{
		{"valid prompt", "a cat sitting on a windowsill", false},
		{"empty prompt", "", true},
		{"whitespace only", "   \t\n  ", true},
		{"contains null byte", "hello\x00world", true},
		{"at maximum length", strings.Repeat("a", MaxPromptLength), false},
		{"over maximum length", strings.Repeat("a", MaxPromptLength+1), true},
		{"unicode prompt", "日の出の富士山", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePrompt(tt.prompt)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPrompt) {
					t.Errorf("expected ErrInvalidPrompt, got: %v", err)
				}
			} else if err != nil {
				t.Errorf("expected no error, got: %v", err)
			}
		})
	}
}

func TestSanitizePrompt(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		output string
	}{
		{"trims leading whitespace", "  hello", "hello"},
		{"trims trailing whitespace", "hello  ", "hello"},
		{"trims both", "\t hello world \n", "hello world"},
		{"preserves internal whitespace", "hello  world", "hello  world"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizePrompt(tt.input)
			if got != tt.output {
				t.Errorf("SanitizePrompt(%q) = %q, want %q", tt.input, got, tt.output)
			}
		})
	}
}
