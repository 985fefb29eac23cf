package sdruntime

import (
	"fmt"
	"strings"
)

// ValidatePrompt checks a prompt against the bounds the native runtime
// accepts. Prompts cross the C boundary, so embedded null bytes are
// rejected outright.
func ValidatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("%w: prompt cannot be empty", ErrInvalidPrompt)
	}
	if strings.ContainsRune(prompt, '\x00') {
		return fmt.Errorf("%w: prompt contains null bytes", ErrInvalidPrompt)
	}
	if len(prompt) > MaxPromptLength {
		return fmt.Errorf("%w: prompt length %d exceeds maximum %d",
			ErrInvalidPrompt, len(prompt), MaxPromptLength)
	}
	return nil
}

// SanitizePrompt trims surrounding whitespace. Applied before a prompt is
// passed to a backend, logged or stored.
func SanitizePrompt(prompt string) string {
	return strings.TrimSpace(prompt)
}
