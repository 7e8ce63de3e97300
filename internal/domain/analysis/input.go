package analysis

import (
	"strings"
	"unicode/utf8"
)

const (
	// MinInputLen is the shortest trimmed text accepted as an ingredient list.
	MinInputLen = 10
	// MaxInputLen is the longest trimmed text accepted.
	MaxInputLen = 5000
)

// ValidateInput trims raw ingredient text and enforces length bounds.
// Pure function: no I/O, same verdict for the same input every time.
func ValidateInput(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", &ValidationError{Msg: "ingredient text is required"}
	}
	n := utf8.RuneCountInString(text)
	if n < MinInputLen {
		return "", &ValidationError{Msg: "ingredient text is too short to be a complete list (minimum 10 characters)"}
	}
	if n > MaxInputLen {
		return "", &ValidationError{Msg: "ingredient text is too long (maximum 5000 characters)"}
	}
	return text, nil
}
