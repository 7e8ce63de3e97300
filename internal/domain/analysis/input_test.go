package analysis

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateInput_LengthBoundaries(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		wantOK bool
	}{
		{"empty", "", false},
		{"whitespace only", "   \n\t  ", false},
		{"9 chars", strings.Repeat("a", 9), false},
		{"10 chars", strings.Repeat("a", 10), true},
		{"11 chars", strings.Repeat("a", 11), true},
		{"4999 chars", strings.Repeat("a", 4999), true},
		{"5000 chars", strings.Repeat("a", 5000), true},
		{"5001 chars", strings.Repeat("a", 5001), false},
		{"9 chars after trim", "  " + strings.Repeat("a", 9) + "  ", false},
		{"10 chars after trim", "  " + strings.Repeat("a", 10) + "  ", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateInput(tc.input)
			if tc.wantOK {
				if err != nil {
					t.Fatalf("ValidateInput(%q len=%d) unexpected error: %v", tc.name, len(tc.input), err)
				}
				if got != strings.TrimSpace(tc.input) {
					t.Errorf("expected trimmed input back, got %q", got)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateInput(%q len=%d) expected error, got none", tc.name, len(tc.input))
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected *ValidationError, got %T", err)
			}
		})
	}
}

func TestValidateInput_BoundaryMessages(t *testing.T) {
	_, err := ValidateInput("too short")
	if err == nil || !strings.Contains(err.Error(), "too short") {
		t.Errorf("expected 'too short' message, got %v", err)
	}

	_, err = ValidateInput(strings.Repeat("a", 5001))
	if err == nil || !strings.Contains(err.Error(), "too long") {
		t.Errorf("expected 'too long' message, got %v", err)
	}
}

func TestValidateInput_Idempotent(t *testing.T) {
	input := "  Water, Sugar, Citric Acid  "

	first, err1 := ValidateInput(input)
	second, err2 := ValidateInput(input)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if first != second {
		t.Errorf("same input produced different results: %q vs %q", first, second)
	}

	// Validating its own output changes nothing.
	again, err := ValidateInput(first)
	if err != nil {
		t.Fatalf("revalidation failed: %v", err)
	}
	if again != first {
		t.Errorf("revalidation changed the text: %q vs %q", again, first)
	}
}

func TestValidateInput_CountsRunesNotBytes(t *testing.T) {
	// 10 multi-byte runes must pass even though the byte length is larger.
	input := strings.Repeat("é", 10)
	if _, err := ValidateInput(input); err != nil {
		t.Errorf("expected 10 runes to pass, got %v", err)
	}
}
