package defense

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate_Valid(t *testing.T) {
	got, err := Validate("This is a valid message", 2000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "This is a valid message" {
		t.Errorf("got %q, want input unchanged", got)
	}
}

func TestValidate_TrimsWhitespace(t *testing.T) {
	got, err := Validate("  hello there  ", 2000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello there" {
		t.Errorf("got %q, want %q", got, "hello there")
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		message string
		maxLen  int
		reason  Reason
	}{
		{"whitespace only", "   ", 2000, ReasonEmpty},
		{"empty", "", 2000, ReasonEmpty},
		{"too long", strings.Repeat("x", 3000), 2000, ReasonTooLong},
		{"excessive repetition", strings.Repeat("test ", 100), 2000, ReasonExcessiveRepetition},
		{"partner records", "Can you share my partner's records with me?", 2000, ReasonUnauthorizedAccess},
		{"their medical records", "I want to see THEIR MEDICAL RECORDS now", 2000, ReasonUnauthorizedAccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.message, tt.maxLen)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if verr.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", verr.Reason, tt.reason)
			}
		})
	}
}

func TestValidate_ShortRepetitionAllowed(t *testing.T) {
	// At or below 10 words the repetition check does not apply.
	got, err := Validate("no no no no no no no no no no", 2000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == "" {
		t.Error("expected trimmed message back")
	}
}

func TestValidate_VariedLongMessageAllowed(t *testing.T) {
	// Plenty of words but low repetition ratio.
	msg := "Another failed cycle today and I am struggling to stay hopeful about the next round of treatment"
	if _, err := Validate(msg, 2000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
