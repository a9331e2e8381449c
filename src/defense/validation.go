// Package defense validates and sanitizes untrusted patient messages
// before they reach any model call: length/content validation, prompt
// injection detection, and whitespace/control-character sanitization.
package defense

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Reason identifies why a message failed validation.
type Reason string

const (
	ReasonTooLong             Reason = "too_long"
	ReasonEmpty               Reason = "empty"
	ReasonExcessiveRepetition Reason = "excessive_repetition"
	ReasonUnauthorizedAccess  Reason = "unauthorized_access_request"
)

// ValidationError is a caller-facing rejection of an input message.
// The request is refused before any tokens are spent.
type ValidationError struct {
	Reason Reason
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

// Repetition thresholds: messages longer than repetitionMinWords are
// checked for token bombing; the word/unique-word ratio must not exceed
// maxRepetitionRatio.
const (
	repetitionMinWords = 10
	maxRepetitionRatio = 25.0
)

// accessPhrases is a fixed blocklist of third-party data-access phrases.
// Matched case-insensitively as plain substrings, independent of the
// injection scanner.
var accessPhrases = []string{
	"their medical records",
	"their medical data",
	"partner's records",
	"partner's medical records",
	"husband's records",
	"wife's records",
	"someone else's records",
	"someone else's medical",
	"someone else's fertility",
	"other people's records",
	"other people's medical",
	"access to her records",
	"access to his records",
}

// Validate checks an untrusted message and returns the trimmed text on
// success. Failures are *ValidationError with a typed Reason.
func Validate(message string, maxLength int) (string, error) {
	if utf8.RuneCountInString(message) > maxLength {
		return "", &ValidationError{
			Reason: ReasonTooLong,
			Detail: fmt.Sprintf("message exceeds maximum length of %d characters", maxLength),
		}
	}

	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return "", &ValidationError{
			Reason: ReasonEmpty,
			Detail: "message cannot be empty or whitespace only",
		}
	}

	if err := checkRepetition(trimmed); err != nil {
		return "", err
	}

	lower := strings.ToLower(trimmed)
	for _, phrase := range accessPhrases {
		if strings.Contains(lower, phrase) {
			return "", &ValidationError{
				Reason: ReasonUnauthorizedAccess,
				Detail: "message requests access to another person's data",
			}
		}
	}

	return trimmed, nil
}

// checkRepetition rejects degenerate repeated input (token bombing) by
// comparing total word count against unique word count.
func checkRepetition(message string) error {
	words := strings.Fields(message)
	if len(words) <= repetitionMinWords {
		return nil
	}

	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}

	ratio := float64(len(words)) / float64(len(unique))
	if ratio > maxRepetitionRatio {
		return &ValidationError{
			Reason: ReasonExcessiveRepetition,
			Detail: "message contains excessive repetition",
		}
	}
	return nil
}
