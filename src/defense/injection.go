package defense

import (
	"fmt"
	"regexp"
	"strings"
)

// builtInPatterns are regex patterns matching common prompt injection
// phrasing: instruction overrides, role hijacks, delimiter markers,
// prompt exfiltration, and explicit score manipulation. All are compiled
// with the case-insensitive flag. Order is fixed so matched pattern lists
// are stable for audit.
var builtInPatterns = []string{
	`ignore\s+(previous|above|prior)\s+instructions?`,
	`disregard\s+(previous|above|prior)\s+instructions?`,
	`forget\s+(previous|above|prior)\s+instructions?`,
	`new\s+instructions?:`,
	`system\s*:`,
	`override\s+`,
	`you\s+are\s+now`,
	`act\s+as\s+`,
	`pretend\s+to\s+be`,
	`roleplay\s+as`,
	`simulate\s+`,
	`<\s*system\s*>`,
	`<\s*prompt\s*>`,
	`show\s+me\s+(your|the)\s+(prompt|instructions?|system)`,
	`what\s+(are|is)\s+your\s+(prompt|instructions?|system)`,
	`reveal\s+your\s+(prompt|instructions?|system)`,
	`score\s+this\s+(10|9|8)`,
	`must\s+score\s+`,
	`should\s+score\s+`,
}

// Detector scans messages for prompt injection attempts. It is stateless
// after construction (compiled patterns only) and safe for concurrent use
// as a single shared instance.
type Detector struct {
	patterns []*regexp.Regexp
}

// NewDetector builds a detector. If disableBuiltIn is false the built-in
// pattern set is included; customPatterns are always appended, in order.
func NewDetector(disableBuiltIn bool, customPatterns []string) (*Detector, error) {
	var sources []string
	if !disableBuiltIn {
		sources = append(sources, builtInPatterns...)
	}
	sources = append(sources, customPatterns...)

	compiled := make([]*regexp.Regexp, 0, len(sources))
	for _, p := range sources {
		if !strings.HasPrefix(p, "(?i)") {
			p = "(?i)" + p
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling injection pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}

	return &Detector{patterns: compiled}, nil
}

// ScanResult reports the outcome of an injection scan. MatchedPatterns
// holds the source text of every pattern that matched, in pattern order,
// for audit and metrics.
type ScanResult struct {
	Detected        bool
	MatchedPatterns []string
}

// Detect scans text against all patterns and returns every match, not
// just the first. Detection never blocks a request; callers record the
// result and continue with the sanitized text.
func (d *Detector) Detect(text string) ScanResult {
	var matched []string
	for _, re := range d.patterns {
		if re.MatchString(text) {
			matched = append(matched, re.String())
		}
	}
	return ScanResult{
		Detected:        len(matched) > 0,
		MatchedPatterns: matched,
	}
}
