package agent

import "github.com/segmentio/encoding/json"

// Model responses are parsed into tagged verdicts: the second return
// value is true for a parsed response and false when the fallback was
// substituted. Any missing or out-of-range required field yields the
// whole fallback, never a partially-defaulted verdict.

type domainVerdict struct {
	Match     bool
	Reasoning string
}

// fallbackDomainVerdict fails closed: an unparseable domain response is
// treated as out-of-domain so a model formatting error cannot admit an
// adversarial message into the scoring stage.
var fallbackDomainVerdict = domainVerdict{
	Match:     false,
	Reasoning: "Failed to parse domain validation response",
}

func parseDomainVerdict(raw string) (domainVerdict, bool) {
	var payload struct {
		DomainMatch *bool  `json:"domain_match"`
		Reasoning   string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil || payload.DomainMatch == nil {
		return fallbackDomainVerdict, false
	}
	return domainVerdict{Match: *payload.DomainMatch, Reasoning: payload.Reasoning}, true
}

type scoreVerdict struct {
	Score         int
	Confidence    float64
	Reasoning     string
	KeyIndicators []string
}

// fallbackScoreVerdict is the fail-safe default: a mid-scale score that
// avoids both false reassurance and false alarm, with confidence low
// enough that downstream consumers can tell it apart from a genuine score.
var fallbackScoreVerdict = scoreVerdict{
	Score:         5,
	Confidence:    0.3,
	Reasoning:     "Failed to parse scoring response",
	KeyIndicators: []string{},
}

func parseScoreVerdict(raw string) (scoreVerdict, bool) {
	var payload struct {
		Score         *int     `json:"score"`
		Confidence    *float64 `json:"confidence"`
		Reasoning     string   `json:"reasoning"`
		KeyIndicators []string `json:"key_indicators"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return fallbackScoreVerdict, false
	}
	if payload.Score == nil || *payload.Score < 1 || *payload.Score > 10 {
		return fallbackScoreVerdict, false
	}
	if payload.Confidence == nil || *payload.Confidence < 0 || *payload.Confidence > 1 {
		return fallbackScoreVerdict, false
	}

	indicators := payload.KeyIndicators
	if indicators == nil {
		indicators = []string{}
	}
	return scoreVerdict{
		Score:         *payload.Score,
		Confidence:    *payload.Confidence,
		Reasoning:     payload.Reasoning,
		KeyIndicators: indicators,
	}, true
}
