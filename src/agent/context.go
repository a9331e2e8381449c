// Package agent implements the three-stage scoring pipeline: domain gate,
// distress scorer, and action router, sequenced by a small state machine
// over a request-scoped scoring context.
package agent

import "time"

// ActionType is the closed set of recommended interventions.
type ActionType string

const (
	ActionEmergencyAlert    ActionType = "emergency_alert"
	ActionBookGPAppointment ActionType = "book_gp_appointment"
	ActionNotifyCaretaker   ActionType = "notify_caretaker"
	ActionLogOnly           ActionType = "log_only"
	ActionOutOfDomain       ActionType = "out_of_domain"
)

// ScoringContext is the mutable state threaded through the pipeline for
// one request. It is owned exclusively by the request that created it and
// never shared across requests.
type ScoringContext struct {
	Message           string
	DomainMatch       bool
	DomainReasoning   string
	Score             int // -1 out of domain, 1-10 otherwise
	Confidence        float64
	Reasoning         string
	KeyIndicators     []string
	RecommendedAction ActionType
	ActionRationale   string
	TokensUsed        int
	StartTime         time.Time
}

func newScoringContext(message string) *ScoringContext {
	return &ScoringContext{
		Message:           message,
		RecommendedAction: ActionLogOnly,
		KeyIndicators:     []string{},
		StartTime:         time.Now(),
	}
}

// ScoreResult is the externally visible outcome of one scoring run: a
// read-only projection of the final scoring context plus latency.
type ScoreResult struct {
	Score             int        `json:"score"`
	Confidence        float64    `json:"confidence"`
	DomainMatch       bool       `json:"domain_match"`
	Reasoning         string     `json:"reasoning"`
	KeyIndicators     []string   `json:"key_indicators"`
	RecommendedAction ActionType `json:"recommended_action"`
	ActionRationale   string     `json:"action_rationale"`
	TokensUsed        int        `json:"tokens_used"`
	LatencyMS         int64      `json:"latency_ms"`
}

func (sc *ScoringContext) result() ScoreResult {
	indicators := sc.KeyIndicators
	if indicators == nil {
		indicators = []string{}
	}
	return ScoreResult{
		Score:             sc.Score,
		Confidence:        sc.Confidence,
		DomainMatch:       sc.DomainMatch,
		Reasoning:         sc.Reasoning,
		KeyIndicators:     indicators,
		RecommendedAction: sc.RecommendedAction,
		ActionRationale:   sc.ActionRationale,
		TokensUsed:        sc.TokensUsed,
		LatencyMS:         time.Since(sc.StartTime).Milliseconds(),
	}
}
