package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fernhealth/fertility-support-agent/src/llm"
)

// state identifies the pipeline stage about to run. The topology is
// fixed: validate domain, then either score and route or terminate
// out-of-domain.
type state int

const (
	stateValidatingDomain state = iota
	stateScoringEmotion
	stateRoutingAction
	stateDone
)

// Agent sequences the scoring pipeline for one message at a time. It is
// stateless between requests and safe for concurrent use; all per-request
// state lives in the ScoringContext.
type Agent struct {
	llm    llm.Client
	logger *slog.Logger
}

// New creates an Agent backed by the given LLM client.
func New(client llm.Client, logger *slog.Logger) *Agent {
	return &Agent{
		llm:    client,
		logger: logger.With("area", "agent"),
	}
}

// ScoreMessage runs the full pipeline on a sanitized message. A failure
// of the LLM capability itself fails the whole request with no partial
// verdict; malformed or empty model output never does, each stage
// substitutes its documented fallback instead. Stages are never retried.
func (a *Agent) ScoreMessage(ctx context.Context, message string) (ScoreResult, error) {
	sc := newScoringContext(message)

	for st := stateValidatingDomain; st != stateDone; {
		next, err := a.step(ctx, st, sc)
		if err != nil {
			return ScoreResult{}, err
		}
		st = next
	}

	return sc.result(), nil
}

func (a *Agent) step(ctx context.Context, st state, sc *ScoringContext) (state, error) {
	switch st {
	case stateValidatingDomain:
		if err := a.validateDomain(ctx, sc); err != nil {
			return stateDone, err
		}
		if sc.DomainMatch {
			return stateScoringEmotion, nil
		}
		markOutOfDomain(sc)
		return stateDone, nil

	case stateScoringEmotion:
		if err := a.scoreEmotion(ctx, sc); err != nil {
			return stateDone, err
		}
		return stateRoutingAction, nil

	case stateRoutingAction:
		sc.RecommendedAction, sc.ActionRationale = routeAction(sc.Score)
		return stateDone, nil

	default:
		return stateDone, fmt.Errorf("invalid pipeline state %d", st)
	}
}

// validateDomain asks the model whether the message is in the supported
// emotional-support domain. Fails closed on unparseable output.
func (a *Agent) validateDomain(ctx context.Context, sc *ScoringContext) error {
	prompt := fmt.Sprintf(domainValidationPrompt, sc.Message)

	raw, err := a.llm.Invoke(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil && !errors.Is(err, llm.ErrEmptyResponse) {
		return fmt.Errorf("domain validation: %w", err)
	}
	// Empty model content is a content problem, not a capability
	// failure: raw stays "" and takes the fail-closed fallback below.

	verdict, parsed := parseDomainVerdict(raw)
	if !parsed {
		a.logger.Warn("domain validation response unparseable, failing closed")
	}
	sc.DomainMatch = verdict.Match
	sc.DomainReasoning = verdict.Reasoning
	sc.TokensUsed += approxTokens(prompt) + approxTokens(raw)

	return nil
}

// scoreEmotion produces the 1-10 distress score. Substitutes the
// fail-safe mid-scale verdict on unparseable output.
func (a *Agent) scoreEmotion(ctx context.Context, sc *ScoringContext) error {
	prompt := fmt.Sprintf(emotionalScoringPrompt, sc.Message)

	raw, err := a.llm.Invoke(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil && !errors.Is(err, llm.ErrEmptyResponse) {
		return fmt.Errorf("emotional scoring: %w", err)
	}
	// Empty model content takes the fail-safe fallback below.

	verdict, parsed := parseScoreVerdict(raw)
	if !parsed {
		a.logger.Warn("scoring response unparseable, using fail-safe defaults")
	}
	sc.Score = verdict.Score
	sc.Confidence = verdict.Confidence
	sc.Reasoning = verdict.Reasoning
	sc.KeyIndicators = verdict.KeyIndicators
	sc.TokensUsed += approxTokens(prompt) + approxTokens(raw)

	return nil
}

// markOutOfDomain sets the terminal out-of-domain verdict. The router is
// bypassed on this branch; its score<=0 mapping is consistent with these
// values but not invoked.
func markOutOfDomain(sc *ScoringContext) {
	sc.Score = -1
	sc.Confidence = 1.0
	sc.Reasoning = sc.DomainReasoning
	sc.KeyIndicators = []string{}
	sc.RecommendedAction = ActionOutOfDomain
	sc.ActionRationale = "Message is not related to fertility or emotional support"
}

// approxTokens is a whitespace word-count approximation of token usage,
// not a tokenizer-exact count. Kept as-is so cost metrics retain their
// original semantics.
func approxTokens(s string) int {
	return len(strings.Fields(s))
}
