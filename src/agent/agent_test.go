package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/fernhealth/fertility-support-agent/src/llm"
)

// scriptedClient returns its responses in order, one per Invoke call.
// When err is set it is returned on call number errOn (1-based), or on
// every call when errOn is zero.
type scriptedClient struct {
	responses []string
	err       error
	errOn     int
	calls     int
}

func (c *scriptedClient) Invoke(_ context.Context, _ []llm.Message) (string, error) {
	c.calls++
	if c.err != nil && (c.errOn == 0 || c.calls == c.errOn) {
		return "", c.err
	}
	if c.calls > len(c.responses) {
		return "", errors.New("scripted client exhausted")
	}
	return c.responses[c.calls-1], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScoreMessage_EndToEnd(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"domain_match": true, "reasoning": "fertility distress"}`,
		`{"score": 8, "confidence": 0.9, "reasoning": "persistent sadness and isolation", "key_indicators": ["failed cycle", "alone"]}`,
	}}
	a := New(client, testLogger())

	res, err := a.ScoreMessage(context.Background(),
		"Another failed cycle. I cry every day and can't see a way forward. I feel so alone.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Score != 8 {
		t.Errorf("score = %d, want 8", res.Score)
	}
	if res.RecommendedAction != ActionBookGPAppointment {
		t.Errorf("action = %q, want %q", res.RecommendedAction, ActionBookGPAppointment)
	}
	if !res.DomainMatch {
		t.Error("domain_match = false, want true")
	}
	if res.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", res.Confidence)
	}
	if len(res.KeyIndicators) != 2 {
		t.Errorf("key_indicators = %v", res.KeyIndicators)
	}
	if client.calls != 2 {
		t.Errorf("llm calls = %d, want 2", client.calls)
	}
	if res.TokensUsed <= 0 {
		t.Errorf("tokens_used = %d, want > 0", res.TokensUsed)
	}
	if res.LatencyMS < 0 {
		t.Errorf("latency_ms = %d, want >= 0", res.LatencyMS)
	}
}

func TestScoreMessage_OutOfDomain(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"domain_match": false, "reasoning": "casual conversation about weather"}`,
	}}
	a := New(client, testLogger())

	res, err := a.ScoreMessage(context.Background(), "What's the weather like today?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Score != -1 {
		t.Errorf("score = %d, want -1", res.Score)
	}
	if res.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", res.Confidence)
	}
	if res.RecommendedAction != ActionOutOfDomain {
		t.Errorf("action = %q, want %q", res.RecommendedAction, ActionOutOfDomain)
	}
	if res.Reasoning != "casual conversation about weather" {
		t.Errorf("reasoning = %q, want the domain reasoning", res.Reasoning)
	}
	if res.ActionRationale != "Message is not related to fertility or emotional support" {
		t.Errorf("action_rationale = %q", res.ActionRationale)
	}
	if len(res.KeyIndicators) != 0 {
		t.Errorf("key_indicators = %v, want empty", res.KeyIndicators)
	}
	// The scorer must never run on the out-of-domain branch.
	if client.calls != 1 {
		t.Errorf("llm calls = %d, want 1", client.calls)
	}
}

func TestScoreMessage_MalformedDomainResponse(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`Sure! This message looks like it's about fertility.`,
	}}
	a := New(client, testLogger())

	res, err := a.ScoreMessage(context.Background(), "Another negative test today.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Fail closed: unparseable domain output means out of domain.
	if res.DomainMatch {
		t.Error("domain_match = true, want false on parse failure")
	}
	if res.Score != -1 {
		t.Errorf("score = %d, want -1", res.Score)
	}
	if res.Reasoning != "Failed to parse domain validation response" {
		t.Errorf("reasoning = %q", res.Reasoning)
	}
	if client.calls != 1 {
		t.Errorf("llm calls = %d, want 1", client.calls)
	}
}

func TestScoreMessage_MalformedScoreResponse(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"domain_match": true, "reasoning": "fertility related"}`,
		`I'd rate this a solid seven out of ten.`,
	}}
	a := New(client, testLogger())

	res, err := a.ScoreMessage(context.Background(), "The injections are getting hard to face.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Score != 5 {
		t.Errorf("score = %d, want fail-safe 5", res.Score)
	}
	if res.Confidence != 0.3 {
		t.Errorf("confidence = %v, want 0.3", res.Confidence)
	}
	if res.RecommendedAction != ActionLogOnly {
		t.Errorf("action = %q, want %q for fallback score", res.RecommendedAction, ActionLogOnly)
	}
}

func TestScoreMessage_EmptyDomainResponse(t *testing.T) {
	client := &scriptedClient{err: llm.ErrEmptyResponse, errOn: 1}
	a := New(client, testLogger())

	res, err := a.ScoreMessage(context.Background(), "Another negative test today.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Empty model content fails closed, same as unparseable output.
	if res.DomainMatch {
		t.Error("domain_match = true, want false on empty response")
	}
	if res.Score != -1 {
		t.Errorf("score = %d, want -1", res.Score)
	}
	if res.Reasoning != "Failed to parse domain validation response" {
		t.Errorf("reasoning = %q", res.Reasoning)
	}
	if client.calls != 1 {
		t.Errorf("llm calls = %d, want 1", client.calls)
	}
	if res.TokensUsed <= 0 {
		t.Errorf("tokens_used = %d, want prompt tokens counted", res.TokensUsed)
	}
}

func TestScoreMessage_EmptyScoreResponse(t *testing.T) {
	client := &scriptedClient{
		responses: []string{`{"domain_match": true, "reasoning": "fertility related"}`},
		err:       llm.ErrEmptyResponse,
		errOn:     2,
	}
	a := New(client, testLogger())

	res, err := a.ScoreMessage(context.Background(), "The injections are getting hard to face.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Score != 5 {
		t.Errorf("score = %d, want fail-safe 5", res.Score)
	}
	if res.Confidence != 0.3 {
		t.Errorf("confidence = %v, want 0.3", res.Confidence)
	}
	if res.RecommendedAction != ActionLogOnly {
		t.Errorf("action = %q, want %q for fallback score", res.RecommendedAction, ActionLogOnly)
	}
}

func TestScoreMessage_TransportErrorPropagates(t *testing.T) {
	wantErr := errors.New("connection refused")
	a := New(&scriptedClient{err: wantErr}, testLogger())

	_, err := a.ScoreMessage(context.Background(), "Another failed cycle.")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want wrapped %v", err, wantErr)
	}
}

func TestScoreMessage_TokensAccumulate(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"domain_match": false, "reasoning": "off topic"}`,
	}}
	a := New(client, testLogger())

	res, err := a.ScoreMessage(context.Background(), "How do I reset my password?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One gate call: prompt words plus response words.
	if res.TokensUsed <= 0 {
		t.Errorf("tokens_used = %d, want positive after gate call", res.TokensUsed)
	}

	inDomain := &scriptedClient{responses: []string{
		`{"domain_match": true, "reasoning": "fertility"}`,
		`{"score": 4, "confidence": 0.8, "reasoning": "manageable", "key_indicators": []}`,
	}}
	res2, err := New(inDomain, testLogger()).ScoreMessage(context.Background(), "Feeling a bit nervous about the next cycle.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res2.TokensUsed <= res.TokensUsed {
		t.Errorf("two-stage tokens %d should exceed single-stage %d", res2.TokensUsed, res.TokensUsed)
	}
}

func TestScoreMessage_EmergencyAlert(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"domain_match": true, "reasoning": "crisis language"}`,
		`{"score": 10, "confidence": 0.95, "reasoning": "suicidal ideation", "key_indicators": ["no point in living"]}`,
	}}
	a := New(client, testLogger())

	res, err := a.ScoreMessage(context.Background(), "I can't go on. There's no point in living.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RecommendedAction != ActionEmergencyAlert {
		t.Errorf("action = %q, want %q", res.RecommendedAction, ActionEmergencyAlert)
	}
}
