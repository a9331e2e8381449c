// Package llm abstracts the chat-completion capability consumed by the
// scoring pipeline: given a list of role-tagged messages, return the
// generated text. No streaming.
package llm

import (
	"context"
	"errors"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged chat turn.
type Message struct {
	Role    string
	Content string
}

// ErrEmptyResponse is returned when the API call succeeds but yields no
// content. It is distinct from transport/HTTP failures, which are
// returned as-is from the underlying client.
var ErrEmptyResponse = errors.New("llm: empty response")

// Client is the capability consumed by the pipeline's model stages.
// Implementations must honour ctx cancellation so abandoned requests
// cancel their in-flight call.
type Client interface {
	Invoke(ctx context.Context, messages []Message) (string, error)
}
