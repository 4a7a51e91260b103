// Package chat defines the chat-completion provider contract used by the
// evaluation pipelines.
package chat

import "context"

// Request is a single chat-completion request. The User payload is typically
// a JSON document; System carries the grading instruction.
type Request struct {
	// Model is the backend model identifier for this attempt.
	Model string

	// System is the system instruction.
	System string

	// User is the user-role payload.
	User string

	// Temperature controls sampling randomness. Graders run near zero.
	Temperature float64
}

// Provider sends chat-completion requests to a reasoning backend.
type Provider interface {
	// Complete returns the assistant's text content for req, or an error on
	// any transport, timeout, or empty-response condition.
	Complete(ctx context.Context, req Request) (string, error)
}
