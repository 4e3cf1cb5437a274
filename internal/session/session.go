// Package session defines the capability boundary between the orchestration
// core and whatever mechanism actually talks to a conversational agent
// (browser relay, HTTP bridge, test double). The core depends only on the
// Opener and Session interfaces and assumes nothing about transport.
package session

import (
	"context"
	"errors"
)

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("session: closed")

// Session is one open conversation with a single agent. A session is owned
// exclusively by one task; implementations do not need to be safe for
// concurrent use.
type Session interface {
	// Submit sends the prompt to the agent.
	Submit(ctx context.Context, prompt string) error

	// BestText returns the longest non-empty text currently visible among
	// the given extraction points. An empty string with a nil error means
	// the agent has not produced anything yet.
	BestText(ctx context.Context, points []string) (string, error)

	// Close releases the session's underlying resources. Safe to call on
	// every exit path; subsequent calls are no-ops.
	Close() error
}

// Opener creates sessions scoped to a named agent.
type Opener interface {
	Open(ctx context.Context, agent string) (Session, error)
}
