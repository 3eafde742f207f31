// Package memory provides the session memory store: a bounded, ordered
// history of past reviews per session plus a derived creator-style summary
// that biases future coach prompts.
package memory

import (
	"context"

	"github.com/fpang/thumbnail-reviewer/internal/review"
)

// SessionRecord is one session's accumulated state. History is ordered
// oldest-first and never exceeds the configured cap; StyleSummary is
// recomputed on every append.
type SessionRecord struct {
	SessionID    string                `json:"sessionId"`
	History      []review.ReviewResult `json:"history"`
	StyleSummary string                `json:"styleSummary"`
}

// Store is the session memory contract. Get is get-or-create and idempotent;
// Append is the sole mutator. Implementations must serialize appends to the
// same session while keeping different sessions independent, and must return
// consistent snapshots (callers own the returned record).
//
// The empty session ID is the ephemeral session: Get returns an empty record
// and Append never persists.
type Store interface {
	Get(ctx context.Context, sessionID string) (*SessionRecord, error)
	Append(ctx context.Context, sessionID string, r review.ReviewResult) (*SessionRecord, error)
	Close() error
}
