package agent

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a capability-agent failure. Every kind is recoverable at
// the pipeline level: the orchestrator records it and continues with
// degraded context.
type Kind int

const (
	// KindTimeout means the agent exceeded its scoped time budget.
	KindTimeout Kind = iota
	// KindTransport covers network, rate-limit, and backend errors. The root
	// cause is not distinguished beyond the human-readable message.
	KindTransport
	// KindSchema means the backend answered but the response did not match
	// the variant's schema. Never retried: the same prompt would likely
	// produce the same malformed answer.
	KindSchema
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	case KindSchema:
		return "schema"
	default:
		return "unknown"
	}
}

// Error is a structured capability-agent failure carried through the
// orchestrator as data rather than unwound control flow.
type Error struct {
	Agent string
	Kind  Kind
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s agent %s error: %v", e.Agent, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether a retry could plausibly succeed. Schema errors
// are deterministic failures and never retried.
func (e *Error) Retryable() bool {
	return e.Kind != KindSchema
}

func timeoutErr(agent string, budget time.Duration) *Error {
	return &Error{Agent: agent, Kind: KindTimeout, Err: fmt.Errorf("exceeded %v budget", budget)}
}

func transportErr(agent string, err error) *Error {
	return &Error{Agent: agent, Kind: KindTransport, Err: err}
}

func schemaErr(agent string, err error) *Error {
	return &Error{Agent: agent, Kind: KindSchema, Err: err}
}

// AsAgentError extracts an *Error from err, or wraps err as a transport
// error attributed to the named agent if it is not already one.
func AsAgentError(agentName string, err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return transportErr(agentName, err)
}
