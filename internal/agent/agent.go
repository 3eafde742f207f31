// Package agent implements the capability agents that delegate reasoning to
// a remote model: Vision (scene description), Coach (structured critique),
// and Engagement (click-through prediction). Each variant shares one invoker,
// carries its own context and response schema, and converts every failure
// mode into a structured, recoverable Error.
package agent

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/thumbnail-reviewer/internal/metrics"
)

// Agent names used in prompts, errors, and the agentErrors map.
const (
	NameVision     = "vision"
	NameCoach      = "coach"
	NameEngagement = "engagement"
)

// Part is one piece of a capability request: either prompt text or inline
// binary data with its MIME type.
type Part struct {
	Text string
	Data []byte
	MIME string
}

// TextPart wraps prompt text as a request part.
func TextPart(s string) Part {
	return Part{Text: s}
}

// BlobPart wraps inline binary data as a request part.
func BlobPart(data []byte, mime string) Part {
	return Part{Data: data, MIME: mime}
}

// Invoker sends one logical request to the reasoning backend and returns the
// raw response text. Implementations must honor context cancellation.
type Invoker interface {
	Generate(ctx context.Context, systemPrompt string, parts ...Part) (string, error)
}

// invoke runs one time-boxed backend call for the named agent, classifies
// failures into the agent error taxonomy, and emits latency metrics. Caller
// cancellation is returned as-is so the orchestrator can distinguish an
// abandoned request from an agent failure.
func invoke(ctx context.Context, inv Invoker, name string, budget time.Duration, system string, parts []Part) (string, error) {
	cctx := ctx
	if budget > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	start := time.Now()
	text, err := inv.Generate(cctx, system, parts...)
	elapsed := time.Since(start)

	m := metrics.New().
		Dimension("Agent", name).
		Duration("AgentLatencyMs", elapsed).
		Count("AgentCalls")
	if err != nil {
		m.Count("AgentErrors")
	}
	m.Flush()

	if err != nil {
		// The caller walked away; do not blame the agent.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Str("agent", name).Dur("budget", budget).Msg("Agent call exceeded time budget")
			return "", timeoutErr(name, budget)
		}
		log.Warn().Str("agent", name).Err(err).Dur("duration", elapsed).Msg("Agent call failed")
		return "", transportErr(name, err)
	}

	if text == "" {
		return "", transportErr(name, errors.New("empty response from backend"))
	}

	log.Debug().
		Str("agent", name).
		Int("response_length", len(text)).
		Dur("duration", elapsed).
		Msg("Agent call complete")

	return text, nil
}
