// Package orchestrator runs the full review pipeline: deterministic pixel
// metrics, then the Vision, Coach, and Engagement agents in dependency
// order, then fusion into a single verdict. Agent failures degrade the
// result instead of failing the request; only input validation and caller
// cancellation abort.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/thumbnail-reviewer/internal/agent"
	"github.com/fpang/thumbnail-reviewer/internal/config"
	"github.com/fpang/thumbnail-reviewer/internal/imaging"
	"github.com/fpang/thumbnail-reviewer/internal/memory"
	"github.com/fpang/thumbnail-reviewer/internal/metrics"
	"github.com/fpang/thumbnail-reviewer/internal/review"
)

// Orchestrator wires one invoker, the configuration, and the session store
// into the review pipeline. Safe for concurrent use; each Review call builds
// its own agents so per-request time budgets stay independent.
type Orchestrator struct {
	inv   agent.Invoker
	cfg   *config.Config
	store memory.Store
}

// New creates an Orchestrator.
func New(inv agent.Invoker, cfg *config.Config, store memory.Store) *Orchestrator {
	return &Orchestrator{inv: inv, cfg: cfg, store: store}
}

// Request is one review job. SessionID may be empty for an ephemeral,
// non-persisted review; Deep widens every agent's time budget.
type Request struct {
	Sample      *imaging.ImageSample
	SessionID   string
	Title       string
	Description string
	Deep        bool
}

// Review runs the pipeline end to end and returns the fused result. The
// returned error is non-nil only when the caller's context was cancelled;
// every agent failure is recorded in the result's AgentErrors instead.
func (o *Orchestrator) Review(ctx context.Context, req Request) (*review.ReviewResult, error) {
	start := time.Now()

	result := &review.ReviewResult{
		Timestamp:   time.Now().UTC(),
		Title:       req.Title,
		Metrics:     imaging.Compute(req.Sample),
		AgentErrors: map[string]string{},
	}

	styleSummary := o.styleSummary(ctx, req.SessionID, result)

	vision := o.runVision(ctx, req, result)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	coach := o.runCoach(ctx, req, result, vision, styleSummary)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	engagement := o.runEngagement(ctx, req, result, vision, coach)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.Vision = vision
	result.Coach = coach
	result.Engagement = engagement
	result.CombinedScore = review.CombinedScore(result.Metrics, coach, engagement, review.Weights{
		Metrics:    o.cfg.Fusion.MetricsWeight,
		Coach:      o.cfg.Fusion.CoachWeight,
		Engagement: o.cfg.Fusion.EngagementWeight,
	})

	if result.Degraded() {
		result.Warnings = append(result.Warnings,
			"all AI agents failed; the score reflects pixel metrics only")
	}

	result.Narrative = review.BuildNarrative(result)

	if len(result.AgentErrors) == 0 {
		result.AgentErrors = nil
	}

	o.persist(ctx, req.SessionID, result)
	o.emitPipelineMetrics(result, time.Since(start))

	log.Info().
		Str("session_id", req.SessionID).
		Float64("combined_score", result.CombinedScore).
		Int("agent_errors", len(result.AgentErrors)).
		Bool("degraded", result.Degraded()).
		Dur("duration", time.Since(start)).
		Msg("Review complete")

	return result, nil
}

// styleSummary loads the session's creator-style summary for the coach
// prompt. A read failure is downgraded to a warning: coaching without
// history beats failing the review.
func (o *Orchestrator) styleSummary(ctx context.Context, sessionID string, result *review.ReviewResult) string {
	if sessionID == "" {
		return ""
	}
	rec, err := o.store.Get(ctx, sessionID)
	if err != nil {
		log.Warn().Str("session_id", sessionID).Err(err).Msg("Session history unavailable")
		result.Warnings = append(result.Warnings, "session history unavailable; coaching without style context")
		return ""
	}
	return rec.StyleSummary
}

func (o *Orchestrator) runVision(ctx context.Context, req Request, result *review.ReviewResult) *review.VisionDescription {
	v := agent.NewVision(o.inv, o.cfg.TimeoutFor(agent.NameVision, req.Deep))

	desc, err := runWithRetry(ctx, agent.NameVision, o.cfg.Agents.MaxRetries,
		func(ctx context.Context) (*review.VisionDescription, error) {
			return v.Analyze(ctx, req.Sample)
		})
	if err != nil {
		recordFailure(ctx, result, agent.NameVision, err)
		return nil
	}
	return desc
}

func (o *Orchestrator) runCoach(ctx context.Context, req Request, result *review.ReviewResult, vision *review.VisionDescription, styleSummary string) *review.CoachReview {
	// Coaching continues on a blank canvas when the vision pass failed.
	if vision == nil {
		vision = &review.VisionDescription{}
		vision.Normalize()
	}

	c := agent.NewCoach(o.inv, o.cfg.TimeoutFor(agent.NameCoach, req.Deep))
	cc := agent.CoachContext{
		Sample:       req.Sample,
		Metrics:      result.Metrics,
		Vision:       vision,
		StyleSummary: styleSummary,
		Title:        req.Title,
		Description:  req.Description,
	}

	cr, err := runWithRetry(ctx, agent.NameCoach, o.cfg.Agents.MaxRetries,
		func(ctx context.Context) (*review.CoachReview, error) {
			return c.Analyze(ctx, cc)
		})
	if err != nil {
		recordFailure(ctx, result, agent.NameCoach, err)
		return nil
	}
	return cr
}

func (o *Orchestrator) runEngagement(ctx context.Context, req Request, result *review.ReviewResult, vision *review.VisionDescription, coach *review.CoachReview) *review.EngagementPrediction {
	e := agent.NewEngagement(o.inv, o.cfg.TimeoutFor(agent.NameEngagement, req.Deep))
	ec := agent.EngagementContext{
		Metrics: result.Metrics,
		Vision:  vision,
	}
	if coach != nil {
		ec.CoachVerdict = coach.Verdict
	}

	pred, err := runWithRetry(ctx, agent.NameEngagement, o.cfg.Agents.MaxRetries,
		func(ctx context.Context) (*review.EngagementPrediction, error) {
			return e.Analyze(ctx, ec)
		})
	if err != nil {
		recordFailure(ctx, result, agent.NameEngagement, err)
		return nil
	}
	return pred
}

// runWithRetry invokes fn up to 1+maxRetries times. Only retryable agent
// errors are retried; schema errors and caller cancellation return
// immediately.
func runWithRetry[T any](ctx context.Context, name string, maxRetries int, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		lastErr = err

		ae := agent.AsAgentError(name, err)
		if !ae.Retryable() || attempt == maxRetries {
			break
		}
		log.Debug().Str("agent", name).Int("attempt", attempt+1).Err(err).Msg("Retrying agent call")
	}
	return zero, lastErr
}

// recordFailure logs an agent failure into the result unless the caller
// walked away, in which case the pipeline is about to abort anyway.
func recordFailure(ctx context.Context, result *review.ReviewResult, name string, err error) {
	if ctx.Err() != nil {
		return
	}
	ae := agent.AsAgentError(name, err)
	result.AgentErrors[name] = fmt.Sprintf("%s: %v", ae.Kind, ae.Err)
	log.Warn().Str("agent", name).Str("kind", ae.Kind.String()).Err(ae.Err).Msg("Agent failed; continuing degraded")
}

// persist appends the result to the session history. Persistence failures
// never fail the review; the caller already has the verdict in hand.
func (o *Orchestrator) persist(ctx context.Context, sessionID string, result *review.ReviewResult) {
	if sessionID == "" {
		return
	}
	if _, err := o.store.Append(ctx, sessionID, *result); err != nil {
		log.Error().Str("session_id", sessionID).Err(err).Msg("Failed to persist review")
		result.Warnings = append(result.Warnings, "review could not be saved to session history")
	}
}

func (o *Orchestrator) emitPipelineMetrics(result *review.ReviewResult, elapsed time.Duration) {
	m := metrics.New().
		Duration("PipelineLatencyMs", elapsed).
		Count("PipelineReviews").
		Metric("CombinedScore", result.CombinedScore, "None").
		Property("AgentErrorCount", len(result.AgentErrors))
	if result.Degraded() {
		m.Count("DegradedReviews")
	}
	m.Flush()
}
