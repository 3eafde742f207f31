package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fpang/thumbnail-reviewer/internal/assets"
	"github.com/fpang/thumbnail-reviewer/internal/jsonutil"
	"github.com/fpang/thumbnail-reviewer/internal/review"
)

// Engagement predicts click-through potential from the upstream signals. It
// runs last in the chain and never sees the image itself, only the analysis.
type Engagement struct {
	inv     Invoker
	timeout time.Duration
}

// NewEngagement creates an Engagement agent with the given time budget per call.
func NewEngagement(inv Invoker, timeout time.Duration) *Engagement {
	return &Engagement{inv: inv, timeout: timeout}
}

// EngagementContext is the input contract for one Engagement call. Vision
// and CoachVerdict may be empty when the upstream agents failed; the model is
// told to lower its confidence in that case.
type EngagementContext struct {
	Metrics      review.MetricsResult
	Vision       *review.VisionDescription
	CoachVerdict string
}

// engagementResponse is the wire schema for the Engagement variant.
type engagementResponse struct {
	CTRScore   float64 `json:"ctr_score"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// Analyze sends the prediction request and maps the response into an
// EngagementPrediction with both scores clamped into [0, 1].
func (e *Engagement) Analyze(ctx context.Context, ec EngagementContext) (*review.EngagementPrediction, error) {
	raw, err := invoke(ctx, e.inv, NameEngagement, e.timeout, assets.EngagementSystemPrompt,
		[]Part{TextPart(engagementContextBlock(ec))})
	if err != nil {
		return nil, err
	}

	resp, err := jsonutil.ParseJSON[engagementResponse](raw)
	if err != nil {
		return nil, schemaErr(NameEngagement, err)
	}

	pred := &review.EngagementPrediction{
		CTRScore:   resp.CTRScore,
		Confidence: resp.Confidence,
		Rationale:  strings.TrimSpace(resp.Rationale),
	}
	pred.Normalize()
	return pred, nil
}

func engagementContextBlock(ec EngagementContext) string {
	var sb strings.Builder

	metricsJSON, _ := json.Marshal(ec.Metrics)
	fmt.Fprintf(&sb, "PIXEL_METRICS:\n%s\n\n", metricsJSON)

	if ec.Vision != nil {
		visionJSON, _ := json.Marshal(ec.Vision)
		fmt.Fprintf(&sb, "VISION_ANALYSIS:\n%s\n\n", visionJSON)
	} else {
		sb.WriteString("VISION_ANALYSIS: unavailable\n\n")
	}

	fmt.Fprintf(&sb, "DESIGNER_VERDICT:\n%s\n", orNone(ec.CoachVerdict))
	return sb.String()
}
