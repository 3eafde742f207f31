package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fpang/thumbnail-reviewer/internal/assets"
	"github.com/fpang/thumbnail-reviewer/internal/imaging"
	"github.com/fpang/thumbnail-reviewer/internal/jsonutil"
	"github.com/fpang/thumbnail-reviewer/internal/review"
)

// Coach produces the structured designer critique. It sees the image plus
// everything computed so far: pixel metrics, the vision description, and the
// creator's session style summary.
type Coach struct {
	inv     Invoker
	timeout time.Duration
}

// NewCoach creates a Coach agent with the given time budget per call.
func NewCoach(inv Invoker, timeout time.Duration) *Coach {
	return &Coach{inv: inv, timeout: timeout}
}

// CoachContext is the input contract for one Coach call. Vision may be a
// defaulted-empty description when the Vision agent failed; StyleSummary is
// empty for new or ephemeral sessions.
type CoachContext struct {
	Sample       *imaging.ImageSample
	Metrics      review.MetricsResult
	Vision       *review.VisionDescription
	StyleSummary string
	Title        string
	Description  string
}

// coachResponse is the wire schema for the Coach variant.
type coachResponse struct {
	Verdict      string   `json:"verdict"`
	QualityScore float64  `json:"quality_score"`
	Strengths    []string `json:"strengths"`
	Weaknesses   []string `json:"weaknesses"`
	Suggestions  []string `json:"suggestions"`
}

// Analyze sends the critique request and maps the response into a
// CoachReview with the quality score clamped into [0, 10].
func (c *Coach) Analyze(ctx context.Context, cc CoachContext) (*review.CoachReview, error) {
	parts := []Part{
		BlobPart(cc.Sample.Raw(), cc.Sample.MIMEType()),
		TextPart(coachContextBlock(cc)),
	}

	raw, err := invoke(ctx, c.inv, NameCoach, c.timeout, assets.CoachSystemPrompt, parts)
	if err != nil {
		return nil, err
	}

	resp, err := jsonutil.ParseJSON[coachResponse](raw)
	if err != nil {
		return nil, schemaErr(NameCoach, err)
	}

	cr := &review.CoachReview{
		Verdict:      strings.TrimSpace(resp.Verdict),
		QualityScore: resp.QualityScore,
		Strengths:    resp.Strengths,
		Weaknesses:   resp.Weaknesses,
		Suggestions:  resp.Suggestions,
	}
	cr.Normalize()
	return cr, nil
}

// coachContextBlock renders the upstream analysis into a compact context
// block. Upstream JSON is embedded verbatim so the model sees exactly what
// the pipeline computed.
func coachContextBlock(cc CoachContext) string {
	var sb strings.Builder

	sb.WriteString("CONTEXT\n-------\n")
	fmt.Fprintf(&sb, "TITLE: %s\n", orNone(cc.Title))
	fmt.Fprintf(&sb, "DESCRIPTION: %s\n\n", orNone(cc.Description))

	metricsJSON, _ := json.Marshal(cc.Metrics)
	fmt.Fprintf(&sb, "PIXEL_METRICS:\n%s\n\n", metricsJSON)

	if cc.Vision != nil {
		visionJSON, _ := json.Marshal(cc.Vision)
		fmt.Fprintf(&sb, "VISION_ANALYSIS:\n%s\n\n", visionJSON)
	} else {
		sb.WriteString("VISION_ANALYSIS: unavailable\n\n")
	}

	fmt.Fprintf(&sb, "CREATOR_HISTORY_SUMMARY:\n%s\n", orNone(cc.StyleSummary))
	return sb.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}
