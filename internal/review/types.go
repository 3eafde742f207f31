// Package review defines the result data model shared by the analyzers and
// the fusion scoring that merges their partial outputs into one verdict.
package review

import (
	"time"
)

// MetricsResult holds the deterministic pixel heuristics. It is recomputed on
// every analysis and always present in a ReviewResult.
type MetricsResult struct {
	Brightness     float64 `json:"brightness"`     // mean luminance, 0-255
	Contrast       float64 `json:"contrast"`       // luminance stddev, >= 0
	AspectRatioFit float64 `json:"aspectRatioFit"` // closeness to 16:9, 0-1
	ClarityScore   float64 `json:"clarityScore"`   // edge-energy proxy, 0-1
}

// VisionDescription is the Vision agent's structured account of what the
// viewer actually sees. Fields missing from the model response stay empty.
type VisionDescription struct {
	Subjects      []string `json:"subjects"`
	Composition   string   `json:"composition"`
	EmotionalTone string   `json:"emotionalTone"`
	ColorProfile  string   `json:"colorProfile"`
	StyleTags     []string `json:"styleTags"`
}

// Normalize replaces nil slices with empty ones and deduplicates style tags
// preserving first-seen order, so downstream consumers never branch on nil.
func (v *VisionDescription) Normalize() {
	if v.Subjects == nil {
		v.Subjects = []string{}
	}
	v.StyleTags = dedupe(v.StyleTags)
}

// CoachReview is the Coach agent's structured critique.
type CoachReview struct {
	Verdict      string   `json:"verdict"`
	QualityScore float64  `json:"qualityScore"` // clamped to [0, 10]
	Strengths    []string `json:"strengths"`
	Weaknesses   []string `json:"weaknesses"`
	Suggestions  []string `json:"suggestions"`
}

// Normalize clamps the quality score into [0, 10] and defaults absent lists
// to empty slices.
func (c *CoachReview) Normalize() {
	c.QualityScore = clamp(c.QualityScore, 0, 10)
	if c.Strengths == nil {
		c.Strengths = []string{}
	}
	if c.Weaknesses == nil {
		c.Weaknesses = []string{}
	}
	if c.Suggestions == nil {
		c.Suggestions = []string{}
	}
}

// EngagementPrediction is the Engagement agent's click-through outlook.
type EngagementPrediction struct {
	CTRScore   float64 `json:"ctrScore"`   // clamped to [0, 1]
	Confidence float64 `json:"confidence"` // clamped to [0, 1]
	Rationale  string  `json:"rationale"`
}

// Normalize clamps both scores into [0, 1].
func (e *EngagementPrediction) Normalize() {
	e.CTRScore = clamp(e.CTRScore, 0, 1)
	e.Confidence = clamp(e.Confidence, 0, 1)
}

// ReviewResult is the aggregate verdict for one analysis. Metrics is always
// present; the agent fields are nil when the corresponding agent failed, with
// the failure recorded in AgentErrors. Immutable once constructed.
type ReviewResult struct {
	Timestamp     time.Time             `json:"timestamp"`
	Title         string                `json:"title,omitempty"`
	Metrics       MetricsResult         `json:"metrics"`
	Vision        *VisionDescription    `json:"vision,omitempty"`
	Coach         *CoachReview          `json:"coach,omitempty"`
	Engagement    *EngagementPrediction `json:"engagement,omitempty"`
	CombinedScore float64               `json:"combinedScore"` // 0-10
	AgentErrors   map[string]string     `json:"agentErrors,omitempty"`
	Warnings      []string              `json:"warnings,omitempty"`
	Narrative     []string              `json:"narrative"`
}

// Degraded reports whether every capability agent failed and the verdict is
// therefore derived from pixel metrics alone.
func (r *ReviewResult) Degraded() bool {
	return r.Vision == nil && r.Coach == nil && r.Engagement == nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
