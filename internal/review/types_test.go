package review

import (
	"testing"
)

func TestVisionDescriptionNormalize(t *testing.T) {
	v := &VisionDescription{
		StyleTags: []string{"cinematic", "bold", "cinematic", "", "bold"},
	}
	v.Normalize()

	if v.Subjects == nil {
		t.Error("Subjects should default to an empty slice")
	}
	want := []string{"cinematic", "bold"}
	if len(v.StyleTags) != len(want) {
		t.Fatalf("StyleTags = %v, want %v", v.StyleTags, want)
	}
	for i := range want {
		if v.StyleTags[i] != want[i] {
			t.Errorf("StyleTags[%d] = %q, want %q", i, v.StyleTags[i], want[i])
		}
	}
}

func TestCoachReviewNormalize(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  float64
	}{
		{"above range", 14.2, 10},
		{"below range", -3, 0},
		{"in range", 7.5, 7.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &CoachReview{QualityScore: tt.score}
			c.Normalize()
			if c.QualityScore != tt.want {
				t.Errorf("QualityScore = %v, want %v", c.QualityScore, tt.want)
			}
			if c.Strengths == nil || c.Weaknesses == nil || c.Suggestions == nil {
				t.Error("list fields should default to empty slices")
			}
		})
	}
}

func TestEngagementPredictionNormalize(t *testing.T) {
	e := &EngagementPrediction{CTRScore: 1.7, Confidence: -0.2}
	e.Normalize()
	if e.CTRScore != 1 {
		t.Errorf("CTRScore = %v, want 1", e.CTRScore)
	}
	if e.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", e.Confidence)
	}
}

func TestReviewResultDegraded(t *testing.T) {
	r := &ReviewResult{}
	if !r.Degraded() {
		t.Error("Degraded() = false for metrics-only result, want true")
	}
	r.Coach = &CoachReview{}
	if r.Degraded() {
		t.Error("Degraded() = true with coach present, want false")
	}
}

func TestBuildNarrative(t *testing.T) {
	r := &ReviewResult{
		CombinedScore: 8.0,
		Coach: &CoachReview{
			Verdict:     "Strong framing, weak text hierarchy.",
			Strengths:   []string{"clear subject", "good color separation"},
			Suggestions: []string{"bigger text", "crop tighter"},
		},
		Engagement: &EngagementPrediction{CTRScore: 0.72, Rationale: "curiosity-driven framing"},
	}

	lines := BuildNarrative(r)
	if len(lines) < 4 {
		t.Fatalf("BuildNarrative() returned %d lines, want at least 4: %v", len(lines), lines)
	}
	if lines[0] == "" {
		t.Error("top line should not be empty")
	}
}

func TestBuildNarrativeDegraded(t *testing.T) {
	r := &ReviewResult{CombinedScore: 4.2}
	lines := BuildNarrative(r)

	found := false
	for _, l := range lines {
		if l == "AI analysis was unavailable; this review is based on pixel metrics only." {
			found = true
		}
	}
	if !found {
		t.Errorf("BuildNarrative() for degraded result missing metrics-only notice: %v", lines)
	}
}
