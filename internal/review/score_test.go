package review

import (
	"math"
	"testing"
)

var testWeights = Weights{Metrics: 0.25, Coach: 0.50, Engagement: 0.25}

func TestMetricsCompositeBounds(t *testing.T) {
	tests := []struct {
		name string
		m    MetricsResult
	}{
		{"zeroes", MetricsResult{}},
		{"mid-range", MetricsResult{Brightness: 128, Contrast: 40, AspectRatioFit: 1, ClarityScore: 0.5}},
		{"extremes", MetricsResult{Brightness: 255, Contrast: 500, AspectRatioFit: 1, ClarityScore: 1}},
		{"out of range", MetricsResult{Brightness: -10, Contrast: -5, AspectRatioFit: 2, ClarityScore: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MetricsComposite(tt.m)
			if got < 0 || got > 1 {
				t.Errorf("MetricsComposite() = %v, want value in [0, 1]", got)
			}
		})
	}
}

func TestMetricsCompositeOrdering(t *testing.T) {
	flat := MetricsComposite(MetricsResult{Brightness: 10, Contrast: 2, AspectRatioFit: 0.2, ClarityScore: 0.05})
	good := MetricsComposite(MetricsResult{Brightness: 130, Contrast: 55, AspectRatioFit: 1, ClarityScore: 0.6})
	if flat >= good {
		t.Errorf("flat image composite %v should be below strong image composite %v", flat, good)
	}
}

func TestCombinedScoreAllSignals(t *testing.T) {
	// Regression fixture: solid mid-gray 16:9 metrics with coach=8 and
	// ctr=0.7 should land in the documented 7.0-8.5 band... except that a
	// solid gray image has zero contrast and clarity, which the metrics
	// composite punishes. The fixture pins the exact blend.
	m := MetricsResult{Brightness: 128, Contrast: 0, AspectRatioFit: 1, ClarityScore: 0}
	coach := &CoachReview{QualityScore: 8}
	eng := &EngagementPrediction{CTRScore: 0.7}

	got := CombinedScore(m, coach, eng, testWeights)

	// composite = 0.25*1 + 0 + 0.2*1 + 0 = 0.45
	// score = 0.25*4.5 + 0.50*8 + 0.25*7 = 6.875
	want := 6.875
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("CombinedScore() = %v, want %v", got, want)
	}
	if got < 0 || got > 10 {
		t.Errorf("CombinedScore() = %v, out of [0, 10]", got)
	}
}

func TestCombinedScoreRenormalizesOverPresentSignals(t *testing.T) {
	m := MetricsResult{Brightness: 128, Contrast: 50, AspectRatioFit: 1, ClarityScore: 0.5}
	composite10 := MetricsComposite(m) * 10

	tests := []struct {
		name  string
		coach *CoachReview
		eng   *EngagementPrediction
		want  float64
	}{
		{
			name: "metrics only",
			want: composite10,
		},
		{
			name:  "metrics + coach",
			coach: &CoachReview{QualityScore: 9},
			want:  (0.25*composite10 + 0.50*9) / 0.75,
		},
		{
			name: "metrics + engagement",
			eng:  &EngagementPrediction{CTRScore: 0.8},
			want: (0.25*composite10 + 0.25*8) / 0.50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CombinedScore(m, tt.coach, tt.eng, testWeights)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CombinedScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCombinedScoreMetricsOnlyNotZero(t *testing.T) {
	// All capability agents absent must not zero the score: it derives from
	// the metrics composite alone.
	m := MetricsResult{Brightness: 130, Contrast: 45, AspectRatioFit: 1, ClarityScore: 0.4}
	got := CombinedScore(m, nil, nil, testWeights)
	if got <= 0 {
		t.Errorf("CombinedScore() with agents absent = %v, want > 0", got)
	}
}

func TestCombinedScoreClamped(t *testing.T) {
	m := MetricsResult{Brightness: 128, Contrast: 500, AspectRatioFit: 1, ClarityScore: 1}
	coach := &CoachReview{QualityScore: 25} // out-of-contract input
	got := CombinedScore(m, coach, &EngagementPrediction{CTRScore: 3}, testWeights)
	if got < 0 || got > 10 {
		t.Errorf("CombinedScore() = %v, out of [0, 10]", got)
	}
}

func TestCombinedScoreZeroWeightFallback(t *testing.T) {
	m := MetricsResult{Brightness: 128, Contrast: 50, AspectRatioFit: 1, ClarityScore: 0.5}
	got := CombinedScore(m, nil, nil, Weights{Metrics: 0, Coach: 1, Engagement: 1})
	want := MetricsComposite(m) * 10
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("CombinedScore() zero-weight fallback = %v, want %v", got, want)
	}
}
