package review

// Weights are the fusion blend weights. They are injected from configuration
// and renormalized over the signals actually present, so absent agents reduce
// informativeness without dragging the score toward zero.
type Weights struct {
	Metrics    float64
	Coach      float64
	Engagement float64
}

// Brightness band for the metrics composite: mean luminance inside
// [brightLow, brightHigh] scores 1.0, falling off linearly to 0 at the
// extremes. Thumbnails in this band read well in a bright feed without
// looking washed out.
const (
	brightLow  = 90.0
	brightHigh = 180.0
)

// contrastFull is the luminance stddev treated as full contrast. Typical
// flat screenshots sit below 30; punchy thumbnails exceed 50.
const contrastFull = 50.0

// MetricsComposite folds the four sub-metrics into one [0, 1] score:
// 0.25*brightness band + 0.35*contrast + 0.20*aspect fit + 0.20*clarity.
// Contrast carries the largest share because flat images underperform in
// feeds regardless of subject.
func MetricsComposite(m MetricsResult) float64 {
	composite := 0.25*brightnessBand(m.Brightness) +
		0.35*clamp(m.Contrast/contrastFull, 0, 1) +
		0.20*clamp(m.AspectRatioFit, 0, 1) +
		0.20*clamp(m.ClarityScore, 0, 1)
	return clamp(composite, 0, 1)
}

func brightnessBand(b float64) float64 {
	switch {
	case b <= 0 || b >= 255:
		return 0
	case b < brightLow:
		return b / brightLow
	case b > brightHigh:
		return (255 - b) / (255 - brightHigh)
	default:
		return 1
	}
}

// CombinedScore blends whatever signals are present into one [0, 10] score.
// Absent agents are excluded from both the numerator and the weight sum; the
// metrics signal is always present so the denominator is never zero for any
// positive metrics weight.
func CombinedScore(m MetricsResult, coach *CoachReview, engagement *EngagementPrediction, w Weights) float64 {
	sum := w.Metrics * MetricsComposite(m) * 10
	weightSum := w.Metrics

	if coach != nil {
		sum += w.Coach * clamp(coach.QualityScore, 0, 10)
		weightSum += w.Coach
	}
	if engagement != nil {
		sum += w.Engagement * clamp(engagement.CTRScore, 0, 1) * 10
		weightSum += w.Engagement
	}

	if weightSum == 0 {
		// All configured weights for present signals are zero; fall back to
		// the metrics composite so the caller still gets a usable number.
		return clamp(MetricsComposite(m)*10, 0, 10)
	}
	return clamp(sum/weightSum, 0, 10)
}
