package review

import "fmt"

// BuildNarrative assembles the short reader-facing review lines for a fused
// result: a score-banded top line, the coach's strengths and suggestions, and
// the engagement outlook. Missing agents simply contribute nothing.
func BuildNarrative(r *ReviewResult) []string {
	lines := []string{topLine(r.CombinedScore)}

	if r.Coach != nil {
		if r.Coach.Verdict != "" {
			lines = append(lines, "Coach perspective: "+r.Coach.Verdict)
		}
		if len(r.Coach.Strengths) > 0 {
			lines = append(lines, "Strengths: "+joinCapped(r.Coach.Strengths, 3))
		}
		if len(r.Coach.Suggestions) > 0 {
			lines = append(lines, "Improvements: "+joinCapped(r.Coach.Suggestions, 4))
		}
	}

	if r.Engagement != nil {
		outlook := fmt.Sprintf("Engagement outlook %.1f/10", r.Engagement.CTRScore*10)
		if r.Engagement.Rationale != "" {
			outlook += " - " + r.Engagement.Rationale
		}
		lines = append(lines, outlook)
	}

	if r.Degraded() {
		lines = append(lines, "AI analysis was unavailable; this review is based on pixel metrics only.")
	}

	return lines
}

func topLine(score float64) string {
	switch {
	case score >= 8.5:
		return fmt.Sprintf("Already a strong modern thumbnail (%.1f/10); the ideas below are optional optimizations.", score)
	case score >= 7.0:
		return fmt.Sprintf("Solid thumbnail (%.1f/10) that can be pushed further with a few targeted changes.", score)
	case score >= 5.5:
		return fmt.Sprintf("Thumbnail is understandable (%.1f/10), but needs visual upgrades to compete in today's feed.", score)
	default:
		return fmt.Sprintf("Thumbnail needs a clearer, more modern redesign (%.1f/10) to feel competitive.", score)
	}
}

func joinCapped(items []string, limit int) string {
	if len(items) > limit {
		items = items[:limit]
	}
	out := ""
	for i, s := range items {
		if i > 0 {
			out += "; "
		}
		out += s
	}
	return out + "."
}
