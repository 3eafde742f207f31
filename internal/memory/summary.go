package memory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fpang/thumbnail-reviewer/internal/review"
)

// Summarize derives the creator-style summary from the most recent window of
// reviews: the dominant style tags, the average combined score, and the score
// trend. It is a pure function so the same history always produces the same
// summary, and an empty history produces an empty summary.
func Summarize(history []review.ReviewResult, window int) string {
	if len(history) == 0 {
		return ""
	}
	if window <= 0 {
		window = len(history)
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	var parts []string

	var sum float64
	for _, r := range history {
		sum += r.CombinedScore
	}
	avg := sum / float64(len(history))
	parts = append(parts, fmt.Sprintf("recent scores average %.1f (%s)", avg, trend(history)))

	if tags := topStyleTags(history, 3); len(tags) > 0 {
		parts = append(parts, "frequent style tags: "+strings.Join(tags, ", "))
	}

	if last := history[len(history)-1]; last.Coach != nil && last.Coach.Verdict != "" {
		parts = append(parts, "last verdict: "+last.Coach.Verdict)
	}

	return strings.Join(parts, "; ")
}

// trend compares the first and second half of the window. A half-point mean
// shift is required before we call a direction, so single noisy scores do not
// flip the label.
func trend(history []review.ReviewResult) string {
	if len(history) < 4 {
		return "steady"
	}
	mid := len(history) / 2
	first := meanScore(history[:mid])
	second := meanScore(history[mid:])

	switch {
	case second-first > 0.5:
		return "improving"
	case first-second > 0.5:
		return "declining"
	default:
		return "steady"
	}
}

func meanScore(rs []review.ReviewResult) float64 {
	if len(rs) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rs {
		sum += r.CombinedScore
	}
	return sum / float64(len(rs))
}

// topStyleTags returns up to limit tags ranked by frequency across the
// window, ties broken by first appearance for determinism.
func topStyleTags(history []review.ReviewResult, limit int) []string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	order := 0

	for _, r := range history {
		if r.Vision == nil {
			continue
		}
		for _, tag := range r.Vision.StyleTags {
			if tag == "" {
				continue
			}
			if _, ok := counts[tag]; !ok {
				firstSeen[tag] = order
				order++
			}
			counts[tag]++
		}
	}

	tags := make([]string, 0, len(counts))
	for t := range counts {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return firstSeen[tags[i]] < firstSeen[tags[j]]
	})

	if len(tags) > limit {
		tags = tags[:limit]
	}
	return tags
}
