// Package assets provides embedded static assets for the reviewer.
//
// Prompt templates are stored as text files under prompts/ and embedded at
// compile time, keeping prompt wording reviewable without touching Go code.
package assets

import (
	_ "embed"
)

// VisionSystemPrompt instructs the model to describe what a viewer actually
// sees in the thumbnail, as structured JSON.
//
//go:embed prompts/vision-system.txt
var VisionSystemPrompt string

// CoachSystemPrompt instructs the model to critique the thumbnail like a
// senior designer, with strict JSON-only output.
//
//go:embed prompts/coach-system.txt
var CoachSystemPrompt string

// EngagementSystemPrompt instructs the model to predict click-through
// potential from the upstream analysis, as structured JSON.
//
//go:embed prompts/engagement-system.txt
var EngagementSystemPrompt string
