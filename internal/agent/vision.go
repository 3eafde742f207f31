package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fpang/thumbnail-reviewer/internal/assets"
	"github.com/fpang/thumbnail-reviewer/internal/imaging"
	"github.com/fpang/thumbnail-reviewer/internal/jsonutil"
	"github.com/fpang/thumbnail-reviewer/internal/review"
)

// Vision describes what the viewer actually sees in the thumbnail. It is the
// first capability in the chain; its output feeds the Coach and Engagement
// contexts.
type Vision struct {
	inv     Invoker
	timeout time.Duration
}

// NewVision creates a Vision agent with the given time budget per call.
func NewVision(inv Invoker, timeout time.Duration) *Vision {
	return &Vision{inv: inv, timeout: timeout}
}

// visionResponse is the wire schema for the Vision variant. Unknown fields in
// the model response are dropped by the JSON decoder; missing fields default
// to their zero values and are normalized afterwards.
type visionResponse struct {
	Subjects      []string `json:"subjects"`
	Composition   string   `json:"composition"`
	EmotionalTone string   `json:"emotional_tone"`
	ColorProfile  string   `json:"color_profile"`
	StyleTags     []string `json:"style_tags"`
}

// Analyze sends the image to the backend and maps the response into a
// VisionDescription.
func (v *Vision) Analyze(ctx context.Context, sample *imaging.ImageSample) (*review.VisionDescription, error) {
	parts := []Part{
		BlobPart(sample.Raw(), sample.MIMEType()),
		TextPart(visionMetadataBlock(sample)),
	}

	raw, err := invoke(ctx, v.inv, NameVision, v.timeout, assets.VisionSystemPrompt, parts)
	if err != nil {
		return nil, err
	}

	resp, err := jsonutil.ParseJSON[visionResponse](raw)
	if err != nil {
		return nil, schemaErr(NameVision, err)
	}

	desc := &review.VisionDescription{
		Subjects:      resp.Subjects,
		Composition:   resp.Composition,
		EmotionalTone: resp.EmotionalTone,
		ColorProfile:  resp.ColorProfile,
		StyleTags:     resp.StyleTags,
	}
	desc.Normalize()
	return desc, nil
}

// visionMetadataBlock renders the deterministic facts about the image so the
// model does not have to guess resolution or capture context.
func visionMetadataBlock(s *imaging.ImageSample) string {
	var sb strings.Builder
	sb.WriteString("IMAGE_METADATA:\n")
	fmt.Fprintf(&sb, "- width: %d\n", s.Width)
	fmt.Fprintf(&sb, "- height: %d\n", s.Height)
	fmt.Fprintf(&sb, "- aspect_ratio: %.2f (16:9 is 1.78)\n", s.AspectRatio())
	fmt.Fprintf(&sb, "- format: %s\n", s.Format)

	if c := s.Capture; c != nil {
		if c.CameraMake != "" || c.CameraModel != "" {
			fmt.Fprintf(&sb, "- camera: %s %s\n", c.CameraMake, c.CameraModel)
		}
		if c.HasTaken {
			fmt.Fprintf(&sb, "- captured: %s\n", c.Taken.Format("2006-01-02"))
		}
	}
	return sb.String()
}
