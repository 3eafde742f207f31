package agent

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/fpang/thumbnail-reviewer/internal/imaging"
	"github.com/fpang/thumbnail-reviewer/internal/review"
)

// fakeInvoker returns canned responses or errors, or blocks until the
// context is done when block is set.
type fakeInvoker struct {
	response string
	err      error
	block    bool

	calls       int
	lastSystem  string
	lastParts   []Part
	gotDeadline bool
}

func (f *fakeInvoker) Generate(ctx context.Context, system string, parts ...Part) (string, error) {
	f.calls++
	f.lastSystem = system
	f.lastParts = parts
	_, f.gotDeadline = ctx.Deadline()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testSample(t *testing.T) *imaging.ImageSample {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 160, 90))
	for y := 0; y < 90; y++ {
		for x := 0; x < 160; x++ {
			img.Set(x, y, color.Gray{Y: 120})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	s, err := imaging.NewSample(buf.Bytes(), 0)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestVisionAnalyze(t *testing.T) {
	inv := &fakeInvoker{response: "```json\n" + `{
		"subjects": ["person pointing", "red arrow"],
		"composition": "subject left, arrow pointing right",
		"emotional_tone": "excited",
		"color_profile": "saturated warm palette",
		"style_tags": ["bold", "bold", "modern"]
	}` + "\n```"}

	v := NewVision(inv, time.Second)
	got, err := v.Analyze(context.Background(), testSample(t))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if len(got.Subjects) != 2 || got.Subjects[0] != "person pointing" {
		t.Errorf("Subjects = %v", got.Subjects)
	}
	if len(got.StyleTags) != 2 {
		t.Errorf("StyleTags = %v, want deduplicated to 2", got.StyleTags)
	}
	if !inv.gotDeadline {
		t.Error("invoke should apply a deadline to the backend call")
	}
	if len(inv.lastParts) != 2 || inv.lastParts[0].Data == nil {
		t.Errorf("vision request should carry image blob + metadata text, got %d parts", len(inv.lastParts))
	}
}

func TestVisionSchemaError(t *testing.T) {
	inv := &fakeInvoker{response: "the image shows a cat, no JSON for you"}
	v := NewVision(inv, time.Second)

	_, err := v.Analyze(context.Background(), testSample(t))
	var ae *Error
	if !errors.As(err, &ae) {
		t.Fatalf("Analyze() error = %v, want *Error", err)
	}
	if ae.Kind != KindSchema {
		t.Errorf("Kind = %v, want schema", ae.Kind)
	}
	if ae.Retryable() {
		t.Error("schema errors must not be retryable")
	}
}

func TestVisionTimeout(t *testing.T) {
	inv := &fakeInvoker{block: true}
	v := NewVision(inv, 10*time.Millisecond)

	_, err := v.Analyze(context.Background(), testSample(t))
	var ae *Error
	if !errors.As(err, &ae) {
		t.Fatalf("Analyze() error = %v, want *Error", err)
	}
	if ae.Kind != KindTimeout {
		t.Errorf("Kind = %v, want timeout", ae.Kind)
	}
	if !ae.Retryable() {
		t.Error("timeouts should be retryable")
	}
}

func TestVisionCallerCancellation(t *testing.T) {
	inv := &fakeInvoker{block: true}
	v := NewVision(inv, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := v.Analyze(ctx, testSample(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Analyze() error = %v, want context.Canceled", err)
	}
	var ae *Error
	if errors.As(err, &ae) {
		t.Error("caller cancellation must not be classified as an agent error")
	}
}

func TestCoachAnalyzeClampsScore(t *testing.T) {
	inv := &fakeInvoker{response: `{
		"verdict": "Strong concept, weak execution.",
		"quality_score": 14.5,
		"strengths": ["clear subject"]
	}`}

	c := NewCoach(inv, time.Second)
	got, err := c.Analyze(context.Background(), CoachContext{
		Sample:  testSample(t),
		Metrics: review.MetricsResult{Brightness: 120, Contrast: 40, AspectRatioFit: 1, ClarityScore: 0.3},
		Vision:  &review.VisionDescription{Composition: "centered"},
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if got.QualityScore != 10 {
		t.Errorf("QualityScore = %v, want clamped to 10", got.QualityScore)
	}
	if got.Weaknesses == nil || got.Suggestions == nil {
		t.Error("absent list fields should default to empty slices")
	}
	if got.Verdict != "Strong concept, weak execution." {
		t.Errorf("Verdict = %q", got.Verdict)
	}
}

func TestCoachContextIncludesHistory(t *testing.T) {
	inv := &fakeInvoker{response: `{"verdict": "ok", "quality_score": 5}`}
	c := NewCoach(inv, time.Second)

	_, err := c.Analyze(context.Background(), CoachContext{
		Sample:       testSample(t),
		Vision:       &review.VisionDescription{},
		StyleSummary: "frequent tags: cinematic; average score 7.2 (improving)",
		Title:        "I Built a Treehouse",
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	ctxBlock := inv.lastParts[1].Text
	for _, want := range []string{"I Built a Treehouse", "frequent tags: cinematic"} {
		if !bytes.Contains([]byte(ctxBlock), []byte(want)) {
			t.Errorf("coach context missing %q:\n%s", want, ctxBlock)
		}
	}
}

func TestEngagementAnalyze(t *testing.T) {
	inv := &fakeInvoker{response: `{"ctr_score": 1.4, "confidence": -0.3, "rationale": " bold framing "}`}
	e := NewEngagement(inv, time.Second)

	got, err := e.Analyze(context.Background(), EngagementContext{
		Metrics:      review.MetricsResult{Brightness: 120},
		CoachVerdict: "solid",
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if got.CTRScore != 1 {
		t.Errorf("CTRScore = %v, want clamped to 1", got.CTRScore)
	}
	if got.Confidence != 0 {
		t.Errorf("Confidence = %v, want clamped to 0", got.Confidence)
	}
	if got.Rationale != "bold framing" {
		t.Errorf("Rationale = %q, want trimmed", got.Rationale)
	}
	// Engagement never sees the image.
	for _, p := range inv.lastParts {
		if p.Data != nil {
			t.Error("engagement request must not carry image data")
		}
	}
}

func TestEngagementTransportError(t *testing.T) {
	inv := &fakeInvoker{err: errors.New("429 rate limited")}
	e := NewEngagement(inv, time.Second)

	_, err := e.Analyze(context.Background(), EngagementContext{})
	var ae *Error
	if !errors.As(err, &ae) {
		t.Fatalf("Analyze() error = %v, want *Error", err)
	}
	if ae.Kind != KindTransport {
		t.Errorf("Kind = %v, want transport", ae.Kind)
	}
}
