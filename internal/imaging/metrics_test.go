package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
)

// encodeSample renders a synthetic image through the real ingestion path so
// metrics tests exercise decode, validation, and computation together.
func encodeSample(t *testing.T, img image.Image) *ImageSample {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode synthetic image: %v", err)
	}
	s, err := NewSample(buf.Bytes(), 0)
	if err != nil {
		t.Fatalf("NewSample() error = %v", err)
	}
	return s
}

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func checkerboard(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

func TestComputeBlackImage(t *testing.T) {
	m := Compute(encodeSample(t, solidImage(160, 90, color.Black)))

	if m.Brightness > 1 {
		t.Errorf("Brightness = %v, want ~0 for pure black", m.Brightness)
	}
	if m.Contrast != 0 {
		t.Errorf("Contrast = %v, want 0 for solid color", m.Contrast)
	}
	if m.ClarityScore != 0 {
		t.Errorf("ClarityScore = %v, want 0 for solid color", m.ClarityScore)
	}
	if m.AspectRatioFit != 1 {
		t.Errorf("AspectRatioFit = %v, want 1 for exact 16:9", m.AspectRatioFit)
	}
}

func TestComputeWhiteImage(t *testing.T) {
	m := Compute(encodeSample(t, solidImage(160, 90, color.White)))
	if m.Brightness < 254 {
		t.Errorf("Brightness = %v, want ~255 for pure white", m.Brightness)
	}
}

func TestComputeMidGray(t *testing.T) {
	m := Compute(encodeSample(t, solidImage(192, 108, color.Gray{Y: 128})))
	if math.Abs(m.Brightness-128) > 1 {
		t.Errorf("Brightness = %v, want ~128 for mid-gray", m.Brightness)
	}
	if m.Contrast != 0 {
		t.Errorf("Contrast = %v, want 0", m.Contrast)
	}
}

func TestComputeCheckerboard(t *testing.T) {
	m := Compute(encodeSample(t, checkerboard(160, 90)))

	if m.Contrast < 100 {
		t.Errorf("Contrast = %v, want high for checkerboard", m.Contrast)
	}
	if m.ClarityScore < 0.9 {
		t.Errorf("ClarityScore = %v, want near 1 for 1px checkerboard", m.ClarityScore)
	}
	if math.Abs(m.Brightness-127.5) > 5 {
		t.Errorf("Brightness = %v, want ~127.5 for 50%% checkerboard", m.Brightness)
	}
}

func TestComputeBounds(t *testing.T) {
	samples := []*ImageSample{
		encodeSample(t, solidImage(10, 300, color.White)), // extreme portrait
		encodeSample(t, checkerboard(33, 17)),             // odd dimensions
		encodeSample(t, solidImage(1, 1, color.Black)),    // single pixel
	}

	for i, s := range samples {
		m := Compute(s)
		if m.Brightness < 0 || m.Brightness > 255 {
			t.Errorf("sample %d: Brightness = %v, out of [0, 255]", i, m.Brightness)
		}
		if m.Contrast < 0 {
			t.Errorf("sample %d: Contrast = %v, want >= 0", i, m.Contrast)
		}
		if m.AspectRatioFit < 0 || m.AspectRatioFit > 1 {
			t.Errorf("sample %d: AspectRatioFit = %v, out of [0, 1]", i, m.AspectRatioFit)
		}
		if m.ClarityScore < 0 || m.ClarityScore > 1 {
			t.Errorf("sample %d: ClarityScore = %v, out of [0, 1]", i, m.ClarityScore)
		}
	}
}

func TestAspectRatioFit(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  float64
	}{
		{"exact 16:9", 16.0 / 9.0, 1},
		{"square", 1.0, 1 - (16.0/9.0 - 1.0)},
		{"far off", 4.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := aspectRatioFit(tt.ratio)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("aspectRatioFit(%v) = %v, want %v", tt.ratio, got, tt.want)
			}
		})
	}
}

func TestComputeDeterministic(t *testing.T) {
	s := encodeSample(t, checkerboard(320, 180))
	first := Compute(s)
	for i := 0; i < 3; i++ {
		if got := Compute(s); got != first {
			t.Fatalf("Compute() run %d = %+v, want %+v (must be deterministic)", i, got, first)
		}
	}
}

func TestNearSixteenNineFit(t *testing.T) {
	near := Compute(encodeSample(t, solidImage(1600, 920, color.Gray{Y: 128}))) // ratio 1.739
	exact := Compute(encodeSample(t, solidImage(1600, 900, color.Gray{Y: 128})))
	if near.AspectRatioFit >= exact.AspectRatioFit {
		t.Errorf("near-ratio fit %v should be below exact fit %v", near.AspectRatioFit, exact.AspectRatioFit)
	}
	if near.AspectRatioFit < 0.9 {
		t.Errorf("near-ratio fit %v should still be high", near.AspectRatioFit)
	}
}
