package imaging

import (
	"image"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/fpang/thumbnail-reviewer/internal/review"
)

// targetAspect is the video-thumbnail aspect ratio the fit metric rewards.
const targetAspect = 16.0 / 9.0

// aspectDeviationFloor is the |ratio - 16:9| beyond which fit bottoms out at 0.
const aspectDeviationFloor = 1.0

// maxSamplePixels bounds the number of pixels the metrics walk touches. The
// stride derived from it is a pure function of the image dimensions, so the
// same image always yields the same metrics.
const maxSamplePixels = 65536

// clarityGain scales the raw mean gradient (0-255) into a useful [0, 1]
// range. A 1px checkerboard saturates at 1.0; typical photos land between
// 0.05 and 0.6 before the gain.
const clarityGain = 4.0

// Compute derives the deterministic pixel metrics for a sample. It is a
// total function: every output is clamped into its documented range and no
// input that passed ingestion validation can make it fail.
func Compute(s *ImageSample) review.MetricsResult {
	mean, stddev, gradient := luminanceStats(s.img)

	m := review.MetricsResult{
		Brightness:     clampF(mean, 0, 255),
		Contrast:       math.Max(stddev, 0),
		AspectRatioFit: aspectRatioFit(s.AspectRatio()),
		ClarityScore:   clampF(gradient/255*clarityGain, 0, 1),
	}

	log.Debug().
		Float64("brightness", m.Brightness).
		Float64("contrast", m.Contrast).
		Float64("aspect_fit", m.AspectRatioFit).
		Float64("clarity", m.ClarityScore).
		Msg("Pixel metrics computed")

	return m
}

// aspectRatioFit maps width/height closeness to 16:9 into [0, 1]: exactly 1
// at the target ratio, decaying linearly, floored at 0 once the deviation
// reaches aspectDeviationFloor.
func aspectRatioFit(ratio float64) float64 {
	dev := math.Abs(ratio - targetAspect)
	return clampF(1-dev/aspectDeviationFloor, 0, 1)
}

// luminanceStats walks a fixed-stride grid over the image and returns the
// mean luminance, its standard deviation, and the mean absolute horizontal +
// vertical luminance gradient between neighbouring grid points.
func luminanceStats(img image.Image) (mean, stddev, gradient float64) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	stride := 1
	if w*h > maxSamplePixels {
		stride = int(math.Sqrt(float64(w*h) / float64(maxSamplePixels)))
		if stride < 1 {
			stride = 1
		}
	}

	var sum, sumSq, gradSum float64
	var count, gradCount int

	for y := bounds.Min.Y; y < bounds.Max.Y; y += stride {
		for x := bounds.Min.X; x < bounds.Max.X; x += stride {
			l := lumaAt(img, x, y)
			sum += l
			sumSq += l * l
			count++

			if x+stride < bounds.Max.X {
				gradSum += math.Abs(lumaAt(img, x+stride, y) - l)
				gradCount++
			}
			if y+stride < bounds.Max.Y {
				gradSum += math.Abs(lumaAt(img, x, y+stride) - l)
				gradCount++
			}
		}
	}

	if count == 0 {
		return 0, 0, 0
	}

	mean = sum / float64(count)
	variance := sumSq/float64(count) - mean*mean
	if variance > 0 {
		stddev = math.Sqrt(variance)
	}
	if gradCount > 0 {
		gradient = gradSum / float64(gradCount)
	}
	return mean, stddev, gradient
}

// lumaAt returns the Rec. 601 luminance of the pixel at (x, y) on a 0-255 scale.
func lumaAt(img image.Image, x, y int) float64 {
	r, g, b, _ := img.At(x, y).RGBA()
	return 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
