// Package imaging handles thumbnail ingestion and deterministic pixel
// analysis. It decodes uploaded bytes into an immutable ImageSample and
// derives the heuristic metrics that feed the fusion pipeline.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// supportedFormats is the allowlist of decodable thumbnail formats, keyed by
// the format name reported by image.Decode.
var supportedFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"webp": true,
	"gif":  true,
}

// maxWorkingDimension bounds the pixel grid the metrics engine walks. Larger
// uploads are downscaled with a deterministic nearest-neighbour pass so two
// analyses of the same bytes always see the same pixels.
const maxWorkingDimension = 2048

// ValidationError reports a malformed input image: zero dimensions, an
// unsupported format, or an oversized payload. It is the only error class
// that aborts an analysis before any agent is dispatched.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid image: " + e.Reason
}

// CaptureInfo is optional EXIF-derived context attached to a sample. It is
// surfaced to the vision prompt when present; absence is never an error since
// exported thumbnails usually carry no metadata.
type CaptureInfo struct {
	CameraMake  string
	CameraModel string
	Taken       time.Time
	HasTaken    bool
}

// ImageSample is an immutable decoded thumbnail. Construct with NewSample;
// never mutate after ingestion.
type ImageSample struct {
	Width   int
	Height  int
	Format  string
	Size    int64
	Capture *CaptureInfo

	// raw is the original upload, kept for forwarding to capability agents.
	raw []byte
	// img is the working pixel grid (possibly downscaled from the original).
	img image.Image
}

// NewSample validates and decodes the uploaded bytes into an ImageSample.
// maxBytes caps the accepted payload size. All failure paths return a
// *ValidationError.
func NewSample(data []byte, maxBytes int64) (*ImageSample, error) {
	if len(data) == 0 {
		return nil, &ValidationError{Reason: "empty payload"}
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, &ValidationError{Reason: fmt.Sprintf("payload %d bytes exceeds limit %d", len(data), maxBytes)}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("undecodable image: %v", err)}
	}
	if !supportedFormats[format] {
		return nil, &ValidationError{Reason: fmt.Sprintf("unsupported format %q", format)}
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, &ValidationError{Reason: fmt.Sprintf("degenerate dimensions %dx%d", w, h)}
	}

	s := &ImageSample{
		Width:  w,
		Height: h,
		Format: format,
		Size:   int64(len(data)),
		raw:    data,
		img:    normalizeWorkingImage(img, w, h),
	}
	s.Capture = extractCaptureInfo(data)

	log.Debug().
		Int("width", w).
		Int("height", h).
		Str("format", format).
		Int64("bytes", s.Size).
		Bool("has_exif", s.Capture != nil).
		Msg("Image sample ingested")

	return s, nil
}

// Raw returns the original upload bytes for forwarding to a capability agent.
// Callers must not modify the returned slice.
func (s *ImageSample) Raw() []byte {
	return s.raw
}

// MIMEType returns the MIME type matching the decoded format.
func (s *ImageSample) MIMEType() string {
	return "image/" + s.Format
}

// AspectRatio returns width/height of the original image.
func (s *ImageSample) AspectRatio() float64 {
	return float64(s.Width) / float64(s.Height)
}

// normalizeWorkingImage downscales oversized images so metric computation
// stays cheap. NearestNeighbor is used because it is fully deterministic and
// the metrics only need a representative pixel grid, not a pretty one.
func normalizeWorkingImage(img image.Image, w, h int) image.Image {
	if w <= maxWorkingDimension && h <= maxWorkingDimension {
		return img
	}

	scale := float64(maxWorkingDimension) / float64(max(w, h))
	dw := max(1, int(float64(w)*scale))
	dh := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	log.Debug().
		Int("src_width", w).
		Int("src_height", h).
		Int("dst_width", dw).
		Int("dst_height", dh).
		Msg("Downscaled working image for metrics")

	return dst
}

// extractCaptureInfo pulls camera make/model and capture time from EXIF.
// Returns nil when the image carries no usable metadata.
func extractCaptureInfo(data []byte) *CaptureInfo {
	exif, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	info := &CaptureInfo{
		CameraMake:  exif.Make,
		CameraModel: exif.Model,
	}
	if !exif.DateTimeOriginal().IsZero() {
		info.Taken = exif.DateTimeOriginal()
		info.HasTaken = true
	} else if !exif.CreateDate().IsZero() {
		info.Taken = exif.CreateDate()
		info.HasTaken = true
	}

	if info.CameraMake == "" && info.CameraModel == "" && !info.HasTaken {
		return nil
	}
	return info
}
