// Package imaging normalises inbound images: bounded width, JPEG output.
package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/mattjoyce/imagerelay/internal/domain"
)

const (
	DefaultMaxWidth = 1200
	DefaultQuality  = 80
	// DefaultMaxPixels caps the decoded size of an input image (width*height).
	DefaultMaxPixels int64 = 50_000_000
)

// ErrImageTooLarge reports an input whose declared dimensions exceed the
// pixel limit. It is detected from the header, before any pixel is decoded.
var ErrImageTooLarge = errors.New("image exceeds pixel limit")

// Transformer applies Transform with fixed parameters.
type Transformer struct {
	maxWidth  int
	quality   int
	maxPixels int64
}

type Option func(*Transformer)

// WithMaxPixels sets the decoded pixel limit. Non-positive values keep
// DefaultMaxPixels.
func WithMaxPixels(n int64) Option {
	return func(t *Transformer) {
		if n > 0 {
			t.maxPixels = n
		}
	}
}

// NewTransformer returns a Transformer. Non-positive maxWidth falls back to
// DefaultMaxWidth; quality is clamped to 1..100.
func NewTransformer(maxWidth, quality int, opts ...Option) *Transformer {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	t := &Transformer{maxWidth: maxWidth, quality: clampQuality(quality), maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transform decodes blob, scales it down to the configured width and encodes
// it as JPEG under a fresh random filename.
func (t *Transformer) Transform(ctx context.Context, blob domain.RawMediaBlob) (domain.TransformedAsset, error) {
	return transform(ctx, blob, t.maxWidth, t.quality, t.maxPixels)
}

// Transform is the pure transform with DefaultMaxPixels. Given identical
// input it produces identical bytes; only the filename differs between calls.
func Transform(blob domain.RawMediaBlob, maxWidth, quality int) (domain.TransformedAsset, error) {
	return transform(context.Background(), blob, maxWidth, quality, DefaultMaxPixels)
}

// CheckDimensions reads only the image header and rejects inputs larger than
// maxPixels.
func CheckDimensions(data []byte, maxPixels int64) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", fmt.Errorf("decode header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return cfg, format, fmt.Errorf("degenerate %s image %dx%d", format, cfg.Width, cfg.Height)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return cfg, format, fmt.Errorf("%w: %s image %dx%d, limit %d pixels",
			ErrImageTooLarge, format, cfg.Width, cfg.Height, maxPixels)
	}
	return cfg, format, nil
}

func transform(ctx context.Context, blob domain.RawMediaBlob, maxWidth, quality int, maxPixels int64) (domain.TransformedAsset, error) {
	if err := ctx.Err(); err != nil {
		return domain.TransformedAsset{}, domain.NewStageError(domain.StageTransform, err)
	}
	if len(blob.Data) == 0 {
		return domain.TransformedAsset{}, domain.NewStageError(domain.StageTransform, fmt.Errorf("empty input"))
	}
	if _, _, err := CheckDimensions(blob.Data, maxPixels); err != nil {
		return domain.TransformedAsset{}, domain.NewStageError(domain.StageTransform, err)
	}

	src, format, err := image.Decode(bytes.NewReader(blob.Data))
	if err != nil {
		return domain.TransformedAsset{}, domain.NewStageError(domain.StageTransform, fmt.Errorf("decode: %w", err))
	}
	if err := ctx.Err(); err != nil {
		return domain.TransformedAsset{}, domain.NewStageError(domain.StageTransform, err)
	}

	b := src.Bounds()
	w, h := TargetSize(b.Dx(), b.Dy(), maxWidth)
	if w == 0 || h == 0 {
		return domain.TransformedAsset{}, domain.NewStageError(domain.StageTransform,
			fmt.Errorf("degenerate %s image %dx%d", format, b.Dx(), b.Dy()))
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: clampQuality(quality)}); err != nil {
		return domain.TransformedAsset{}, domain.NewStageError(domain.StageTransform, fmt.Errorf("encode: %w", err))
	}

	return domain.TransformedAsset{
		Data:     buf.Bytes(),
		Filename: NewFilename(),
		Width:    w,
		Height:   h,
	}, nil
}

// TargetSize returns the output dimensions. Images wider than maxWidth are
// scaled down preserving aspect ratio; narrower ones keep their size.
func TargetSize(width, height, maxWidth int) (int, int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	if maxWidth <= 0 || width <= maxWidth {
		return width, height
	}
	h := int(math.Round(float64(height) * float64(maxWidth) / float64(width)))
	if h < 1 {
		h = 1
	}
	return maxWidth, h
}

// NewFilename returns a collision-resistant name for a transformed asset.
func NewFilename() string {
	return uuid.NewString() + "." + domain.DefaultImageFormat
}

func clampQuality(q int) int {
	switch {
	case q <= 0:
		return DefaultQuality
	case q > 100:
		return 100
	default:
		return q
	}
}
