// Package histogram provides a local image embedder that needs no model.
//
// An image is reduced to its RGB colour distribution: each channel is split
// into Bins buckets and the embedding holds the fraction of pixels falling
// into each of the Bins^3 colour cells. Similar-looking product photos
// (same colours, same background) land close together under L2 distance.
package histogram

import (
	"bytes"
	"context"
	"fmt"
	"image"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/custodia-labs/lookalike/internal/core/ports/driven"
)

// Ensure Embedder implements the interface.
var _ driven.ImageEmbedder = (*Embedder)(nil)

// Limits.
const (
	DefaultBins = 4
	MinBins     = 2
	MaxBins     = 16

	// maxSamples caps the pixels visited per image; larger images are
	// sampled on a regular grid.
	maxSamples = 512 * 512
)

// Embedder computes colour histograms.
type Embedder struct {
	bins int
}

// NewEmbedder creates a histogram embedder with bins buckets per channel.
// Zero means DefaultBins.
func NewEmbedder(bins int) (*Embedder, error) {
	if bins == 0 {
		bins = DefaultBins
	}
	if bins < MinBins || bins > MaxBins {
		return nil, fmt.Errorf("histogram: bins must be between %d and %d, got %d", MinBins, MaxBins, bins)
	}
	return &Embedder{bins: bins}, nil
}

// Dimension returns the embedding length, bins^3.
func (e *Embedder) Dimension() int {
	return e.bins * e.bins * e.bins
}

// Embed decodes data and returns its L1-normalised colour histogram.
func (e *Embedder) Embed(ctx context.Context, data []byte) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("histogram: cannot identify image file: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("histogram: %s image has no pixels", format)
	}

	step := 1
	for (bounds.Dx()/step)*(bounds.Dy()/step) > maxSamples {
		step++
	}

	counts := make([]float64, e.Dimension())
	var total float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, _ := img.At(x, y).RGBA()
			counts[e.cell(r, g, b)]++
			total++
		}
	}

	vec := make([]float32, len(counts))
	for i, c := range counts {
		vec[i] = float32(c / total)
	}
	return vec, nil
}

// cell maps 16-bit colour channels to a histogram cell.
func (e *Embedder) cell(r, g, b uint32) int {
	n := uint32(e.bins)
	ri := (r >> 8) * n / 256
	gi := (g >> 8) * n / 256
	bi := (b >> 8) * n / 256
	return int((ri*n+gi)*n + bi)
}

// ModelName identifies the embedder and its resolution.
func (e *Embedder) ModelName() string {
	return fmt.Sprintf("rgb-histogram-%d", e.bins)
}

// Ping always succeeds; the embedder runs in-process.
func (e *Embedder) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}
