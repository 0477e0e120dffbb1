package histogram

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func sum(vec []float32) float64 {
	var s float64
	for _, v := range vec {
		s += float64(v)
	}
	return s
}

func TestNewEmbedder(t *testing.T) {
	e, err := NewEmbedder(0)
	require.NoError(t, err)
	assert.Equal(t, 64, e.Dimension())
	assert.Equal(t, "rgb-histogram-4", e.ModelName())

	_, err = NewEmbedder(1)
	assert.Error(t, err)
	_, err = NewEmbedder(17)
	assert.Error(t, err)
}

func TestEmbed_SolidColour(t *testing.T) {
	e, err := NewEmbedder(4)
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), solidPNG(t, 8, 8, color.RGBA{R: 255, A: 255}))
	require.NoError(t, err)
	require.Len(t, vec, 64)

	// Pure red lands in the top red bucket with zero green and blue.
	assert.InDelta(t, 1.0, vec[3*16], 1e-6)
	assert.InDelta(t, 1.0, sum(vec), 1e-6)
}

func TestEmbed_HalfAndHalf(t *testing.T) {
	e, err := NewEmbedder(2)
	require.NoError(t, err)

	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for x := range 4 {
		img.Set(x, 0, color.RGBA{A: 255})
		img.Set(x, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	vec, err := e.Embed(context.Background(), buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0, 0, 0, 0, 0, 0, 0.5}, vec)
}

func TestEmbed_SimilarImagesAreCloser(t *testing.T) {
	e, err := NewEmbedder(4)
	require.NoError(t, err)
	ctx := context.Background()

	red, err := e.Embed(ctx, solidPNG(t, 10, 10, color.RGBA{R: 250, A: 255}))
	require.NoError(t, err)
	darkRed, err := e.Embed(ctx, solidPNG(t, 10, 10, color.RGBA{R: 230, G: 10, A: 255}))
	require.NoError(t, err)
	blue, err := e.Embed(ctx, solidPNG(t, 10, 10, color.RGBA{B: 250, A: 255}))
	require.NoError(t, err)

	assert.Less(t, l2(red, darkRed), l2(red, blue))
}

func TestEmbed_JPEG(t *testing.T) {
	e, err := NewEmbedder(4)
	require.NoError(t, err)

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	vec, err := e.Embed(context.Background(), buf.Bytes())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sum(vec), 1e-6)
}

func TestEmbed_LargeImageIsSampled(t *testing.T) {
	e, err := NewEmbedder(4)
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), solidPNG(t, 1100, 600, color.White))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vec[63], 1e-6)
}

func TestEmbed_Undecodable(t *testing.T) {
	e, err := NewEmbedder(4)
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []byte("definitely not an image"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot identify image file")
}

func TestEmbed_CancelledContext(t *testing.T) {
	e, err := NewEmbedder(4)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.Embed(ctx, solidPNG(t, 1, 1, color.White))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, e.Ping(context.Background()))
	assert.NoError(t, e.Close())
}

func l2(a, b []float32) float32 {
	var s float32
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}
