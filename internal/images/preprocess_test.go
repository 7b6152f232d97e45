package images_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"upkeep-backend/internal/images"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solidImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 180, B: 160, A: 255})
		}
	}
	return img
}

func noiseImage(width, height int) *image.RGBA {
	rng := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{
				R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 255,
			})
		}
	}
	return img
}

func TestPreprocessPNG(t *testing.T) {
	data := encodePNG(t, solidImage(120, 80))

	result, err := images.Preprocess(data, images.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "image/jpeg", result.ContentType)
	assert.Equal(t, "png", result.SourceFormat)
	assert.Equal(t, "image/png", result.SourceContentType)
	assert.Equal(t, 120, result.Width)
	assert.Equal(t, 80, result.Height)

	decoded, format, err := image.Decode(bytes.NewReader(result.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 120, decoded.Bounds().Dx())
}

func TestPreprocessJPEGPassesThrough(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solidImage(60, 60), nil))

	result, err := images.Preprocess(buf.Bytes(), images.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "jpeg", result.SourceFormat)
	assert.Equal(t, "image/jpeg", result.SourceContentType)
}

func TestPreprocessDownscales(t *testing.T) {
	opts := images.DefaultOptions()
	opts.MaxDimension = 100

	result, err := images.Preprocess(encodePNG(t, solidImage(200, 100)), opts)
	require.NoError(t, err)

	// Longest edge capped, aspect ratio preserved.
	assert.Equal(t, 100, result.Width)
	assert.Equal(t, 50, result.Height)

	// Portrait orientation caps the height instead.
	result, err = images.Preprocess(encodePNG(t, solidImage(100, 200)), opts)
	require.NoError(t, err)
	assert.Equal(t, 50, result.Width)
	assert.Equal(t, 100, result.Height)
}

func TestPreprocessSmallImagesNotUpscaled(t *testing.T) {
	result, err := images.Preprocess(encodePNG(t, solidImage(30, 20)), images.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 30, result.Width)
	assert.Equal(t, 20, result.Height)
}

func TestPreprocessQualityLadder(t *testing.T) {
	opts := images.DefaultOptions()
	opts.TargetBytes = 1500 // force re-encoding down the ladder

	result, err := images.Preprocess(encodePNG(t, noiseImage(200, 200)), opts)
	require.NoError(t, err)

	assert.Less(t, result.Quality, opts.QualityStart)
	assert.GreaterOrEqual(t, result.Quality, opts.QualityFloor)
	// The floor attempt is kept even when still over budget.
	assert.NotEmpty(t, result.Data)
}

func TestPreprocessRejectsBadInput(t *testing.T) {
	var verr *images.ValidationError

	_, err := images.Preprocess(nil, images.DefaultOptions())
	require.ErrorAs(t, err, &verr)

	_, err = images.Preprocess([]byte("not an image"), images.DefaultOptions())
	require.ErrorAs(t, err, &verr)
	assert.False(t, verr.Unsupported)

	opts := images.DefaultOptions()
	opts.MaxUploadBytes = 16
	_, err = images.Preprocess(encodePNG(t, solidImage(10, 10)), opts)
	require.ErrorAs(t, err, &verr)
}
