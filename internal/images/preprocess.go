package images

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

type ValidationError struct {
	Reason string

	// Unsupported marks a recognized but disallowed image format, as
	// opposed to data that could not be decoded at all.
	Unsupported bool
}

func (e *ValidationError) Error() string {
	return e.Reason
}

var allowedFormats = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
}

type Options struct {
	MaxUploadBytes int64 // reject anything larger before decoding
	MaxDimension   int   // longest edge after downscaling
	TargetBytes    int   // re-encode until under this budget
	QualityStart   int
	QualityFloor   int
	QualityStep    int
}

func DefaultOptions() Options {
	return Options{
		MaxUploadBytes: 10 * 1024 * 1024,
		MaxDimension:   1536,
		TargetBytes:    1024 * 1024,
		QualityStart:   85,
		QualityFloor:   40,
		QualityStep:    10,
	}
}

type Result struct {
	Data        []byte
	ContentType string // always image/jpeg after re-encoding

	SourceFormat      string
	SourceContentType string
	Width             int
	Height            int
	Quality           int
}

// Preprocess validates an upload and produces the JPEG that is sent to the
// vision model: decode, check the format whitelist, downscale so the longest
// edge fits MaxDimension, then re-encode at decreasing quality until the
// output fits TargetBytes or the quality floor is reached. The floor attempt
// is kept even if it is still over budget.
func Preprocess(data []byte, opts Options) (*Result, error) {
	if opts.MaxUploadBytes > 0 && int64(len(data)) > opts.MaxUploadBytes {
		return nil, &ValidationError{Reason: fmt.Sprintf("image is %d bytes, limit is %d", len(data), opts.MaxUploadBytes)}
	}
	if len(data) == 0 {
		return nil, &ValidationError{Reason: "empty image upload"}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("could not decode image: %v", err)}
	}

	sourceContentType, ok := allowedFormats[format]
	if !ok {
		return nil, &ValidationError{Reason: fmt.Sprintf("unsupported image format %q", format), Unsupported: true}
	}

	img = downscale(img, opts.MaxDimension)
	bounds := img.Bounds()

	quality := opts.QualityStart
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	step := opts.QualityStep
	if step <= 0 {
		step = 10
	}

	var encoded []byte
	for {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("error encoding image: %w", err)
		}
		encoded = buf.Bytes()

		if opts.TargetBytes <= 0 || len(encoded) <= opts.TargetBytes || quality <= opts.QualityFloor {
			break
		}

		quality -= step
		if quality < opts.QualityFloor {
			quality = opts.QualityFloor
		}
	}

	return &Result{
		Data:              encoded,
		ContentType:       "image/jpeg",
		SourceFormat:      format,
		SourceContentType: sourceContentType,
		Width:             bounds.Dx(),
		Height:            bounds.Dy(),
		Quality:           quality,
	}, nil
}

func downscale(img image.Image, maxDim int) image.Image {
	if maxDim <= 0 {
		return img
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	var newW, newH int
	if w >= h {
		newW = maxDim
		newH = h * maxDim / w
	} else {
		newH = maxDim
		newW = w * maxDim / h
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
