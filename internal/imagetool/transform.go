// Package imagetool wraps image decoding and resizing for the upload pipeline.
package imagetool

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
)

// Dimensions holds probed image dimensions in pixels
type Dimensions struct {
	Width  int
	Height int
}

// Transformer produces derived image renditions. It is stateless and
// passed explicitly to the services that need it.
type Transformer struct {
	quality int
}

// NewTransformer creates a transformer that re-encodes JPEG output at quality
func NewTransformer(quality int) *Transformer {
	return &Transformer{quality: quality}
}

// Probe decodes only the image header and reports its dimensions
func (t *Transformer) Probe(data []byte) (Dimensions, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Dimensions{}, fmt.Errorf("failed to decode image: %w", err)
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

// Cover crops and fills the image to exactly width x height,
// re-encoded in the format implied by extension
func (t *Transformer) Cover(data []byte, width, height int, extension string) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	cropped := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
	return t.encode(cropped, extension)
}

// ScaleToFit resizes the image preserving aspect ratio so it fits within
// width x height, re-encoded in the format implied by extension
func (t *Transformer) ScaleToFit(data []byte, width, height int, extension string) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	scaled := imaging.Fit(img, width, height, imaging.Lanczos)
	return t.encode(scaled, extension)
}

func (t *Transformer) encode(img image.Image, extension string) ([]byte, error) {
	if !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}

	format, err := imaging.FormatFromExtension(extension)
	if err != nil {
		return nil, fmt.Errorf("unsupported image format %q: %w", extension, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(t.quality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
