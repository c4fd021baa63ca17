// Package imaging converts arbitrary raster input into the one canonical
// encoding the rest of the pipeline assumes: JPEG at a fixed quality.
package imaging

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// jpegQuality matches the quality the inference API is tuned against.
const jpegQuality = 85

// ErrUnsupportedFormat is returned when the input bytes cannot be decoded
// as a raster image.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Normalized is a byte sequence guaranteed to be canonical JPEG. It is owned
// by the pipeline invocation that created it and is never shared.
type Normalized struct {
	Data   []byte
	Width  int
	Height int
	// SourceFormat is the decoded input format name (jpeg, png, webp, ...).
	SourceFormat string
}

// Normalize decodes data in any supported raster format and re-encodes it
// deterministically as JPEG. Formats the inference API rejects (webp, bmp,
// tiff) are handled here so the analyzer never sees them.
func Normalize(data []byte) (*Normalized, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrUnsupportedFormat
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &Normalized{
		Data:         buf.Bytes(),
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		SourceFormat: format,
	}, nil
}
