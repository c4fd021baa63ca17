package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 17), G: uint8(y * 31), B: 128, A: 255})
		}
	}
	return img
}

func TestNormalize_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		format string
		encode func(buf *bytes.Buffer, img image.Image) error
	}{
		{
			name:   "png",
			format: "png",
			encode: func(buf *bytes.Buffer, img image.Image) error {
				return png.Encode(buf, img)
			},
		},
		{
			name:   "gif",
			format: "gif",
			encode: func(buf *bytes.Buffer, img image.Image) error {
				return gif.Encode(buf, img, nil)
			},
		},
		{
			name:   "jpeg",
			format: "jpeg",
			encode: func(buf *bytes.Buffer, img image.Image) error {
				return jpeg.Encode(buf, img, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.encode(&buf, testImage(20, 12)); err != nil {
				t.Fatalf("failed to encode test image: %v", err)
			}

			normalized, err := Normalize(buf.Bytes())
			if err != nil {
				t.Fatalf("Normalize failed: %v", err)
			}

			if normalized.SourceFormat != tt.format {
				t.Errorf("SourceFormat = %q, want %q", normalized.SourceFormat, tt.format)
			}
			if normalized.Width != 20 || normalized.Height != 12 {
				t.Errorf("dimensions = %dx%d, want 20x12", normalized.Width, normalized.Height)
			}

			// Output must always decode with the canonical decoder.
			decoded, err := jpeg.Decode(bytes.NewReader(normalized.Data))
			if err != nil {
				t.Fatalf("normalized output is not valid JPEG: %v", err)
			}
			if decoded.Bounds().Dx() != 20 || decoded.Bounds().Dy() != 12 {
				t.Errorf("decoded dimensions changed: %v", decoded.Bounds())
			}
		})
	}
}

func TestNormalize_UnsupportedInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "text", data: []byte("this is not an image at all")},
		{name: "truncated_png", data: []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.data)
			if err != ErrUnsupportedFormat {
				t.Errorf("Normalize = %v, want ErrUnsupportedFormat", err)
			}
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(16, 16)); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}

	first, err := Normalize(buf.Bytes())
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	second, err := Normalize(buf.Bytes())
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if !bytes.Equal(first.Data, second.Data) {
		t.Error("Normalize output should be deterministic for identical input")
	}
}
