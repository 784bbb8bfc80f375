package images

import (
	"fmt"
	"image"
	"io"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"

	// Registers the webp decoder so imaging.Open can read webp sources.
	_ "golang.org/x/image/webp"
)

// encoder writes img to w in one output format at the given quality (1-100).
// Formats without a quality knob ignore it.
type encoder func(w io.Writer, img image.Image, quality int) error

var encoders = map[string]encoder{
	"jpeg": encodeJPEG,
	"jpg":  encodeJPEG,
	"png":  encodePNG,
	"webp": encodeWebP,
	"avif": encodeAVIF,
}

// encoderFor returns the encoder for format, or an error for formats the
// pipeline cannot produce.
func encoderFor(format string) (encoder, error) {
	enc, ok := encoders[format]
	if !ok {
		return nil, fmt.Errorf("no encoder for format %q", format)
	}
	return enc, nil
}

// Extension returns the output file extension for an encodable format.
func Extension(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}

func encodeJPEG(w io.Writer, img image.Image, quality int) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}

func encodePNG(w io.Writer, img image.Image, _ int) error {
	return imaging.Encode(w, img, imaging.PNG)
}

func encodeWebP(w io.Writer, img image.Image, _ int) error {
	// nativewebp produces lossless webp; quality does not apply.
	return nativewebp.Encode(w, img, nil)
}

func encodeAVIF(w io.Writer, img image.Image, quality int) error {
	return avif.Encode(w, img, avif.Options{Quality: quality})
}
