package blob

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/phrazzld/inkpipe/internal/generation"
)

// DefaultMaxImageEdge is the longest edge, in pixels, sent to the
// captioner when no limit is configured.
const DefaultMaxImageEdge = 1024

// Downscale decodes data, applies EXIF orientation and shrinks the image
// so neither edge exceeds maxEdge. The result is re-encoded as PNG, which
// keeps ink strokes sharp. Images already within bounds are not enlarged.
func Downscale(data []byte, maxEdge int) (generation.Image, error) {
	if maxEdge <= 0 {
		maxEdge = DefaultMaxImageEdge
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return generation.Image{}, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() > maxEdge || b.Dy() > maxEdge {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return generation.Image{}, fmt.Errorf("encode image: %w", err)
	}
	return generation.Image{Data: buf.Bytes(), MIMEType: "image/png"}, nil
}
