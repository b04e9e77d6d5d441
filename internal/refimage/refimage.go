// Package refimage prepares reference images for video generation: the
// image is decoded, turned upright per its EXIF orientation, resized to the
// output video's frame size and re-encoded as PNG.
package refimage

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// Nova Reel conditions the first frame on an image of exactly this size.
const (
	Width  = 1280
	Height = 720
)

// Format is the encoding of every prepared image.
const Format = "png"

// PrepareFile reads path and prepares it with Prepare.
func PrepareFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference image: %w", err)
	}
	return Prepare(data)
}

// Prepare decodes a JPEG or PNG image and returns it as a Width x Height
// PNG. The aspect ratio is not preserved.
func Prepare(data []byte) ([]byte, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode reference image: %w", err)
	}

	orientation := exifOrientation(data)
	src = orient(src, orientation)

	dst := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode reference image: %w", err)
	}

	log.Debug().
		Str("sourceFormat", format).
		Int("sourceWidth", src.Bounds().Dx()).
		Int("sourceHeight", src.Bounds().Dy()).
		Int("orientation", orientation).
		Int("outputBytes", buf.Len()).
		Msg("Reference image prepared")
	return buf.Bytes(), nil
}

// exifOrientation returns the EXIF orientation tag, or 1 (upright) when the
// image carries no readable EXIF block.
func exifOrientation(data []byte) int {
	exif, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	if o := int(exif.Orientation); o >= 1 && o <= 8 {
		return o
	}
	return 1
}

// orient handles the rotations cameras actually produce (3, 6, 8); mirrored
// orientations are rare enough to pass through unchanged.
func orient(src image.Image, orientation int) image.Image {
	switch orientation {
	case 3:
		return rotate(src, 180)
	case 6:
		return rotate(src, 90)
	case 8:
		return rotate(src, 270)
	default:
		return src
	}
}

// rotate turns src clockwise by deg (90, 180 or 270).
func rotate(src image.Image, deg int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	var dst *image.RGBA
	if deg == 180 {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := src.At(b.Min.X+x, b.Min.Y+y)
			switch deg {
			case 90:
				dst.Set(h-1-y, x, c)
			case 180:
				dst.Set(w-1-x, h-1-y, c)
			case 270:
				dst.Set(y, w-1-x, c)
			}
		}
	}
	return dst
}
