package utils

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

var (
	ErrEmptyImage       = errors.New("empty image")
	ErrUnsupportedImage = errors.New("unsupported image format (jpeg/png/webp)")
)

// NormalizeLogo decodes a jpeg/png/webp logo, applies its EXIF orientation,
// scales it down to maxWidth (0 keeps the size) and re-encodes it as PNG so
// transparency survives.
func NormalizeLogo(input []byte, maxWidth int) ([]byte, error) {
	if len(input) == 0 {
		return nil, ErrEmptyImage
	}

	img, err := decodeStrict(input)
	if err != nil {
		return nil, err
	}

	img = orient(img, exifOrientation(input))
	if maxWidth > 0 {
		img = fitWidth(img, maxWidth)
	}

	var out bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&out, img); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func decodeStrict(input []byte) (image.Image, error) {
	decoders := []func(*bytes.Reader) (image.Image, error){
		func(r *bytes.Reader) (image.Image, error) { return jpeg.Decode(r) },
		func(r *bytes.Reader) (image.Image, error) { return png.Decode(r) },
		func(r *bytes.Reader) (image.Image, error) { return webp.Decode(r) },
	}
	for _, decode := range decoders {
		if img, err := decode(bytes.NewReader(input)); err == nil {
			return img, nil
		}
	}
	return nil, ErrUnsupportedImage
}

// exifOrientation returns the EXIF Orientation tag, or 1 when absent.
func exifOrientation(input []byte) int {
	x, err := exif.Decode(bytes.NewReader(input))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 1
	}
	return o
}

// orient returns src as it should be displayed for EXIF orientation o.
// Each case maps a destination pixel back to its source pixel.
func orient(src image.Image, o int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	var at func(x, y int) (int, int)
	swap := false
	switch o {
	case 2: // mirror horizontal
		at = func(x, y int) (int, int) { return w - 1 - x, y }
	case 3: // rotate 180
		at = func(x, y int) (int, int) { return w - 1 - x, h - 1 - y }
	case 4: // mirror vertical
		at = func(x, y int) (int, int) { return x, h - 1 - y }
	case 5: // transpose
		at, swap = func(x, y int) (int, int) { return y, x }, true
	case 6: // rotate 90 CW
		at, swap = func(x, y int) (int, int) { return y, h - 1 - x }, true
	case 7: // transverse
		at, swap = func(x, y int) (int, int) { return w - 1 - y, h - 1 - x }, true
	case 8: // rotate 90 CCW
		at, swap = func(x, y int) (int, int) { return w - 1 - y, x }, true
	default:
		return src
	}

	dw, dh := w, h
	if swap {
		dw, dh = h, w
	}
	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			sx, sy := at(x, y)
			dst.Set(x, y, src.At(b.Min.X+sx, b.Min.Y+sy))
		}
	}
	return dst
}

func fitWidth(src image.Image, maxW int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW || h <= 0 {
		return src
	}

	newH := int(math.Round(float64(h) * float64(maxW) / float64(w)))
	if newH < 1 {
		newH = 1
	}

	dst := image.NewNRGBA(image.Rect(0, 0, maxW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
