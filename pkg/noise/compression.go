package noise

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"multinoise/pkg/imagery"
)

// compressionModel degrades an image by a lossy JPEG encode/decode
// round trip at the given quality. Three-band 8-bit images go through
// the color codec so the chroma subsampling artifacts of real JPEG are
// reproduced; every other layout is degraded per band through the
// grayscale codec, since no native lossy multiband codec exists.
// Samples wider than 8 bits are passed through the codec's 8-bit domain
// and rescaled, a documented approximation. Deterministic; ignores the
// seed.
type compressionModel struct{ baseModel }

func (m *compressionModel) Apply(img *imagery.Image, p float64, _ uint64) (*imagery.Image, error) {
	if err := checkParameter(m.d, p); err != nil {
		return nil, err
	}
	quality := int(p + 0.5)

	if img.Bands == 3 && img.Type == imagery.Uint8 {
		return compressColor(img, quality)
	}
	return compressPerBand(img, quality)
}

// compressColor round-trips a 3-band 8-bit image through the color
// JPEG codec in one piece.
func compressColor(img *imagery.Image, quality int) (*imagery.Image, error) {
	rgba := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			i := rgba.PixOffset(x, y)
			rgba.Pix[i+0] = uint8(img.At(0, y, x))
			rgba.Pix[i+1] = uint8(img.At(1, y, x))
			rgba.Pix[i+2] = uint8(img.At(2, y, x))
			rgba.Pix[i+3] = 0xff
		}
	}

	decoded, err := jpegRoundTrip(rgba, quality)
	if err != nil {
		return nil, err
	}

	out := img.Clone()
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			r, g, b, _ := decoded.At(x, y).RGBA()
			out.Set(0, y, x, float32(r>>8))
			out.Set(1, y, x, float32(g>>8))
			out.Set(2, y, x, float32(b>>8))
		}
	}
	return out, nil
}

// compressPerBand round-trips every band independently through the
// grayscale JPEG codec.
func compressPerBand(img *imagery.Image, quality int) (*imagery.Image, error) {
	// Scale between the sample range and the codec's 8-bit domain.
	scale := img.Type.MaxValue() / 255.0

	out := img.Clone()
	gray := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
	for b := 0; b < img.Bands; b++ {
		src := img.Band(b)
		for i, v := range src {
			gray.Pix[i] = uint8(math.Round(float64(v) / scale))
		}

		decoded, err := jpegRoundTrip(gray, quality)
		if err != nil {
			return nil, fmt.Errorf("band %d: %w", b, err)
		}

		dst := out.Band(b)
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				g, _, _, _ := decoded.At(x, y).RGBA()
				dst[y*img.Width+x] = out.Clip(float64(g>>8) * scale)
			}
		}
	}
	return out, nil
}

// jpegRoundTrip encodes src at the given quality and decodes the result.
func jpegRoundTrip(src image.Image, quality int) (image.Image, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	decoded, err := jpeg.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("jpeg decode: %w", err)
	}
	return decoded, nil
}
