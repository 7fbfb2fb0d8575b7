package imageio

import (
	"image"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"multinoise/pkg/imagery"
)

// Thumbnail renders a preview of the image scaled so its longest side
// is at most maxSide pixels and writes it as a PNG. Images with more
// than three bands are previewed from their first three bands; sample
// values are stretched to the observed range so float and 16-bit data
// stay visible.
func Thumbnail(img *imagery.Image, maxSide int, path string) error {
	if err := img.Validate(); err != nil {
		return err
	}
	src := renderComposite(img)

	w, h := img.Width, img.Height
	if w > maxSide || h > maxSide {
		if w >= h {
			h = h * maxSide / w
			w = maxSide
		} else {
			w = w * maxSide / h
			h = maxSide
		}
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Src, nil)
		src = scaled
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, src)
}

// renderComposite maps the first bands onto RGB with a linear stretch
// over the observed sample range.
func renderComposite(img *imagery.Image) *image.RGBA {
	lo, hi := img.Range()
	scale := 1.0
	if hi > lo {
		scale = 255 / (hi - lo)
	}

	pick := func(b, y, x int) uint8 {
		v := (float64(img.At(b, y, x)) - lo) * scale
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		return uint8(v)
	}

	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			i := out.PixOffset(x, y)
			if img.Bands >= 3 {
				out.Pix[i+0] = pick(0, y, x)
				out.Pix[i+1] = pick(1, y, x)
				out.Pix[i+2] = pick(2, y, x)
			} else {
				g := pick(0, y, x)
				out.Pix[i+0] = g
				out.Pix[i+1] = g
				out.Pix[i+2] = g
			}
			out.Pix[i+3] = 255
		}
	}
	return out
}
