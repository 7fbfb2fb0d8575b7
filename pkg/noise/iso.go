package noise

import (
	"multinoise/pkg/imagery"
)

// isoNoiseModel simulates high-ISO sensor noise: strong additive noise
// on the luminance channel and weaker additive noise on the two
// chrominance channels, with the luma sigma growing faster across
// levels than the chroma sigma. The first three bands are treated as
// RGB and converted through BT.601 YCbCr; any additional bands receive
// luma-strength additive noise. Images with fewer than three bands
// degrade to plain additive noise at the luma sigma.
type isoNoiseModel struct{ baseModel }

func (m *isoNoiseModel) Apply(img *imagery.Image, p float64, seed uint64) (*imagery.Image, error) {
	if err := checkParameter(m.d, p); err != nil {
		return nil, err
	}
	scale := intensityScale(img)
	sigmaLuma := (5 + (p-1)*10) * scale
	sigmaChroma := (2 + (p-1)*3) * scale

	src := newSource(seed)
	luma := normal(sigmaLuma, src)
	chroma := normal(sigmaChroma, src)

	out := img.Clone()
	if img.Bands < 3 {
		for i, v := range out.Data {
			out.Data[i] = out.Clip(float64(v) + luma.Rand())
		}
		return out, nil
	}

	r := img.Band(0)
	g := img.Band(1)
	b := img.Band(2)
	or := out.Band(0)
	og := out.Band(1)
	ob := out.Band(2)
	for i := range r {
		y, cb, cr := rgbToYCbCr(float64(r[i]), float64(g[i]), float64(b[i]))
		y += luma.Rand()
		cb += chroma.Rand()
		cr += chroma.Rand()
		nr, ng, nb := yCbCrToRGB(y, cb, cr)
		or[i] = out.Clip(nr)
		og[i] = out.Clip(ng)
		ob[i] = out.Clip(nb)
	}

	// Bands beyond the RGB triplet carry no chroma; they get the full
	// luma-strength noise.
	for band := 3; band < img.Bands; band++ {
		dst := out.Band(band)
		for i, v := range img.Band(band) {
			dst[i] = out.Clip(float64(v) + luma.Rand())
		}
	}
	return out, nil
}

// rgbToYCbCr converts one sample triplet to BT.601 YCbCr. Values stay
// in the native sample scale; Cb and Cr are zero-centered.
func rgbToYCbCr(r, g, b float64) (y, cb, cr float64) {
	y = 0.299*r + 0.587*g + 0.114*b
	cb = 0.564 * (b - y)
	cr = 0.713 * (r - y)
	return y, cb, cr
}

// yCbCrToRGB inverts rgbToYCbCr.
func yCbCrToRGB(y, cb, cr float64) (r, g, b float64) {
	r = y + cr/0.713
	b = y + cb/0.564
	g = (y - 0.299*r - 0.114*b) / 0.587
	return r, g, b
}
