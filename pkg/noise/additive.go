package noise

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"multinoise/pkg/imagery"
)

// intensityScale converts a parameter specified on the 8-bit scale to
// the dynamic range of the image: a sigma of 10 on a 16-bit image with
// a full dynamic range degrades it as much as a sigma of 10 degrades an
// 8-bit image. A degenerate (constant) image falls back to the
// theoretical range of its sample type so additive models still apply.
func intensityScale(img *imagery.Image) float64 {
	min, max := img.Range()
	r := max - min
	if r <= 0 {
		r = img.Type.MaxValue()
	}
	return r / 255.0
}

// gaussianModel adds i.i.d. zero-mean normal noise to every sample.
// The sigma parameter is specified on the 8-bit scale and scaled to the
// image's dynamic range.
type gaussianModel struct{ baseModel }

func (m *gaussianModel) Apply(img *imagery.Image, p float64, seed uint64) (*imagery.Image, error) {
	if err := checkParameter(m.d, p); err != nil {
		return nil, err
	}
	sigma := p * intensityScale(img)
	dist := normal(sigma, newSource(seed))

	out := img.Clone()
	for i, v := range out.Data {
		out.Data[i] = out.Clip(float64(v) + dist.Rand())
	}
	return out, nil
}

// saltPepperModel independently replaces each sample by the minimum or
// maximum legal value with probability p, split evenly between the two.
type saltPepperModel struct{ baseModel }

func (m *saltPepperModel) Apply(img *imagery.Image, p float64, seed uint64) (*imagery.Image, error) {
	if err := checkParameter(m.d, p); err != nil {
		return nil, err
	}
	rng := rand.New(newSource(seed))
	max := float32(img.Type.MaxValue())

	out := img.Clone()
	for i := range out.Data {
		u := rng.Float64()
		if u < p/2 {
			out.Data[i] = 0
		} else if u < p {
			out.Data[i] = max
		}
	}
	return out, nil
}

// poissonModel applies signal-dependent shot noise. Each band is
// normalized to [0, 1] by its own observed range, a Poisson sample
// with lambda = signal/scale is drawn and multiplied back by scale, and
// the result is denormalized. The variance of the result grows with the
// scale parameter, so higher levels degrade more. A constant band has
// no range to normalize by and passes through unchanged.
type poissonModel struct{ baseModel }

func (m *poissonModel) Apply(img *imagery.Image, p float64, seed uint64) (*imagery.Image, error) {
	if err := checkParameter(m.d, p); err != nil {
		return nil, err
	}
	src := newSource(seed)

	out := img.Clone()
	for b := 0; b < out.Bands; b++ {
		band := out.Band(b)
		min, max := bandRange(band)
		if max <= min {
			continue
		}
		r := max - min
		for i, v := range band {
			signal := (float64(v) - min) / r
			if signal <= 0 {
				band[i] = out.Clip(min)
				continue
			}
			pois := distuv.Poisson{Lambda: signal / p, Src: src}
			noisy := pois.Rand() * p
			band[i] = out.Clip(noisy*r + min)
		}
	}
	return out, nil
}

// speckleModel applies multiplicative noise: out = in * (1 + n) with
// n ~ Normal(0, variance). A constant band is passed through unchanged
// to avoid amplifying a degenerate band.
type speckleModel struct{ baseModel }

func (m *speckleModel) Apply(img *imagery.Image, p float64, seed uint64) (*imagery.Image, error) {
	if err := checkParameter(m.d, p); err != nil {
		return nil, err
	}
	dist := normal(math.Sqrt(p), newSource(seed))

	out := img.Clone()
	for b := 0; b < out.Bands; b++ {
		band := out.Band(b)
		min, max := bandRange(band)
		if max <= min {
			continue
		}
		for i, v := range band {
			band[i] = out.Clip(float64(v) * (1 + dist.Rand()))
		}
	}
	return out, nil
}

// bandRange returns the observed minimum and maximum of one band.
func bandRange(band []float32) (min, max float64) {
	if len(band) == 0 {
		return 0, 0
	}
	min = float64(band[0])
	max = min
	for _, v := range band {
		f := float64(v)
		if f < min {
			min = f
		}
		if f > max {
			max = f
		}
	}
	return min, max
}
