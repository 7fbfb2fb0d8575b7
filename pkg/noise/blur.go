package noise

import (
	"multinoise/pkg/imagery"
)

// motionBlurModel convolves each band with a normalized horizontal line
// kernel of odd length k, simulating linear camera motion during
// exposure. The kernel size parameter is rounded to the nearest odd
// integer. Edges are replicated. The model is deterministic and ignores
// the seed.
type motionBlurModel struct{ baseModel }

func (m *motionBlurModel) Apply(img *imagery.Image, p float64, _ uint64) (*imagery.Image, error) {
	if err := checkParameter(m.d, p); err != nil {
		return nil, err
	}
	k := oddKernelSize(p)
	half := k / 2
	weight := 1.0 / float64(k)

	out := img.Clone()
	for b := 0; b < img.Bands; b++ {
		src := img.Band(b)
		dst := out.Band(b)
		for y := 0; y < img.Height; y++ {
			row := src[y*img.Width : (y+1)*img.Width]
			for x := 0; x < img.Width; x++ {
				sum := 0.0
				for dx := -half; dx <= half; dx++ {
					sx := x + dx
					if sx < 0 {
						sx = 0
					} else if sx >= img.Width {
						sx = img.Width - 1
					}
					sum += float64(row[sx])
				}
				dst[y*img.Width+x] = out.Clip(sum * weight)
			}
		}
	}
	return out, nil
}

// oddKernelSize rounds p to the nearest odd integer >= 3.
func oddKernelSize(p float64) int {
	k := int(p + 0.5)
	if k%2 == 0 {
		k++
	}
	if k < 3 {
		k = 3
	}
	return k
}

// atmosphericModel blends the image toward a fixed bright airlight
// value, simulating scattering by haze: out = in*(1-h) + airlight*h.
// The airlight constant sits at 90% of the theoretical sample maximum.
// The model is deterministic and ignores the seed.
type atmosphericModel struct{ baseModel }

// airlightFraction positions the airlight constant within the legal
// sample range.
const airlightFraction = 0.9

func (m *atmosphericModel) Apply(img *imagery.Image, p float64, _ uint64) (*imagery.Image, error) {
	if err := checkParameter(m.d, p); err != nil {
		return nil, err
	}
	airlight := airlightFraction * img.Type.MaxValue()

	out := img.Clone()
	for i, v := range out.Data {
		out.Data[i] = out.Clip(float64(v)*(1-p) + airlight*p)
	}
	return out, nil
}
