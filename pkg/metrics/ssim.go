package metrics

import (
	"gonum.org/v1/gonum/stat"
)

// SSIM constants following Wang et al.: stabilizers C1=(k1*L)^2 and
// C2=(k2*L)^2 with L the theoretical dynamic range.
const (
	ssimK1 = 0.01
	ssimK2 = 0.03

	// ssimWindow is the side of the square local-statistics window.
	ssimWindow = 7

	// ssimMaxSide caps the size of the compared image. Larger images
	// are box-filter downsampled first, purely for throughput. Both
	// images go through the identical deterministic resampling, so the
	// comparison stays unbiased; the value is an approximation of the
	// full-resolution SSIM, not an exact equivalent.
	ssimMaxSide = 800
)

// bandSSIM computes the mean structural similarity between one band of
// the original and the degraded image, using local mean, variance and
// covariance over a sliding window. Bands smaller than the window fall
// back to global statistics.
func bandSSIM(orig, degr []float32, height, width int, maxValue float64) float64 {
	if height > ssimMaxSide || width > ssimMaxSide {
		factor := (maxInt(height, width) + ssimMaxSide - 1) / ssimMaxSide
		var dh, dw int
		orig, dh, dw = boxDownsample(orig, height, width, factor)
		degr, _, _ = boxDownsample(degr, height, width, factor)
		height, width = dh, dw
	}
	if height < ssimWindow || width < ssimWindow {
		return globalSSIM(orig, degr, maxValue)
	}
	return windowedSSIM(orig, degr, height, width, maxValue)
}

// windowedSSIM slides a ssimWindow x ssimWindow uniform window over the
// band and averages the per-window SSIM values. Window sums come from
// integral images so the cost is independent of the window size.
func windowedSSIM(x, y []float32, height, width int, maxValue float64) float64 {
	c1 := (ssimK1 * maxValue) * (ssimK1 * maxValue)
	c2 := (ssimK2 * maxValue) * (ssimK2 * maxValue)

	sumX := integralImage(x, height, width, nil, nil)
	sumY := integralImage(y, height, width, nil, nil)
	sumXX := integralImage(x, height, width, x, nil)
	sumYY := integralImage(y, height, width, y, nil)
	sumXY := integralImage(x, height, width, y, nil)

	n := float64(ssimWindow * ssimWindow)
	total := 0.0
	count := 0
	for y0 := 0; y0+ssimWindow <= height; y0++ {
		for x0 := 0; x0+ssimWindow <= width; x0++ {
			sx := windowSum(sumX, width, y0, x0, ssimWindow)
			sy := windowSum(sumY, width, y0, x0, ssimWindow)
			sxx := windowSum(sumXX, width, y0, x0, ssimWindow)
			syy := windowSum(sumYY, width, y0, x0, ssimWindow)
			sxy := windowSum(sumXY, width, y0, x0, ssimWindow)

			muX := sx / n
			muY := sy / n
			varX := sxx/n - muX*muX
			varY := syy/n - muY*muY
			cov := sxy/n - muX*muY

			num := (2*muX*muY + c1) * (2*cov + c2)
			den := (muX*muX + muY*muY + c1) * (varX + varY + c2)
			total += num / den
			count++
		}
	}
	if count == 0 {
		return globalSSIM(x, y, maxValue)
	}
	return total / float64(count)
}

// globalSSIM computes SSIM from whole-band statistics, the degenerate
// form used when the band is smaller than the local window.
func globalSSIM(x, y []float32, maxValue float64) float64 {
	c1 := (ssimK1 * maxValue) * (ssimK1 * maxValue)
	c2 := (ssimK2 * maxValue) * (ssimK2 * maxValue)

	xs := make([]float64, len(x))
	ys := make([]float64, len(y))
	for i := range x {
		xs[i] = float64(x[i])
		ys[i] = float64(y[i])
	}

	muX := stat.Mean(xs, nil)
	muY := stat.Mean(ys, nil)
	varX := stat.Variance(xs, nil)
	varY := stat.Variance(ys, nil)
	cov := stat.Covariance(xs, ys, nil)

	num := (2*muX*muY + c1) * (2*cov + c2)
	den := (muX*muX + muY*muY + c1) * (varX + varY + c2)
	if den == 0 {
		return 0
	}
	return num / den
}

// integralImage builds an (height+1) x (width+1) summed-area table of
// a[i]*b[i] (or of a alone when b is nil). The out slice is reused when
// large enough.
func integralImage(a []float32, height, width int, b []float32, out []float64) []float64 {
	stride := width + 1
	need := (height + 1) * stride
	if cap(out) < need {
		out = make([]float64, need)
	}
	out = out[:need]
	for i := 0; i < stride; i++ {
		out[i] = 0
	}
	for y := 0; y < height; y++ {
		rowSum := 0.0
		out[(y+1)*stride] = 0
		for x := 0; x < width; x++ {
			v := float64(a[y*width+x])
			if b != nil {
				v *= float64(b[y*width+x])
			}
			rowSum += v
			out[(y+1)*stride+x+1] = out[y*stride+x+1] + rowSum
		}
	}
	return out
}

// windowSum reads the sum of the k x k window at (y0, x0) from a
// summed-area table built by integralImage.
func windowSum(integral []float64, width, y0, x0, k int) float64 {
	stride := width + 1
	return integral[(y0+k)*stride+x0+k] -
		integral[y0*stride+x0+k] -
		integral[(y0+k)*stride+x0] +
		integral[y0*stride+x0]
}

// boxDownsample shrinks a band by averaging factor x factor blocks.
// Trailing partial blocks average over the samples they actually cover,
// so any input size is handled. The result is deterministic.
func boxDownsample(data []float32, height, width, factor int) ([]float32, int, int) {
	if factor <= 1 {
		return data, height, width
	}
	outH := (height + factor - 1) / factor
	outW := (width + factor - 1) / factor
	out := make([]float32, outH*outW)
	for oy := 0; oy < outH; oy++ {
		for ox := 0; ox < outW; ox++ {
			sum := 0.0
			count := 0
			for y := oy * factor; y < (oy+1)*factor && y < height; y++ {
				for x := ox * factor; x < (ox+1)*factor && x < width; x++ {
					sum += float64(data[y*width+x])
					count++
				}
			}
			out[oy*outW+ox] = float32(sum / float64(count))
		}
	}
	return out, outH, outW
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
