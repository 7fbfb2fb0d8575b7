// Package metrics computes objective image fidelity metrics between a
// clean reference image and a degraded version of it: MSE, PSNR, SSIM
// and SNR, per band and aggregated across bands, plus a quality tier
// classification.
//
// PSNR and SSIM use the original image as the reference; swapping the
// arguments changes the result and is not supported. MSE and SNR depend
// only on the magnitude of the difference.
package metrics

import (
	"errors"
	"fmt"
	"math"

	"multinoise/pkg/imagery"
)

// ErrShapeMismatch reports a comparison between images whose shapes or
// sample types differ.
var ErrShapeMismatch = errors.New("image shapes do not match")

// BandMetrics holds the fidelity metrics of a single band.
type BandMetrics struct {
	MSE  float64
	PSNR float64
	SSIM float64
	SNR  float64
}

// Record is the immutable result of one comparison. Image, Model and
// Level identify which degraded output was compared; the batch driver
// fills them in.
type Record struct {
	Image string
	Model string
	Level int

	// PerBand holds one entry per band in band order.
	PerBand []BandMetrics

	// MSE, PSNR, SSIM and SNR are the aggregates. MSE and SSIM are the
	// arithmetic mean of the per-band values; PSNR and SNR average only
	// the finite per-band values, so a single bit-identical band does
	// not drag the aggregate to +Inf.
	MSE  float64
	PSNR float64
	SSIM float64
	SNR  float64

	// Identical is set when every band matched exactly (MSE 0). PSNR
	// and SNR are +Inf in that case.
	Identical bool

	// Tier is the quality classification: "excellent", "good",
	// "moderate" or "poor".
	Tier string
}

// Compare computes the metrics record for a degraded image against its
// original. Both images must have identical shape and sample type.
func Compare(original, degraded *imagery.Image) (*Record, error) {
	if !original.SameShape(degraded) {
		return nil, fmt.Errorf("%w: original (%d, %d, %d) %s, degraded (%d, %d, %d) %s",
			ErrShapeMismatch,
			original.Bands, original.Height, original.Width, original.Type,
			degraded.Bands, degraded.Height, degraded.Width, degraded.Type)
	}

	maxValue := original.Type.MaxValue()
	rec := &Record{PerBand: make([]BandMetrics, original.Bands)}
	psnrs := make([]float64, original.Bands)
	snrs := make([]float64, original.Bands)

	identical := true
	for b := 0; b < original.Bands; b++ {
		orig := original.Band(b)
		degr := degraded.Band(b)

		mse, signalPower := mseAndSignalPower(orig, degr)
		bm := BandMetrics{
			MSE:  mse,
			PSNR: psnrFromMSE(mse, maxValue),
			SNR:  snrFromPower(signalPower, mse),
			SSIM: bandSSIM(orig, degr, original.Height, original.Width, maxValue),
		}
		rec.PerBand[b] = bm
		if mse != 0 {
			identical = false
		}

		rec.MSE += bm.MSE
		rec.SSIM += bm.SSIM
		psnrs[b] = bm.PSNR
		snrs[b] = bm.SNR
	}

	n := float64(original.Bands)
	rec.MSE /= n
	rec.SSIM /= n
	rec.PSNR = meanFinite(psnrs)
	rec.SNR = meanFinite(snrs)
	rec.Identical = identical
	rec.Tier = classifyTier(rec.PSNR, rec.SSIM)
	return rec, nil
}

// meanFinite averages the finite values. Bands that matched exactly
// contribute +Inf per-band PSNR/SNR and are skipped, so the aggregate
// stays finite unless every band is infinite; only a fully identical
// image reports the +Inf sentinel.
func meanFinite(vals []float64) float64 {
	var sum float64
	finite := 0
	for _, v := range vals {
		if math.IsInf(v, 0) {
			continue
		}
		sum += v
		finite++
	}
	if finite == 0 {
		return vals[0]
	}
	return sum / float64(finite)
}

// mseAndSignalPower returns the mean squared difference between the two
// sample slices and the mean squared value of the original, both in
// float64.
func mseAndSignalPower(orig, degr []float32) (mse, signalPower float64) {
	for i := range orig {
		o := float64(orig[i])
		d := o - float64(degr[i])
		mse += d * d
		signalPower += o * o
	}
	n := float64(len(orig))
	return mse / n, signalPower / n
}

// psnrFromMSE computes 10*log10(max^2/MSE). A zero MSE yields +Inf,
// which callers report as the "identical" sentinel.
func psnrFromMSE(mse, maxValue float64) float64 {
	if mse == 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(maxValue*maxValue/mse)
}

// snrFromPower computes 10*log10(signalPower/noisePower).
func snrFromPower(signalPower, noisePower float64) float64 {
	if noisePower == 0 {
		return math.Inf(1)
	}
	if signalPower == 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(signalPower/noisePower)
}
