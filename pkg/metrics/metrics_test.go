package metrics

import (
	"errors"
	"math"
	"testing"

	"multinoise/pkg/imagery"
)

// TestCompareIdentical verifies the identical-image sentinel: zero MSE,
// infinite PSNR and SNR, SSIM 1, excellent tier
func TestCompareIdentical(t *testing.T) {
	img := gradientImage(3, 16, 16, imagery.Uint8)

	rec, err := Compare(img, img.Clone())
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if !rec.Identical {
		t.Error("Expected Identical to be set")
	}
	if rec.MSE != 0 {
		t.Errorf("Expected MSE 0, got %f", rec.MSE)
	}
	if !math.IsInf(rec.PSNR, 1) {
		t.Errorf("Expected infinite PSNR, got %f", rec.PSNR)
	}
	if !math.IsInf(rec.SNR, 1) {
		t.Errorf("Expected infinite SNR, got %f", rec.SNR)
	}
	if math.Abs(rec.SSIM-1) > 1e-9 {
		t.Errorf("Expected SSIM 1, got %f", rec.SSIM)
	}
	if rec.Tier != TierExcellent {
		t.Errorf("Expected tier %q, got %q", TierExcellent, rec.Tier)
	}
	if len(rec.PerBand) != 3 {
		t.Errorf("Expected 3 per-band entries, got %d", len(rec.PerBand))
	}
}

// TestCompareConstantOffset verifies the closed-form PSNR of a uniform
// +10 shift on 8-bit data: MSE 100, PSNR 10*log10(255^2/100) = 28.13 dB
func TestCompareConstantOffset(t *testing.T) {
	orig := gradientImage(1, 32, 32, imagery.Uint8)
	// Keep values 10 below the ceiling so the offset never clips
	for i, v := range orig.Data {
		if v > 245 {
			orig.Data[i] = 245
		}
	}
	degr := orig.Clone()
	for i := range degr.Data {
		degr.Data[i] += 10
	}

	rec, err := Compare(orig, degr)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if math.Abs(rec.MSE-100) > 1e-6 {
		t.Errorf("Expected MSE 100, got %f", rec.MSE)
	}
	want := 10 * math.Log10(255*255/100.0)
	if math.Abs(rec.PSNR-want) > 1e-6 {
		t.Errorf("Expected PSNR %.4f, got %.4f", want, rec.PSNR)
	}
	if rec.Identical {
		t.Error("Expected Identical to be false")
	}
}

// TestCompareOneIdenticalBand verifies that a single bit-identical
// band keeps its +Inf per-band PSNR but does not drag the aggregate to
// +Inf; the Identical flag stays false
func TestCompareOneIdenticalBand(t *testing.T) {
	orig := gradientImage(2, 16, 16, imagery.Uint8)
	degr := orig.Clone()
	// Disturb only band 1; band 0 stays bit-identical
	band := degr.Band(1)
	for i := range band {
		if band[i] < 245 {
			band[i] += 10
		}
	}

	rec, err := Compare(orig, degr)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if rec.Identical {
		t.Error("Expected Identical to be false with one degraded band")
	}
	if !math.IsInf(rec.PerBand[0].PSNR, 1) {
		t.Errorf("Expected +Inf per-band PSNR for the identical band, got %f", rec.PerBand[0].PSNR)
	}
	if math.IsInf(rec.PSNR, 0) {
		t.Errorf("Expected finite aggregate PSNR, got %f", rec.PSNR)
	}
	if math.Abs(rec.PSNR-rec.PerBand[1].PSNR) > 1e-9 {
		t.Errorf("Expected aggregate PSNR to equal the finite band's %f, got %f", rec.PerBand[1].PSNR, rec.PSNR)
	}
	if math.IsInf(rec.SNR, 0) {
		t.Errorf("Expected finite aggregate SNR, got %f", rec.SNR)
	}
}

// TestCompareShapeMismatch verifies mismatched inputs are rejected
func TestCompareShapeMismatch(t *testing.T) {
	a := gradientImage(3, 8, 8, imagery.Uint8)

	cases := []*imagery.Image{
		gradientImage(2, 8, 8, imagery.Uint8),
		gradientImage(3, 9, 8, imagery.Uint8),
		gradientImage(3, 8, 9, imagery.Uint8),
		gradientImage(3, 8, 8, imagery.Uint16),
	}
	for i, b := range cases {
		if _, err := Compare(a, b); !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("Case %d: expected ErrShapeMismatch, got %v", i, err)
		}
	}
}

// TestPSNRDropsWithNoise verifies that more distortion means lower PSNR
// and lower SSIM
func TestPSNRDropsWithNoise(t *testing.T) {
	orig := gradientImage(1, 64, 64, imagery.Uint8)

	prevPSNR := math.Inf(1)
	prevSSIM := 1.0
	for _, amplitude := range []float32{2, 10, 40} {
		degr := orig.Clone()
		for i := range degr.Data {
			// Deterministic alternating disturbance
			if i%2 == 0 {
				degr.Data[i] = degr.Data[i] + amplitude
			} else if degr.Data[i] >= amplitude {
				degr.Data[i] = degr.Data[i] - amplitude
			}
		}
		rec, err := Compare(orig, degr)
		if err != nil {
			t.Fatalf("Compare failed: %v", err)
		}
		if rec.PSNR >= prevPSNR {
			t.Errorf("Expected PSNR to drop at amplitude %f, got %f after %f", amplitude, rec.PSNR, prevPSNR)
		}
		if rec.SSIM >= prevSSIM {
			t.Errorf("Expected SSIM to drop at amplitude %f, got %f after %f", amplitude, rec.SSIM, prevSSIM)
		}
		prevPSNR, prevSSIM = rec.PSNR, rec.SSIM
	}
}

// TestSSIMRange verifies SSIM stays within [-1, 1] for heavy distortion
func TestSSIMRange(t *testing.T) {
	orig := gradientImage(1, 32, 32, imagery.Uint8)
	degr := orig.Clone()
	for i := range degr.Data {
		degr.Data[i] = 255 - degr.Data[i]
	}

	rec, err := Compare(orig, degr)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if rec.SSIM < -1 || rec.SSIM > 1 {
		t.Errorf("Expected SSIM in [-1, 1], got %f", rec.SSIM)
	}
}

// TestCompareTinyImage verifies the global-statistics fallback for
// bands smaller than the SSIM window
func TestCompareTinyImage(t *testing.T) {
	orig := gradientImage(2, 3, 3, imagery.Uint8)
	degr := orig.Clone()
	degr.Data[0] += 5

	rec, err := Compare(orig, degr)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if math.IsNaN(rec.SSIM) {
		t.Error("Expected finite SSIM for tiny image, got NaN")
	}
	if rec.SSIM < -1 || rec.SSIM > 1 {
		t.Errorf("Expected SSIM in [-1, 1], got %f", rec.SSIM)
	}
}

// TestCompareFloat32 verifies metrics use the [0, 1] peak for float data
func TestCompareFloat32(t *testing.T) {
	orig := gradientImage(1, 16, 16, imagery.Float32)
	degr := orig.Clone()
	for i := range degr.Data {
		degr.Data[i] *= 0.99
	}

	rec, err := Compare(orig, degr)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if math.IsInf(rec.PSNR, 1) || rec.PSNR < 20 {
		t.Errorf("Expected a finite high PSNR for a 1%% scale error, got %f", rec.PSNR)
	}
}

// TestClassifyTier verifies the pessimistic tier combination
func TestClassifyTier(t *testing.T) {
	cases := []struct {
		psnr, ssim float64
		want       string
	}{
		{40, 0.99, TierExcellent},
		{math.Inf(1), 1.0, TierExcellent},
		{30, 0.90, TierGood},
		{40, 0.90, TierGood},     // SSIM limits the tier
		{20, 0.99, TierModerate}, // PSNR limits the tier
		{18, 0.75, TierModerate},
		{10, 0.99, TierPoor},
		{40, 0.50, TierPoor},
		{35, 0.95, TierExcellent}, // boundaries are inclusive
		{25, 0.85, TierGood},
		{15, 0.70, TierModerate},
	}
	for _, c := range cases {
		if got := classifyTier(c.psnr, c.ssim); got != c.want {
			t.Errorf("Expected tier %q for PSNR %f SSIM %f, got %q", c.want, c.psnr, c.ssim, got)
		}
	}
}

// TestBoxDownsample verifies block averaging including partial trailing
// blocks
func TestBoxDownsample(t *testing.T) {
	// 2x4 band downsampled by factor 2 gives 1x2
	band := []float32{1, 3, 5, 7, 2, 4, 6, 8}
	out, h, w := boxDownsample(band, 2, 4, 2)
	if h != 1 || w != 2 {
		t.Fatalf("Expected 1x2 output, got %dx%d", h, w)
	}
	if out[0] != 2.5 || out[1] != 6.5 {
		t.Errorf("Expected [2.5, 6.5], got %v", out)
	}

	// 3x3 with factor 2: trailing row/column blocks average fewer samples
	band = []float32{
		1, 1, 4,
		1, 1, 4,
		8, 8, 2,
	}
	out, h, w = boxDownsample(band, 3, 3, 2)
	if h != 2 || w != 2 {
		t.Fatalf("Expected 2x2 output, got %dx%d", h, w)
	}
	if out[0] != 1 || out[1] != 4 || out[2] != 8 || out[3] != 2 {
		t.Errorf("Expected [1, 4, 8, 2], got %v", out)
	}
}

// gradientImage builds a deterministic test image with smooth structure
func gradientImage(bands, height, width int, typ imagery.SampleType) *imagery.Image {
	img := imagery.New(bands, height, width, typ)
	max := typ.MaxValue()
	for b := 0; b < bands; b++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v := float64(x+y+b) / float64(width+height+bands) * max
				if typ != imagery.Float32 {
					v = math.Trunc(v)
				}
				img.Set(b, y, x, float32(v))
			}
		}
	}
	return img
}
