package metrics

// Quality tier labels, ordered from best to worst.
const (
	TierExcellent = "excellent"
	TierGood      = "good"
	TierModerate  = "moderate"
	TierPoor      = "poor"
)

// tierRank orders the tiers for pessimistic combination.
var tierRank = map[string]int{
	TierExcellent: 3,
	TierGood:      2,
	TierModerate:  1,
	TierPoor:      0,
}

// classifyTier maps the aggregate PSNR and SSIM onto a quality tier.
// Each metric is classified independently against its thresholds and
// the lower (more pessimistic) of the two tiers wins.
func classifyTier(psnr, ssim float64) string {
	p := psnrTier(psnr)
	s := ssimTier(ssim)
	if tierRank[s] < tierRank[p] {
		return s
	}
	return p
}

func psnrTier(psnr float64) string {
	switch {
	case psnr >= 35:
		return TierExcellent
	case psnr >= 25:
		return TierGood
	case psnr >= 15:
		return TierModerate
	}
	return TierPoor
}

func ssimTier(ssim float64) string {
	switch {
	case ssim >= 0.95:
		return TierExcellent
	case ssim >= 0.85:
		return TierGood
	case ssim >= 0.70:
		return TierModerate
	}
	return TierPoor
}
