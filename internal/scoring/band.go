package scoring

// bandStep maps a minimum percentage to an IELTS band score.
type bandStep struct {
	minPercent float64
	band       float64
}

// Percentage thresholds follow the whole-band ladder used on result
// reports: one band per decade from 90 down to 20, floor 1.0.
var bandScale = []bandStep{
	{90, 9.0},
	{80, 8.0},
	{70, 7.0},
	{60, 6.0},
	{50, 5.0},
	{40, 4.0},
	{30, 3.0},
	{20, 2.0},
}

// BandForPercentage converts a raw score percentage into a band score.
func BandForPercentage(pct float64) float64 {
	for _, step := range bandScale {
		if pct >= step.minPercent {
			return step.band
		}
	}
	return 1.0
}

// BandDescription returns the official descriptor label for a band score.
func BandDescription(band float64) string {
	switch {
	case band >= 8.5:
		return "Expert User"
	case band >= 7.5:
		return "Very Good User"
	case band >= 6.5:
		return "Good User"
	case band >= 5.5:
		return "Competent User"
	case band >= 4.5:
		return "Modest User"
	case band >= 3.5:
		return "Limited User"
	case band >= 2.5:
		return "Extremely Limited User"
	default:
		return "Intermittent User"
	}
}
