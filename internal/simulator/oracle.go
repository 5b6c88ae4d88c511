package simulator

import "math"

// quartileZ is the standard normal quantile at 0.75
const quartileZ = 0.6744897501960817

// WinProbability is the chance that a team whose true mean rating is gap points
// higher wins, where a gap of margin points gives exactly 75%.
func WinProbability(gap, margin float64) float64 {
	return normalCDF(gap / (margin / quartileZ))
}

func normalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}
