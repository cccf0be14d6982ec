package waterfall

import "math"

// PreferredReturn computes the hurdle owed to all capital contributors
// (LPs and the GP in its LP role) before any carry is earned.
//
//	simple:   capital * rate * years
//	compound: capital * ((1 + rate)^years - 1)
//
// Inputs are not clamped; negative values are a caller error and are rejected
// by Parameters.Validate.
func PreferredReturn(capital, rate, years float64, compounding Compounding) float64 {
	if capital == 0 || rate == 0 || years == 0 {
		return 0
	}
	if compounding == CompoundingCompound {
		return capital * (math.Pow(1+rate, years) - 1)
	}
	return capital * rate * years
}
