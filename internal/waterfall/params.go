package waterfall

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidParameter is wrapped by every validation failure.
var ErrInvalidParameter = eris.New("waterfall: invalid parameter")

// DefaultParameters returns a $100M fund returning 2.0x with an 8% simple
// hurdle over five years, 20% carry, full catch-up and a 1% GP commitment.
func DefaultParameters() Parameters {
	return Parameters{
		FundSize:                   100_000_000,
		ContributedCapital:         100_000_000,
		GrossProceeds:              200_000_000,
		WaterfallType:              TypeEuropean,
		PreferredReturnRate:        0.08,
		PreferredReturnCompounding: CompoundingSimple,
		CarryRate:                  0.20,
		HasCatchUp:                 true,
		CatchUpRate:                1.0,
		CatchUpTarget:              CatchUpResidual,
		YearsToExit:                5,
		GPCommitmentPercent:        0.01,
	}
}

// ParseType parses a waterfall type name, case-insensitively.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeEuropean, TypeAmerican:
		return t, nil
	}
	return "", eris.Wrapf(ErrInvalidParameter, "waterfall type %q (want european or american)", s)
}

// ParseCompounding parses a compounding mode name, case-insensitively.
func ParseCompounding(s string) (Compounding, error) {
	switch c := Compounding(strings.ToLower(strings.TrimSpace(s))); c {
	case CompoundingSimple, CompoundingCompound:
		return c, nil
	}
	return "", eris.Wrapf(ErrInvalidParameter, "preferred return compounding %q (want simple or compound)", s)
}

// ParseCatchUpTarget parses a catch-up target mode. Empty means residual.
func ParseCatchUpTarget(s string) (CatchUpTarget, error) {
	switch c := CatchUpTarget(strings.ToLower(strings.TrimSpace(s))); c {
	case "", CatchUpResidual:
		return CatchUpResidual, nil
	case CatchUpCumulative:
		return c, nil
	}
	return "", eris.Wrapf(ErrInvalidParameter, "catch-up target %q (want residual or cumulative)", s)
}

// Validate reports the first parameter that is outside its valid range.
// Values are never clamped.
func (p Parameters) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"fund_size", p.FundSize},
		{"contributed_capital", p.ContributedCapital},
		{"gross_proceeds", p.GrossProceeds},
		{"preferred_return_rate", p.PreferredReturnRate},
		{"years_to_exit", p.YearsToExit},
	} {
		if err := nonNegative(f.name, f.value); err != nil {
			return err
		}
	}

	if err := unitInterval("carry_rate", p.CarryRate); err != nil {
		return err
	}
	if err := unitInterval("gp_commitment_percent", p.GPCommitmentPercent); err != nil {
		return err
	}

	if p.HasCatchUp {
		if !finite(p.CatchUpRate) || p.CatchUpRate <= 0 || p.CatchUpRate > 1 {
			return eris.Wrapf(ErrInvalidParameter, "catch_up_rate %v not in (0, 1]", p.CatchUpRate)
		}
	}

	if _, err := ParseType(string(p.WaterfallType)); err != nil {
		return err
	}
	if _, err := ParseCompounding(string(p.PreferredReturnCompounding)); err != nil {
		return err
	}
	if _, err := ParseCatchUpTarget(string(p.CatchUpTarget)); err != nil {
		return err
	}

	// Each input can be finite while the accrued hurdle is not.
	pref := PreferredReturn(p.ContributedCapital, p.PreferredReturnRate, p.YearsToExit, p.PreferredReturnCompounding)
	if !finite(pref) {
		return eris.Wrapf(ErrInvalidParameter,
			"preferred return of %v %s over %v years on %v overflows",
			p.PreferredReturnRate, p.PreferredReturnCompounding, p.YearsToExit, p.ContributedCapital)
	}
	return nil
}

func nonNegative(name string, v float64) error {
	if !finite(v) || v < 0 {
		return eris.Wrapf(ErrInvalidParameter, "%s %v must be a non-negative number", name, v)
	}
	return nil
}

func unitInterval(name string, v float64) error {
	if !finite(v) || v < 0 || v > 1 {
		return eris.Wrapf(ErrInvalidParameter, "%s %v not in [0, 1]", name, v)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
