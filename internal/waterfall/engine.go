package waterfall

import (
	"fmt"
	"math"
	"strconv"
)

const dealByDealNote = " (deal-by-deal label: calculated at the fund level; true deal-by-deal accounting would calculate per investment)"

// Calculate validates p and runs the distribution waterfall. It is pure and
// safe for concurrent use: no state is shared between calls and p is never
// modified.
func Calculate(p Parameters) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return calculate(p), nil
}

// sequencer allocates proceeds tier by tier and keeps running totals.
type sequencer struct {
	remaining float64
	cumLP     float64
	cumGP     float64
	tiers     []TierResult
}

// allocate consumes min(remaining, capacity) and gives gpShare of it to the
// GP. Tiers that would consume nothing are not recorded.
func (s *sequencer) allocate(number int, name, description string, capacity, gpShare float64) {
	if s.remaining <= 0 || capacity <= 0 {
		return
	}
	consumed := math.Min(s.remaining, capacity)
	gp := consumed * gpShare
	lp := consumed - gp
	s.remaining -= consumed
	s.cumLP += lp
	s.cumGP += gp

	s.tiers = append(s.tiers, TierResult{
		TierNumber:      number,
		Name:            name,
		Description:     description,
		AmountToLPs:     lp,
		AmountToGP:      gp,
		TotalAmount:     lp + gp,
		CumulativeToLPs: s.cumLP,
		CumulativeToGP:  s.cumGP,
		CumulativeTotal: s.cumLP + s.cumGP,
	})
}

func (s *sequencer) distributed() float64 {
	return s.cumLP + s.cumGP
}

func calculate(p Parameters) *Result {
	gpAsLP := p.GPCapital()
	pref := PreferredReturn(p.ContributedCapital, p.PreferredReturnRate, p.YearsToExit, p.PreferredReturnCompounding)

	// GP's pro-rata share of tiers 1 and 2. Zero capital leaves both tiers
	// with zero capacity, so the ratio is never taken over zero.
	var gpProRata float64
	if p.ContributedCapital > 0 {
		gpProRata = gpAsLP / p.ContributedCapital
	}

	s := &sequencer{remaining: p.GrossProceeds, tiers: make([]TierResult, 0, 4)}

	roc := "Distributions go to all partners pro-rata to contributed capital until it is returned in full"
	if p.WaterfallType == TypeAmerican {
		roc += dealByDealNote
	}
	s.allocate(TierReturnOfCapital, "Return of Capital", roc, p.ContributedCapital, gpProRata)

	s.allocate(TierPreferredReturn, "Preferred Return",
		fmt.Sprintf("%s %s preferred return over %s years, pro-rata to contributed capital",
			formatPercent(p.PreferredReturnRate), compoundingLabel(p.PreferredReturnCompounding), strconv.FormatFloat(p.YearsToExit, 'f', -1, 64)),
		pref, gpProRata)

	if p.HasCatchUp && s.remaining > 0 {
		capacity := catchUpCapacity(p, s, pref, gpAsLP)
		s.allocate(TierCatchUp, "GP Catch-Up",
			fmt.Sprintf("%s of distributions to the GP until it has received %s of profits",
				formatPercent(p.CatchUpRate), formatPercent(p.CarryRate)),
			capacity, p.CatchUpRate)
	}

	s.allocate(TierResidualSplit, "Carried Interest Split",
		fmt.Sprintf("Remaining proceeds split %s to LPs and %s to the GP",
			formatPercent(1-p.CarryRate), formatPercent(p.CarryRate)),
		math.Inf(1), p.CarryRate)

	res := &Result{
		Parameters:       p,
		PreferredReturn:  pref,
		Tiers:            s.tiers,
		TotalToLPs:       s.cumLP,
		TotalToGP:        s.cumGP,
		TotalDistributed: s.distributed(),
	}
	res.Metrics = ComputeMetrics(p, res.TotalToLPs, res.TotalToGP)
	return res
}

// catchUpCapacity returns the gross amount tier 3 may consume.
//
// Residual mode measures the target against the full accrued preferred
// return, not the amount tier 2 actually paid. Tier 3 only runs when
// proceeds are left after tier 2, so tier 2 is always fully paid by then.
func catchUpCapacity(p Parameters, s *sequencer, pref, gpAsLP float64) float64 {
	gpProfitSoFar := s.cumGP - gpAsLP

	if p.CatchUpTarget == CatchUpCumulative {
		profitSoFar := s.distributed() - p.ContributedCapital
		shortfall := math.Max(0, p.CarryRate*profitSoFar-gpProfitSoFar)
		if shortfall == 0 {
			return 0
		}
		// Each gross dollar closes the gap by catchUpRate - carryRate.
		if p.CatchUpRate <= p.CarryRate {
			return math.Inf(1)
		}
		return shortfall / (p.CatchUpRate - p.CarryRate)
	}

	profitsAfterPref := p.GrossProceeds - p.ContributedCapital - pref
	target := profitsAfterPref * p.CarryRate
	shortfall := math.Max(0, target-gpProfitSoFar)
	return shortfall / p.CatchUpRate
}

// ComputeMetrics derives multiples, profits and the effective carry rate from
// the party totals. Divide-by-zero cases yield 0.
func ComputeMetrics(p Parameters, totalToLPs, totalToGP float64) Metrics {
	lpCapital := p.LPCapital()
	gpCapital := p.GPCapital()

	m := Metrics{
		TotalProfit: p.GrossProceeds - p.ContributedCapital,
		LPProfit:    totalToLPs - lpCapital,
		GPProfit:    totalToGP - gpCapital,
	}
	if lpCapital > 0 {
		m.LPMultiple = totalToLPs / lpCapital
	}
	if gpCapital > 0 {
		m.GPMultiple = totalToGP / gpCapital
	}
	if m.TotalProfit > 0 {
		m.EffectiveCarryRate = m.GPProfit / m.TotalProfit
	}
	return m
}

// RecomputeMetrics derives the metrics again from the result's own totals.
func (r *Result) RecomputeMetrics() Metrics {
	return ComputeMetrics(r.Parameters, r.TotalToLPs, r.TotalToGP)
}

func compoundingLabel(c Compounding) string {
	if c == CompoundingCompound {
		return "compounded"
	}
	return "simple"
}

// formatPercent renders a fraction as a percentage with at most two decimals.
func formatPercent(f float64) string {
	return strconv.FormatFloat(math.Round(f*10000)/100, 'f', -1, 64) + "%"
}
