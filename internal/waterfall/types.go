// Package waterfall computes how fund proceeds are distributed between limited
// partners and the general partner across the four tiers of a distribution
// waterfall: return of capital, preferred return, GP catch-up and the residual
// carried-interest split.
package waterfall

// Type selects how the fund sequences distributions.
type Type string

const (
	// TypeEuropean distributes at the whole-fund level.
	TypeEuropean Type = "european"
	// TypeAmerican is the deal-by-deal label. It is computed with the same
	// whole-fund sequence as TypeEuropean.
	TypeAmerican Type = "american"
)

// Compounding selects the preferred-return accrual formula.
type Compounding string

const (
	CompoundingSimple   Compounding = "simple"
	CompoundingCompound Compounding = "compound"
)

// CatchUpTarget selects how the tier 3 catch-up target is measured.
type CatchUpTarget string

const (
	// CatchUpResidual targets carryRate of the profit left after capital and
	// the full preferred return: (gross - capital - pref) * carry.
	// The empty value means CatchUpResidual.
	CatchUpResidual CatchUpTarget = "residual"
	// CatchUpCumulative runs catch-up until the GP holds carryRate of all
	// profit distributed so far.
	CatchUpCumulative CatchUpTarget = "cumulative"
)

// Tier numbers in priority order.
const (
	TierReturnOfCapital = 1
	TierPreferredReturn = 2
	TierCatchUp         = 3
	TierResidualSplit   = 4
)

// Parameters holds the economic terms for one calculation. Rates are
// fractions (0.08 is 8%) and amounts are currency units.
type Parameters struct {
	FundSize                   float64       `json:"fund_size" yaml:"fund_size" mapstructure:"fund_size"`
	ContributedCapital         float64       `json:"contributed_capital" yaml:"contributed_capital" mapstructure:"contributed_capital"`
	GrossProceeds              float64       `json:"gross_proceeds" yaml:"gross_proceeds" mapstructure:"gross_proceeds"`
	WaterfallType              Type          `json:"waterfall_type" yaml:"waterfall_type" mapstructure:"waterfall_type"`
	PreferredReturnRate        float64       `json:"preferred_return_rate" yaml:"preferred_return_rate" mapstructure:"preferred_return_rate"`
	PreferredReturnCompounding Compounding   `json:"preferred_return_compounding" yaml:"preferred_return_compounding" mapstructure:"preferred_return_compounding"`
	CarryRate                  float64       `json:"carry_rate" yaml:"carry_rate" mapstructure:"carry_rate"`
	HasCatchUp                 bool          `json:"has_catch_up" yaml:"has_catch_up" mapstructure:"has_catch_up"`
	CatchUpRate                float64       `json:"catch_up_rate" yaml:"catch_up_rate" mapstructure:"catch_up_rate"`
	CatchUpTarget              CatchUpTarget `json:"catch_up_target,omitempty" yaml:"catch_up_target,omitempty" mapstructure:"catch_up_target"`
	YearsToExit                float64       `json:"years_to_exit" yaml:"years_to_exit" mapstructure:"years_to_exit"`
	GPCommitmentPercent        float64       `json:"gp_commitment_percent" yaml:"gp_commitment_percent" mapstructure:"gp_commitment_percent"`
}

// GPCapital is the GP's own contribution: contributed capital times the
// GP commitment percent.
func (p Parameters) GPCapital() float64 {
	return p.ContributedCapital * p.GPCommitmentPercent
}

// LPCapital is contributed capital excluding the GP's commitment.
func (p Parameters) LPCapital() float64 {
	return p.ContributedCapital - p.GPCapital()
}

// TierResult is the allocation made by one tier. Cumulative fields are
// running totals as of the end of the tier.
type TierResult struct {
	TierNumber      int     `json:"tier_number"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	AmountToLPs     float64 `json:"amount_to_lps"`
	AmountToGP      float64 `json:"amount_to_gp"`
	TotalAmount     float64 `json:"total_amount"`
	CumulativeToLPs float64 `json:"cumulative_to_lps"`
	CumulativeToGP  float64 `json:"cumulative_to_gp"`
	CumulativeTotal float64 `json:"cumulative_total"`
}

// Metrics are the summary figures derived from the tier totals.
type Metrics struct {
	LPMultiple         float64 `json:"lp_multiple"`
	GPMultiple         float64 `json:"gp_multiple"`
	TotalProfit        float64 `json:"total_profit"`
	LPProfit           float64 `json:"lp_profit"`
	GPProfit           float64 `json:"gp_profit"`
	EffectiveCarryRate float64 `json:"effective_carry_rate"`
}

// Result is the outcome of one calculation. Tiers holds only the tiers that
// received proceeds, in priority order.
type Result struct {
	Parameters       Parameters   `json:"parameters"`
	PreferredReturn  float64      `json:"preferred_return"`
	Tiers            []TierResult `json:"tiers"`
	TotalToLPs       float64      `json:"total_to_lps"`
	TotalToGP        float64      `json:"total_to_gp"`
	TotalDistributed float64      `json:"total_distributed"`
	Metrics
}

// Tier returns the tier with the given number, or nil when that tier was not
// reached.
func (r *Result) Tier(number int) *TierResult {
	for i := range r.Tiers {
		if r.Tiers[i].TierNumber == number {
			return &r.Tiers[i]
		}
	}
	return nil
}
