// Package sensitivity evaluates the waterfall across grids of proceeds
// multiples and a second varying term.
package sensitivity

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/waterfall-cli/internal/waterfall"
)

// ErrInvalidGrid marks grids that cannot be evaluated as given.
var ErrInvalidGrid = eris.New("sensitivity: invalid grid")

// MaxCells bounds the cells of one grid and the values of one Range.
const MaxCells = 10_000

// Axis names the parameter varied across table columns.
type Axis string

const (
	AxisNone                Axis = "none"
	AxisCarryRate           Axis = "carry_rate"
	AxisPreferredReturnRate Axis = "preferred_return_rate"
	AxisCatchUpRate         Axis = "catch_up_rate"
	AxisGPCommitment        Axis = "gp_commitment"
)

// ParseAxis parses an axis name. Empty means AxisNone.
func ParseAxis(s string) (Axis, error) {
	switch a := Axis(strings.ToLower(strings.TrimSpace(s))); a {
	case "", AxisNone:
		return AxisNone, nil
	case AxisCarryRate, AxisPreferredReturnRate, AxisCatchUpRate, AxisGPCommitment:
		return a, nil
	}
	return "", eris.Wrapf(ErrInvalidGrid, "unknown axis %q", s)
}

// Grid describes the cells to evaluate. Gross proceeds for a row are
// contributed capital times the row's multiple.
type Grid struct {
	Multiples []float64 `json:"multiples" yaml:"multiples"`
	Axis      Axis      `json:"axis" yaml:"axis"`
	Values    []float64 `json:"values,omitempty" yaml:"values,omitempty"`
}

// Cell is the summary of one calculation in the table.
type Cell struct {
	Multiple           float64 `json:"multiple"`
	AxisValue          float64 `json:"axis_value"`
	GrossProceeds      float64 `json:"gross_proceeds"`
	TotalToLPs         float64 `json:"total_to_lps"`
	TotalToGP          float64 `json:"total_to_gp"`
	LPMultiple         float64 `json:"lp_multiple"`
	GPProfit           float64 `json:"gp_profit"`
	EffectiveCarryRate float64 `json:"effective_carry_rate"`
	TiersReached       int     `json:"tiers_reached"`
}

// Table holds cells indexed [multiple][axis value], in grid order.
type Table struct {
	Base      waterfall.Parameters `json:"base"`
	Axis      Axis                 `json:"axis"`
	Multiples []float64            `json:"multiples"`
	Values    []float64            `json:"values"`
	Cells     [][]Cell             `json:"cells"`
}

// Runner evaluates grids with bounded concurrency.
type Runner struct {
	concurrency int
}

// NewRunner creates a Runner. Concurrency below 1 is treated as 1.
func NewRunner(concurrency int) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{concurrency: concurrency}
}

// Run evaluates every cell of grid against base. The first failing cell
// aborts the run.
func (r *Runner) Run(ctx context.Context, base waterfall.Parameters, grid Grid) (*Table, error) {
	axis, err := ParseAxis(string(grid.Axis))
	if err != nil {
		return nil, err
	}
	if len(grid.Multiples) == 0 {
		return nil, eris.Wrap(ErrInvalidGrid, "at least one proceeds multiple is required")
	}

	values := grid.Values
	if axis == AxisNone {
		values = []float64{0}
	} else if len(values) == 0 {
		return nil, eris.Wrapf(ErrInvalidGrid, "axis %s needs at least one value", axis)
	}

	if cells := len(grid.Multiples) * len(values); cells > MaxCells {
		return nil, eris.Wrapf(ErrInvalidGrid, "grid of %d cells exceeds the limit of %d", cells, MaxCells)
	}

	table := &Table{
		Base:      base,
		Axis:      axis,
		Multiples: append([]float64(nil), grid.Multiples...),
		Values:    append([]float64(nil), values...),
		Cells:     make([][]Cell, len(grid.Multiples)),
	}
	for i := range table.Cells {
		table.Cells[i] = make([]Cell, len(values))
	}

	start := time.Now()
	zap.L().Debug("sensitivity run starting",
		zap.String("axis", string(axis)),
		zap.Int("cells", len(grid.Multiples)*len(values)),
		zap.Int("concurrency", r.concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, multiple := range table.Multiples {
		for j, value := range table.Values {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				p := cellParameters(base, axis, multiple, value)
				res, err := waterfall.Calculate(p)
				if err != nil {
					return eris.Wrapf(err, "sensitivity: multiple %v %s %v", multiple, axis, value)
				}
				table.Cells[i][j] = newCell(multiple, value, res)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "sensitivity: run")
	}

	zap.L().Info("sensitivity run complete",
		zap.String("axis", string(axis)),
		zap.Int("rows", len(table.Multiples)),
		zap.Int("columns", len(table.Values)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return table, nil
}

func cellParameters(base waterfall.Parameters, axis Axis, multiple, value float64) waterfall.Parameters {
	p := base
	p.GrossProceeds = base.ContributedCapital * multiple
	switch axis {
	case AxisCarryRate:
		p.CarryRate = value
	case AxisPreferredReturnRate:
		p.PreferredReturnRate = value
	case AxisCatchUpRate:
		p.HasCatchUp = true
		p.CatchUpRate = value
	case AxisGPCommitment:
		p.GPCommitmentPercent = value
	}
	return p
}

func newCell(multiple, value float64, res *waterfall.Result) Cell {
	return Cell{
		Multiple:           multiple,
		AxisValue:          value,
		GrossProceeds:      res.Parameters.GrossProceeds,
		TotalToLPs:         res.TotalToLPs,
		TotalToGP:          res.TotalToGP,
		LPMultiple:         res.LPMultiple,
		GPProfit:           res.GPProfit,
		EffectiveCarryRate: res.EffectiveCarryRate,
		TiersReached:       len(res.Tiers),
	}
}

// Range returns min, min+step, ... up to and including max. Values are
// rounded to ten decimal places so 0.1 steps stay readable.
func Range(min, max, step float64) ([]float64, error) {
	for _, v := range []float64{min, max, step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, eris.Wrapf(ErrInvalidGrid, "range bound %v is not a finite number", v)
		}
	}
	if step <= 0 {
		return nil, eris.Wrapf(ErrInvalidGrid, "step %v must be positive", step)
	}
	if max < min {
		return nil, eris.Wrapf(ErrInvalidGrid, "max %v below min %v", max, min)
	}
	n := math.Floor((max-min)/step+1e-6) + 1
	if n > MaxCells {
		return nil, eris.Wrapf(ErrInvalidGrid, "range %v..%v by %v has more than %d values", min, max, step, MaxCells)
	}
	out := make([]float64, 0, int(n))
	for k := 0; ; k++ {
		v := min + float64(k)*step
		if v > max+step*1e-6 {
			break
		}
		out = append(out, math.Round(v*1e10)/1e10)
	}
	return out, nil
}

// Comparison holds the same terms calculated with and without catch-up.
type Comparison struct {
	WithCatchUp    *waterfall.Result `json:"with_catch_up"`
	WithoutCatchUp *waterfall.Result `json:"without_catch_up"`
}

// CompareCatchUp calculates base with catch-up on and off. A base without
// catch-up gets a 100% catch-up for the "with" side.
func CompareCatchUp(base waterfall.Parameters) (*Comparison, error) {
	with := base
	with.HasCatchUp = true
	if with.CatchUpRate <= 0 {
		with.CatchUpRate = 1
	}
	without := base
	without.HasCatchUp = false

	withRes, err := waterfall.Calculate(with)
	if err != nil {
		return nil, eris.Wrap(err, "sensitivity: with catch-up")
	}
	withoutRes, err := waterfall.Calculate(without)
	if err != nil {
		return nil, eris.Wrap(err, "sensitivity: without catch-up")
	}
	return &Comparison{WithCatchUp: withRes, WithoutCatchUp: withoutRes}, nil
}
