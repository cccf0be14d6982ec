package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rotisserie/eris"

	"github.com/sells-group/waterfall-cli/internal/waterfall"
)

const (
	marginLeft   = 15.0
	marginTop    = 15.0
	marginRight  = 15.0
	marginBottom = 15.0
	pageWidth    = 210.0 // A4
	contentWidth = pageWidth - marginLeft - marginRight
)

// Report is a one-page PDF summary of a waterfall result.
type Report struct {
	pdf       *fpdf.Fpdf
	res       *waterfall.Result
	f         Formatter
	title     string
	generated time.Time
}

// NewReport creates a report. An empty title becomes "Distribution Waterfall".
func NewReport(res *waterfall.Result, f Formatter, title string, generated time.Time) *Report {
	if title == "" {
		title = "Distribution Waterfall"
	}
	r := &Report{
		pdf:       fpdf.New("P", "mm", "A4", ""),
		res:       res,
		f:         f,
		title:     title,
		generated: generated,
	}
	r.pdf.SetMargins(marginLeft, marginTop, marginRight)
	r.pdf.SetAutoPageBreak(true, marginBottom)
	return r
}

// Write renders the report to w.
func (r *Report) Write(w io.Writer) error {
	r.pdf.AddPage()
	r.header()
	r.terms()
	r.tiers()
	r.metrics()

	if err := r.pdf.Output(w); err != nil {
		return eris.Wrap(err, "export: write pdf")
	}
	return nil
}

// WritePDF renders a one-page report for res.
func WritePDF(w io.Writer, res *waterfall.Result, f Formatter, title string) error {
	return NewReport(res, f, title, time.Now()).Write(w)
}

func (r *Report) header() {
	r.pdf.SetFont("Arial", "B", 18)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(contentWidth, 10, r.title, "", 1, "L", false, 0, "")

	r.pdf.SetFont("Arial", "I", 9)
	r.pdf.SetTextColor(120, 120, 120)
	r.pdf.CellFormat(contentWidth, 5, fmt.Sprintf("Generated: %s", r.generated.Format("2 January 2006")), "", 1, "L", false, 0, "")
	r.pdf.Ln(4)
}

func (r *Report) section(title string) {
	r.pdf.SetFont("Arial", "B", 12)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(contentWidth, 8, title, "", 1, "L", false, 0, "")
	r.pdf.SetFont("Arial", "", 10)
	r.pdf.SetTextColor(50, 50, 50)
}

func (r *Report) row(label, value string) {
	r.pdf.CellFormat(contentWidth*0.5, 6, label, "B", 0, "L", false, 0, "")
	r.pdf.CellFormat(contentWidth*0.5, 6, value, "B", 1, "R", false, 0, "")
}

func (r *Report) terms() {
	p := r.res.Parameters
	f := r.f
	r.section("Fund Terms")
	r.row("Fund size", f.Money(p.FundSize))
	r.row("Contributed capital", f.Money(p.ContributedCapital))
	r.row("Gross proceeds", f.Money(p.GrossProceeds))
	r.row("Waterfall type", string(p.WaterfallType))
	r.row("Preferred return", fmt.Sprintf("%s %s over %g years", f.Percent(p.PreferredReturnRate), p.PreferredReturnCompounding, p.YearsToExit))
	r.row("Carried interest", f.Percent(p.CarryRate))
	if p.HasCatchUp {
		r.row("GP catch-up", f.Percent(p.CatchUpRate))
	} else {
		r.row("GP catch-up", "none")
	}
	r.row("GP commitment", f.Percent(p.GPCommitmentPercent))
	r.pdf.Ln(6)
}

func (r *Report) tiers() {
	r.section("Distribution Tiers")

	widths := []float64{12, 58, 36, 36, 38}
	headers := []string{"Tier", "Name", "To LPs", "To GP", "Total"}
	r.pdf.SetFillColor(245, 247, 250)
	r.pdf.SetFont("Arial", "B", 10)
	for i, h := range headers {
		align := "R"
		if i < 2 {
			align = "L"
		}
		r.pdf.CellFormat(widths[i], 7, h, "1", 0, align, true, 0, "")
	}
	r.pdf.Ln(-1)

	r.pdf.SetFont("Arial", "", 10)
	for _, t := range r.res.Tiers {
		r.pdf.CellFormat(widths[0], 7, fmt.Sprintf("%d", t.TierNumber), "1", 0, "L", false, 0, "")
		r.pdf.CellFormat(widths[1], 7, t.Name, "1", 0, "L", false, 0, "")
		r.pdf.CellFormat(widths[2], 7, r.f.Money(t.AmountToLPs), "1", 0, "R", false, 0, "")
		r.pdf.CellFormat(widths[3], 7, r.f.Money(t.AmountToGP), "1", 0, "R", false, 0, "")
		r.pdf.CellFormat(widths[4], 7, r.f.Money(t.TotalAmount), "1", 1, "R", false, 0, "")
	}

	r.pdf.SetFont("Arial", "B", 10)
	r.pdf.CellFormat(widths[0]+widths[1], 7, "Total", "1", 0, "L", true, 0, "")
	r.pdf.CellFormat(widths[2], 7, r.f.Money(r.res.TotalToLPs), "1", 0, "R", true, 0, "")
	r.pdf.CellFormat(widths[3], 7, r.f.Money(r.res.TotalToGP), "1", 0, "R", true, 0, "")
	r.pdf.CellFormat(widths[4], 7, r.f.Money(r.res.TotalDistributed), "1", 1, "R", true, 0, "")

	r.pdf.SetFont("Arial", "", 9)
	r.pdf.SetTextColor(100, 100, 100)
	for _, t := range r.res.Tiers {
		r.pdf.MultiCell(contentWidth, 4.5, fmt.Sprintf("%d. %s", t.TierNumber, t.Description), "", "L", false)
	}
	r.pdf.Ln(6)
}

func (r *Report) metrics() {
	f := r.f
	r.section("Returns")
	r.row("LP multiple", f.Multiple(r.res.LPMultiple))
	r.row("GP multiple", f.Multiple(r.res.GPMultiple))
	r.row("Total profit", f.Money(r.res.TotalProfit))
	r.row("LP profit", f.Money(r.res.LPProfit))
	r.row("GP profit", f.Money(r.res.GPProfit))
	r.row("Effective carry rate", f.Percent(r.res.EffectiveCarryRate))
}
