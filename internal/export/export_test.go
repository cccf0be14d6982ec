package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/waterfall-cli/internal/sensitivity"
	"github.com/sells-group/waterfall-cli/internal/waterfall"
)

func defaultResult(t *testing.T) *waterfall.Result {
	t.Helper()
	res, err := waterfall.Calculate(waterfall.DefaultParameters())
	require.NoError(t, err)
	return res
}

func smallTable(t *testing.T) *sensitivity.Table {
	t.Helper()
	table, err := sensitivity.NewRunner(2).Run(context.Background(), waterfall.DefaultParameters(), sensitivity.Grid{
		Multiples: []float64{1, 2},
		Axis:      sensitivity.AxisCarryRate,
		Values:    []float64{0.1, 0.2},
	})
	require.NoError(t, err)
	return table
}

func TestFormatter(t *testing.T) {
	t.Parallel()
	f := NewFormatter("$")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"money grouping", f.Money(1234.5), "$1,234.50"},
		{"money large", f.Money(177_320_000), "$177,320,000.00"},
		{"money zero", f.Money(0), "$0.00"},
		{"money negative", f.Money(-20), "-$20.00"},
		{"money rounds half away from zero", f.Money(2.675), "$2.68"},
		{"money tiny negative rounds to zero", f.Money(-0.001), "$0.00"},
		{"money infinite", f.Money(math.Inf(1)), "n/a"},
		{"money NaN", f.Money(math.NaN()), "n/a"},
		{"percent", f.Percent(0.2168), "21.7%"},
		{"percent whole", f.Percent(0.08), "8.0%"},
		{"multiple", f.Multiple(1.7732), "1.77x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.got)
		})
	}

	assert.Equal(t, "€1,000.00", NewFormatter("€").Money(1000))
	assert.Equal(t, "5.00", Formatter{}.Money(5))
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	f, ok := ParseFormat(" XLSX ")
	assert.True(t, ok)
	assert.Equal(t, FormatXLSX, f)

	_, ok = ParseFormat("docx")
	assert.False(t, ok)
}

func TestWriteTable(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, defaultResult(t), NewFormatter("$")))

	out := buf.String()
	assert.Contains(t, out, "Return of Capital")
	assert.Contains(t, out, "Carried Interest Split")
	assert.Contains(t, out, "$200,000,000.00")
	assert.Contains(t, out, "$40,000,000.00")
	assert.Contains(t, out, "Effective carry")
	assert.Contains(t, out, "21.7%")
}

func TestWriteComparison(t *testing.T) {
	t.Parallel()
	cmp, err := sensitivity.CompareCatchUp(waterfall.DefaultParameters())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteComparison(&buf, cmp, NewFormatter("$")))
	assert.Contains(t, buf.String(), "Without catch-up")
	assert.Contains(t, buf.String(), "12.4%")
}

func TestWriteSensitivityTable(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, WriteSensitivityTable(&buf, smallTable(t), NewFormatter("$")))

	out := buf.String()
	assert.Contains(t, out, "carry_rate=0.1")
	assert.Contains(t, out, "2.00x")
	assert.Contains(t, out, "Total to GP")
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, defaultResult(t)))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "tiers")
	assert.Contains(t, decoded, "effective_carry_rate")
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  "))
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()
	res := defaultResult(t)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, res))

	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, tierHeader, records[0])
	require.GreaterOrEqual(t, len(records), 1+len(res.Tiers)+1)

	first := records[1]
	assert.Equal(t, "1", first[0])
	assert.Equal(t, "Return of Capital", first[1])
	assert.Equal(t, "99000000.00", first[3])
	assert.Equal(t, "1000000.00", first[4])

	total := records[1+len(res.Tiers)]
	assert.Equal(t, "Total", total[1])
	assert.Equal(t, "200000000.00", total[5])

	last := records[len(records)-1]
	assert.Equal(t, "effective_carry_rate", last[0])
}

func TestWriteSensitivityCSV(t *testing.T) {
	t.Parallel()
	table := smallTable(t)
	var buf bytes.Buffer
	require.NoError(t, WriteSensitivityCSV(&buf, table))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1+4)
	assert.Equal(t, "carry_rate", records[0][2])
	// Grid order: multiple 1 first, axis values in order within it.
	assert.Equal(t, []string{"1", "100000000.00", "0.1"}, records[1][:3])
	assert.Equal(t, []string{"2", "200000000.00", "0.2"}, records[4][:3])
}

func TestWriteXLSX(t *testing.T) {
	t.Parallel()
	res := defaultResult(t)
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, res, smallTable(t)))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 3)

	wf := f.Sheet[SheetWaterfall]
	require.NotNil(t, wf)
	require.Len(t, wf.Rows, 1+len(res.Tiers)+1)
	assert.Equal(t, "Tier", wf.Rows[0].Cells[0].Value)
	assert.Equal(t, "Return of Capital", wf.Rows[1].Cells[1].Value)
	lp, err := wf.Rows[1].Cells[3].Float()
	require.NoError(t, err)
	assert.InDelta(t, 99_000_000, lp, 0.01)

	summary := f.Sheet[SheetSummary]
	require.NotNil(t, summary)
	assert.Equal(t, "Fund size", summary.Rows[0].Cells[0].Value)

	sens := f.Sheet[SheetSensitivity]
	require.NotNil(t, sens)
	assert.Len(t, sens.Rows, 1+4)
}

func TestBuildWorkbook_ResultOnly(t *testing.T) {
	t.Parallel()
	f, err := BuildWorkbook(defaultResult(t), nil)
	require.NoError(t, err)
	assert.Len(t, f.Sheets, 2)
	assert.Nil(t, f.Sheet[SheetSensitivity])
}

func TestBuildWorkbook_Empty(t *testing.T) {
	t.Parallel()
	_, err := BuildWorkbook(nil, nil)
	assert.Error(t, err)
}

func TestWritePDF(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	report := NewReport(defaultResult(t), NewFormatter("$"), "", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, report.Write(&buf))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 1000)
	assert.Equal(t, "Distribution Waterfall", report.title)
}

func TestWritePDF_NoCatchUp(t *testing.T) {
	t.Parallel()
	p := waterfall.DefaultParameters()
	p.HasCatchUp = false
	res, err := waterfall.Calculate(p)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, res, NewFormatter("$"), "Fund II"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
