package pipeline

import (
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"factor-backtest/internal/backtest"
	"factor-backtest/internal/data"
	"factor-backtest/internal/model"
)

// GroupSummary is the final state of one group in a saved run.
type GroupSummary struct {
	Group   string
	Date    time.Time // last date with a portfolio net value
	NV      float64
	HedgeNV float64
	Count   int // dates with a portfolio net value
}

// Summarize reads the saved result tables under path and reports the last
// net values of each group. Groups never recorded have missing values and
// a zero date.
func Summarize(path string) ([]GroupSummary, error) {
	nv, err := data.ReadFrameCSV(backtest.PortfolioTable.CSVPath(path))
	if err != nil {
		return nil, err
	}
	hedge, err := data.ReadFrameCSV(backtest.HedgeTable.CSVPath(path))
	if err != nil {
		return nil, err
	}

	var out []GroupSummary
	for _, col := range nv.Columns() {
		s := GroupSummary{Group: col, NV: model.Missing(), HedgeNV: model.Missing()}
		if p, ok := nv.Last(col); ok {
			s.Date, s.NV = p.Date, p.Value
		}
		if p, ok := hedge.Last(col); ok {
			s.HedgeNV = p.Value
		}
		series, err := nv.Column(col)
		if err != nil {
			return nil, err
		}
		for _, p := range series {
			if !model.IsMissing(p.Value) {
				s.Count++
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// WriteReport renders summaries as a console table.
func WriteReport(w io.Writer, rows []GroupSummary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Group", "Dates", "Last Date", "NV", "Hedge NV"})
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, r := range rows {
		date := model.FormatDate(r.Date)
		if date == "" {
			date = "-"
		}
		table.Append([]string{r.Group, strconv.Itoa(r.Count), date, num(r.NV), num(r.HedgeNV)})
	}
	table.Render()
}

func num(x float64) string {
	if model.IsMissing(x) {
		return "-"
	}
	return strconv.FormatFloat(x, 'f', 4, 64)
}
