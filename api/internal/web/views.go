package web

import (
	"sort"

	"ecomind/api/internal/advisor"
	"ecomind/api/internal/chart"
	"ecomind/api/internal/sdg"
)

type errorView struct {
	Kind    string
	Message string
	Detail  string
}

type alignRow struct {
	Label   string
	Comment string
}

// pageView is the data handed to index.tmpl and result.tmpl.
type pageView struct {
	Mode  string
	Title string
	Model string
	Goals []sdg.Goal
	Form  formInput

	Error  *errorView
	Result *advisor.Result

	Analysis     *advisor.Analysis
	Risks        []advisor.RiskRow
	Pitch        *advisor.Pitch
	Ideas        *advisor.Ideas
	MultiIdeas   *advisor.MultiIdeas
	Improvements *advisor.Improvements
	Alignment    []alignRow

	Bars  *chart.BarChart
	Radar *chart.RadarChart
}

func (v *pageView) fill(res advisor.Result) {
	v.Result = &res
	if a, ok := res.Analysis(); ok {
		v.Analysis = a
		v.Risks = a.Risks.Rows()
	}
	v.Pitch, _ = res.Pitch()
	v.Ideas, _ = res.Ideas()
	v.MultiIdeas, _ = res.MultiIdeas()
	v.Improvements, _ = res.Improvements()
	if al, ok := res.Alignment(); ok {
		v.Alignment = alignRows(al)
	}

	if entries := chartFor(res); len(entries) > 0 {
		bars := chart.Bars(entries, 640)
		radar := chart.Radar(entries, 460)
		v.Bars, v.Radar = &bars, &radar
	}
}

// alignRows orders the mapping by goal; keys that are not goal ids go last.
func alignRows(al advisor.Alignment) []alignRow {
	type keyed struct {
		goal sdg.Goal
		row  alignRow
	}
	rows := make([]keyed, 0, len(al))
	for k, comment := range al {
		g, err := sdg.Parse(k)
		if err != nil {
			rows = append(rows, keyed{goal: sdg.Last + 1, row: alignRow{Label: k, Comment: comment}})
			continue
		}
		rows = append(rows, keyed{goal: g, row: alignRow{Label: g.Label(), Comment: comment}})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].goal != rows[j].goal {
			return rows[i].goal < rows[j].goal
		}
		return rows[i].row.Label < rows[j].row.Label
	})
	out := make([]alignRow, len(rows))
	for i, r := range rows {
		out[i] = r.row
	}
	return out
}
