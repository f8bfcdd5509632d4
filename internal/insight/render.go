// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package insight

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/pdiddy/roi-brief/pkg/types"
)

var briefTmpl = template.Must(template.New("brief").Funcs(template.FuncMap{
	"usd":    formatUSD,
	"pct":    formatPct,
	"orNA":   orNA,
	"scaled": formatScaled,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Account ROI Brief: {{.Record.Name}}</title>
</head>
<body style="font-family: Arial, Helvetica, sans-serif; color: #1f2933; max-width: 680px;">
<h1>Account ROI Brief: {{.Record.Name}}</h1>
<p>Prepared {{.Date}} from SEC EDGAR filings{{if .Record.Period}} for {{.Record.Period}}{{end}}.</p>

<h2>Financial snapshot</h2>
<table cellpadding="6" style="border-collapse: collapse;">
<tr><td>Company</td><td>{{.Record.Name}} (CIK {{.Record.CIK}})</td></tr>
<tr><td>Industry</td><td>{{orNA .Record.Industry}}</td></tr>
<tr><td>Fiscal period</td><td>{{if .Record.Period}}{{.Record.Period}}{{if .Record.PeriodEnd}} (ended {{orNA .Record.PeriodEnd}}){{end}}{{else}}n/a{{end}}</td></tr>
<tr><td>Latest annual revenue</td><td>{{usd .Record.LatestAnnualRevenue}}{{with scaled .Record.LatestAnnualRevenue}} ({{.}}){{end}}</td></tr>
<tr><td>Prior annual revenue</td><td>{{usd .Record.PriorAnnualRevenue}}</td></tr>
<tr><td>Year-over-year growth</td><td>{{pct .Record.YoYRevenueGrowthPct}}</td></tr>
<tr><td>Sales and marketing spend</td><td>{{usd .Record.SalesMarketingExpense}}</td></tr>
<tr><td>Sales and marketing as % of revenue</td><td>{{pct .Record.SalesMarketingPctOfRevenue}}</td></tr>
</table>

<h2>Likely pain points</h2>
<ul>
{{- range .Insight.PainPoints}}
<li>{{.}}</li>
{{- end}}
</ul>

<h2>Value hypothesis</h2>
<p>{{.Insight.ValueHypothesis}}</p>

<h2>Next best action</h2>
<p>{{.Insight.NextBestAction}}</p>

<p style="font-size: 12px; color: #616e7c;">Source: <a href="{{.Record.DataSource}}">{{.Record.DataSource}}</a></p>
</body>
</html>
`))

// RenderBrief renders the HTML brief. Output depends only on the
// arguments, so identical inputs give byte-identical briefs.
func RenderBrief(rec types.FeatureRecord, ins types.Insight, date string) ([]byte, error) {
	var buf bytes.Buffer
	err := briefTmpl.Execute(&buf, struct {
		Record  types.FeatureRecord
		Insight types.Insight
		Date    string
	}{rec, ins, date})
	if err != nil {
		return nil, fmt.Errorf("rendering brief: %w", err)
	}
	return buf.Bytes(), nil
}

func formatUSD(v *float64) string {
	if v == nil {
		return "n/a"
	}
	sign := ""
	amount := math.Round(*v)
	if amount < 0 {
		sign, amount = "-", -amount
	}
	return sign + "$" + humanize.Comma(int64(amount))
}

// formatScaled gives a short form such as "36 billion"; empty below a
// million or when v is nil.
func formatScaled(v *float64) string {
	if v == nil || math.Abs(*v) < 1e6 {
		return ""
	}
	value, unit := humanize.ComputeSI(*v)
	names := map[string]string{"M": "million", "G": "billion", "T": "trillion"}
	name, ok := names[unit]
	if !ok {
		return ""
	}
	return strconv.FormatFloat(math.Round(value*10)/10, 'f', -1, 64) + " " + name
}

func formatPct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return humanize.FormatFloat("#,###.##", *v) + "%"
}

func orNA(s *string) string {
	if s == nil {
		return "n/a"
	}
	return *s
}
