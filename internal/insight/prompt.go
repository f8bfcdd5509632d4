// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package insight

import (
	"bytes"
	"fmt"
	"strconv"
	"text/template"

	"github.com/pdiddy/roi-brief/pkg/types"
)

// SystemPrompt frames the model as a solutions consultant and pins the
// reply format.
const SystemPrompt = "You are a Solutions Consultant at a B2B sales enablement SaaS company. " +
	"Your task is to produce an ROI brief for an account team from public financial data. " +
	"Your response MUST be a single, valid JSON object and nothing else. " +
	"Do not include any text, preamble, or explanation before or after the JSON object."

// strictSuffix is appended to the system prompt on the retry after an
// unusable reply.
const strictSuffix = "\n\nYour previous reply could not be used. Reply with ONLY the JSON object: " +
	"no markdown code fences, no commentary, no trailing text. " +
	`It must have exactly the keys "pain_points" (a non-empty array of non-empty strings), ` +
	`"value_hypothesis" (a non-empty string) and "next_best_action" (a non-empty string).`

// Prompt is one model request.
type Prompt struct {
	System string
	User   string
}

// Strict returns the prompt with the stricter JSON-only instruction.
func (p Prompt) Strict() Prompt {
	p.System += strictSuffix
	return p
}

var userPromptTmpl = template.Must(template.New("user").Funcs(template.FuncMap{
	"num": promptNumber,
	"str": promptString,
}).Parse(`Here is the financial data for the target account:

Company: {{.Name}}
CIK: {{.CIK}}
Industry: {{str .Industry}}
Fiscal period: {{if .Period}}{{.Period}}{{else}}not reported{{end}}
Period end: {{str .PeriodEnd}}
Fiscal year end (MMDD): {{str .FiscalYearEnd}}
Latest annual revenue (USD): {{num .LatestAnnualRevenue}}
Prior annual revenue (USD): {{num .PriorAnnualRevenue}}
Year-over-year revenue growth (%): {{num .YoYRevenueGrowthPct}}
Sales and marketing expense (USD): {{num .SalesMarketingExpense}}
Sales and marketing as % of revenue: {{num .SalesMarketingPctOfRevenue}}
Source: {{.DataSource}}

Values marked "not reported" are unavailable; do not estimate them.

Based on this data, respond with a JSON object with these keys:
- "pain_points": a list of 2 to 4 short strings naming likely go-to-market pain points
- "value_hypothesis": one or two sentences on how better sales enablement creates value for this account
- "next_best_action": one concrete next step for the account team
`))

// BuildPrompt renders the prompt for a feature record. Identical records
// give identical prompts.
func BuildPrompt(rec types.FeatureRecord) (Prompt, error) {
	var buf bytes.Buffer
	if err := userPromptTmpl.Execute(&buf, rec); err != nil {
		return Prompt{}, fmt.Errorf("rendering prompt: %w", err)
	}
	return Prompt{System: SystemPrompt, User: buf.String()}, nil
}

func promptNumber(v *float64) string {
	if v == nil {
		return "not reported"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func promptString(s *string) string {
	if s == nil {
		return "not reported"
	}
	return *s
}
