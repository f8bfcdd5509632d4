// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// annualForms are the annual report forms whose facts count as fiscal-year
// values. Quarterly forms and amendments of other forms are ignored.
var annualForms = map[string]bool{
	"10-K":   true,
	"10-K/A": true,
	"20-F":   true,
	"40-F":   true,
}

// Bounds on an annual duration fact, in days. A 52/53-week fiscal year
// falls inside this window; quarters and multi-year totals do not.
const (
	minAnnualDays = 330
	maxAnnualDays = 400
)

// flexFloat64 accepts a JSON number or a numeric string. Anything else,
// including non-finite values, leaves ok false.
type flexFloat64 struct {
	v  float64
	ok bool
}

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		f.set(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if num, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			f.set(num)
		}
	}
	return nil
}

func (f *flexFloat64) set(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	f.v, f.ok = v, true
}

// flexString accepts a JSON string or number and keeps its text form.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = flexString(strings.TrimSpace(str))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*s = flexString(num.String())
	}
	return nil
}

// factEntry is one reported value of a us-gaap concept.
type factEntry struct {
	Start flexString  `json:"start"`
	End   flexString  `json:"end"`
	Val   flexFloat64 `json:"val"`
	FP    flexString  `json:"fp"`
	Form  flexString  `json:"form"`
	Filed flexString  `json:"filed"`
}

// annualFact is a selected fiscal-year value.
type annualFact struct {
	end   time.Time
	filed string
	val   float64
}

// usGAAP holds the raw concepts of the us-gaap taxonomy, decoded lazily so
// an irregular concept cannot spoil the others.
type usGAAP map[string]json.RawMessage

// parseUSGAAP digs facts["us-gaap"] out of a company-facts document. Any
// shape irregularity below the document level yields an empty taxonomy.
func parseUSGAAP(doc map[string]json.RawMessage) usGAAP {
	var facts map[string]json.RawMessage
	if err := json.Unmarshal(doc["facts"], &facts); err != nil {
		return nil
	}
	var gaap usGAAP
	if err := json.Unmarshal(facts["us-gaap"], &gaap); err != nil {
		return nil
	}
	return gaap
}

// annual returns the fiscal-year USD values reported for tag, keyed by
// period end date. When several filings report the same period end, the
// most recently filed value wins.
func (g usGAAP) annual(tag string) map[string]annualFact {
	raw, ok := g[tag]
	if !ok {
		return nil
	}
	var concept struct {
		Units map[string]json.RawMessage `json:"units"`
	}
	if err := json.Unmarshal(raw, &concept); err != nil {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(concept.Units["USD"], &entries); err != nil {
		return nil
	}

	out := make(map[string]annualFact)
	for _, rawEntry := range entries {
		var e factEntry
		if err := json.Unmarshal(rawEntry, &e); err != nil {
			continue
		}
		fact, ok := e.annual()
		if !ok {
			continue
		}
		key := fact.end.Format(dateLayout)
		if prev, seen := out[key]; seen && prev.filed >= fact.filed {
			continue
		}
		out[key] = fact
	}
	return out
}

// annual reports whether the entry is a fiscal-year value from an annual
// report and converts it.
func (e factEntry) annual() (annualFact, bool) {
	if !e.Val.ok || !annualForms[string(e.Form)] || string(e.FP) != "FY" {
		return annualFact{}, false
	}
	end, err := time.Parse(dateLayout, string(e.End))
	if err != nil {
		return annualFact{}, false
	}
	if e.Start != "" {
		start, err := time.Parse(dateLayout, string(e.Start))
		if err != nil {
			return annualFact{}, false
		}
		days := daysBetween(start, end)
		if days < minAnnualDays || days > maxAnnualDays {
			return annualFact{}, false
		}
	}
	return annualFact{end: end, filed: string(e.Filed), val: e.Val.v}, true
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
