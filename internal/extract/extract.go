// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract derives the KPI feature record of an account from its raw
// EDGAR submissions and company-facts documents.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/roi-brief/internal/objectstore"
	"github.com/pdiddy/roi-brief/pkg/types"
)

// RevenueTags lists the us-gaap revenue concepts in priority order. Filers
// moved from Revenues/SalesRevenueNet to the ASC 606 concepts around 2018,
// so several tags are consulted for the same period.
var RevenueTags = []string{
	"Revenues",
	"RevenueFromContractWithCustomerExcludingAssessedTax",
	"RevenueFromContractWithCustomerIncludingAssessedTax",
	"SalesRevenueNet",
	"SalesRevenueGoodsNet",
}

// SalesMarketingTags lists the sales and marketing expense concepts in
// priority order.
var SalesMarketingTags = []string{
	"SalesAndMarketingExpense",
	"SellingAndMarketingExpense",
	"MarketingAndAdvertisingExpense",
}

// The prior fiscal year must end this many days before the latest one.
const (
	minPriorGapDays = 300
	maxPriorGapDays = 430
)

const edgarBrowseURL = "https://www.sec.gov/edgar/browse/?CIK="

// Extractor reads raw filings from the object store and persists feature
// records back to it.
type Extractor struct {
	store objectstore.Store
	log   zerolog.Logger
}

// New creates an Extractor.
func New(store objectstore.Store, log zerolog.Logger) *Extractor {
	return &Extractor{store: store, log: log}
}

// Extract loads the referenced documents and computes the feature record.
// A document that is not a JSON object wraps types.ErrMalformedData.
func (e *Extractor) Extract(ctx context.Context, ref types.RawFilingRef) (types.FeatureRecord, error) {
	subs, err := e.store.Get(ctx, ref.SubmissionsKey)
	if err != nil {
		return types.FeatureRecord{}, fmt.Errorf("loading submissions: %w", err)
	}
	facts, err := e.store.Get(ctx, ref.FactsKey)
	if err != nil {
		return types.FeatureRecord{}, fmt.Errorf("loading company facts: %w", err)
	}

	rec, err := Features(ref.CIK, ref.Name, subs, facts)
	if err != nil {
		return types.FeatureRecord{}, err
	}

	e.log.Debug().
		Str("cik", rec.CIK).
		Str("period", rec.Period).
		Bool("revenue", rec.LatestAnnualRevenue != nil).
		Bool("growth", rec.YoYRevenueGrowthPct != nil).
		Bool("sales_marketing", rec.SalesMarketingPctOfRevenue != nil).
		Msg("extracted features")
	return rec, nil
}

// Save writes the record to its features key and returns the key.
func (e *Extractor) Save(ctx context.Context, rec types.FeatureRecord, date string) (string, error) {
	data, err := Marshal(rec)
	if err != nil {
		return "", err
	}
	key := objectstore.FeaturesKey(date, rec.CIK)
	if err := e.store.Put(ctx, key, data, objectstore.ContentJSON); err != nil {
		return "", fmt.Errorf("storing features: %w", err)
	}
	return key, nil
}

// Load reads a previously saved feature record.
func (e *Extractor) Load(ctx context.Context, date, cik string) (types.FeatureRecord, error) {
	data, err := e.store.Get(ctx, objectstore.FeaturesKey(date, cik))
	if err != nil {
		return types.FeatureRecord{}, err
	}
	var rec types.FeatureRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return types.FeatureRecord{}, fmt.Errorf("decoding features: %w", err)
	}
	return rec, nil
}

// Marshal encodes a feature record in its canonical form: struct field
// order, two-space indent, trailing newline.
func Marshal(rec types.FeatureRecord) ([]byte, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding features: %w", err)
	}
	return append(data, '\n'), nil
}

// submissionsDoc holds the submissions fields the record uses.
type submissionsDoc struct {
	Name           flexString `json:"name"`
	SIC            flexString `json:"sic"`
	SICDescription flexString `json:"sicDescription"`
	FiscalYearEnd  flexString `json:"fiscalYearEnd"`
}

// Features computes the record from raw document bytes. It is a pure
// function: identical inputs give identical records.
func Features(cik, name string, submissions, facts []byte) (types.FeatureRecord, error) {
	if _, err := decodeObject(submissions); err != nil {
		return types.FeatureRecord{}, fmt.Errorf("submissions for CIK %s: %w", cik, err)
	}
	factsTop, err := decodeObject(facts)
	if err != nil {
		return types.FeatureRecord{}, fmt.Errorf("company facts for CIK %s: %w", cik, err)
	}

	var subs submissionsDoc
	// Field-level irregularities only blank the affected fields.
	_ = json.Unmarshal(submissions, &subs)

	if name == "" {
		name = string(subs.Name)
	}
	rec := types.FeatureRecord{
		CIK:           cik,
		Name:          name,
		FiscalYearEnd: optString(string(subs.FiscalYearEnd)),
		Industry:      industry(subs),
		DataSource:    edgarBrowseURL + cik,
	}

	gaap := parseUSGAAP(factsTop)
	revenue := make([]map[string]annualFact, len(RevenueTags))
	for i, tag := range RevenueTags {
		revenue[i] = gaap.annual(tag)
	}

	latestEnd, ok := latestPeriodEnd(revenue)
	if !ok {
		return rec, nil
	}
	latestKey := latestEnd.Format(dateLayout)
	latest, tagIdx := pick(revenue, latestKey)

	rec.Period = fmt.Sprintf("FY%d", latestEnd.Year())
	rec.PeriodEnd = optString(latestKey)
	rec.RevenueTag = optString(RevenueTags[tagIdx])
	rec.LatestAnnualRevenue = optFloat(latest.val)

	if priorKey, ok := priorPeriodEnd(revenue, latestEnd); ok {
		prior, _ := pick(revenue, priorKey)
		rec.PriorAnnualRevenue = optFloat(prior.val)
		if prior.val != 0 {
			rec.YoYRevenueGrowthPct = percent(latest.val-prior.val, prior.val)
		}
	}

	sm := make([]map[string]annualFact, len(SalesMarketingTags))
	for i, tag := range SalesMarketingTags {
		sm[i] = gaap.annual(tag)
	}
	if spend, idx := pick(sm, latestKey); idx >= 0 {
		rec.SalesMarketingExpense = optFloat(spend.val)
		if latest.val != 0 {
			rec.SalesMarketingPctOfRevenue = percent(spend.val, latest.val)
		}
	}

	return rec, nil
}

// decodeObject parses a document that must be a JSON object.
func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedData, err)
	}
	if top == nil {
		return nil, fmt.Errorf("%w: document is null", types.ErrMalformedData)
	}
	return top, nil
}

// latestPeriodEnd returns the latest fiscal-year end reported by any tag.
func latestPeriodEnd(byTag []map[string]annualFact) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, facts := range byTag {
		for _, f := range facts {
			if !found || f.end.After(latest) {
				latest, found = f.end, true
			}
		}
	}
	return latest, found
}

// priorPeriodEnd returns the key of the latest fiscal-year end lying
// minPriorGapDays to maxPriorGapDays before latest.
func priorPeriodEnd(byTag []map[string]annualFact, latest time.Time) (string, bool) {
	var candidates []string
	for _, facts := range byTag {
		for key, f := range facts {
			gap := daysBetween(f.end, latest)
			if gap >= minPriorGapDays && gap <= maxPriorGapDays {
				candidates = append(candidates, key)
			}
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Strings(candidates)
	return candidates[len(candidates)-1], true
}

// pick walks the tags in priority order and returns the first value for the
// period key, with the tag index, or -1 when no tag has one.
func pick(byTag []map[string]annualFact, key string) (annualFact, int) {
	for i, facts := range byTag {
		if f, ok := facts[key]; ok {
			return f, i
		}
	}
	return annualFact{}, -1
}

func industry(subs submissionsDoc) *string {
	if subs.SICDescription != "" {
		return optString(string(subs.SICDescription))
	}
	return optString(string(subs.SIC))
}

// percent returns num/den*100 rounded to two decimals, or nil when the
// result is not finite.
func percent(num, den float64) *float64 {
	return optFloat(round2(num / den * 100))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func optFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
