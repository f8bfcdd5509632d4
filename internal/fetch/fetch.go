// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch retrieves an account's raw filings from SEC EDGAR and
// writes them to the object store.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pdiddy/roi-brief/internal/objectstore"
	"github.com/pdiddy/roi-brief/pkg/types"
)

// emptyFacts is stored for filers that have no XBRL company facts, so the
// extractor sees a well-formed document and yields null KPIs.
var emptyFacts = []byte(`{"facts":{}}`)

// Fetcher stores the submissions and company-facts documents of an account.
type Fetcher struct {
	client *Client
	store  objectstore.Store
	log    zerolog.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(client *Client, store objectstore.Store, log zerolog.Logger) *Fetcher {
	return &Fetcher{client: client, store: store, log: log}
}

// Fetch downloads both documents for the account and writes them under the
// date's raw keys, overwriting any previous run of the same date.
//
// An invalid CIK or a 404 on submissions wraps types.ErrNotFound. Exhausted
// transient failures and other HTTP statuses wrap types.ErrFetch. Context
// expiry is kept in the chain so callers can classify it as a timeout.
func (f *Fetcher) Fetch(ctx context.Context, acct types.Account, date string) (types.RawFilingRef, error) {
	acct, err := acct.Normalized()
	if err != nil {
		return types.RawFilingRef{}, err
	}
	log := f.log.With().Str("cik", acct.CIK).Str("name", acct.Name).Logger()

	ref := types.RawFilingRef{
		CIK:            acct.CIK,
		Name:           acct.Name,
		Date:           date,
		SubmissionsKey: objectstore.RawSubmissionsKey(date, acct.CIK),
		FactsKey:       objectstore.RawFactsKey(date, acct.CIK),
	}

	subs, err := f.client.Submissions(ctx, acct.CIK)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return ref, fmt.Errorf("CIK %s: %w", acct.CIK, types.ErrNotFound)
		}
		return ref, classify("submissions", acct.CIK, err)
	}
	if err := f.store.Put(ctx, ref.SubmissionsKey, subs, objectstore.ContentJSON); err != nil {
		return ref, fmt.Errorf("storing submissions: %w", err)
	}
	log.Debug().Str("key", ref.SubmissionsKey).Int("bytes", len(subs)).Msg("stored submissions")

	facts, err := f.client.CompanyFacts(ctx, acct.CIK)
	switch {
	case isStatus(err, http.StatusNotFound):
		log.Info().Msg("no XBRL company facts, storing empty document")
		facts = emptyFacts
	case err != nil:
		return ref, classify("company facts", acct.CIK, err)
	}
	if err := f.store.Put(ctx, ref.FactsKey, facts, objectstore.ContentJSON); err != nil {
		return ref, fmt.Errorf("storing company facts: %w", err)
	}
	log.Debug().Str("key", ref.FactsKey).Int("bytes", len(facts)).Msg("stored company facts")

	return ref, nil
}

func isStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

func classify(doc, cik string, err error) error {
	return fmt.Errorf("%w: %s for CIK %s: %w", types.ErrFetch, doc, cik, err)
}
