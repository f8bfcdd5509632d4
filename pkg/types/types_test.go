// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCIK(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"already padded", "0000829224", "0000829224", false},
		{"unpadded", "829224", "0000829224", false},
		{"prefixed", "CIK0000320193", "0000320193", false},
		{"lowercase prefix and spaces", "  cik 320193 ", "0000320193", false},
		{"empty", "", "", true},
		{"letters", "12ab", "", true},
		{"too long", "12345678901", "", true},
		{"all zeros", "0000000000", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeCIK(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"not found", fmt.Errorf("submissions: %w", ErrNotFound), KindNotFound},
		{"fetch", fmt.Errorf("facts: %w", ErrFetch), KindFetch},
		{"malformed", fmt.Errorf("facts: %w", ErrMalformedData), KindMalformedData},
		{"insight", fmt.Errorf("model: %w", ErrInsightGeneration), KindInsightGeneration},
		{"notification", fmt.Errorf("ses: %w", ErrNotification), KindNotification},
		{"request deadline keeps stage class", fmt.Errorf("%w: %w", ErrFetch, context.DeadlineExceeded), KindFetch},
		{"run timeout beats stage class", fmt.Errorf("%w: %w", ErrTimeout, fmt.Errorf("%w: %w", ErrFetch, context.DeadlineExceeded)), KindTimeout},
		{"bare deadline", context.DeadlineExceeded, KindInternal},
		{"timeout sentinel", ErrTimeout, KindTimeout},
		{"unknown", errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestInsightValidate(t *testing.T) {
	valid := Insight{
		PainPoints:      []string{"Long rep ramp time"},
		ValueHypothesis: "Shorter ramp.",
		NextBestAction:  "Pilot.",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(i *Insight)
	}{
		{"no pain points", func(i *Insight) { i.PainPoints = nil }},
		{"empty pain points", func(i *Insight) { i.PainPoints = []string{} }},
		{"blank pain point", func(i *Insight) { i.PainPoints = []string{"ok", "  "} }},
		{"missing value hypothesis", func(i *Insight) { i.ValueHypothesis = "" }},
		{"blank next best action", func(i *Insight) { i.NextBestAction = " \n" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			in.PainPoints = append([]string(nil), valid.PainPoints...)
			tt.mutate(&in)
			assert.Error(t, in.Validate())
		})
	}
}

func TestRunSummaryAdd(t *testing.T) {
	var s RunSummary
	s.Add(RunResult{Account: Account{Name: "A", CIK: "0000000001"}, Status: StatusSucceeded})
	s.Add(RunResult{Account: Account{Name: "B", CIK: "0000000002"}, Status: StatusFailed, ErrorKind: KindNotFound})

	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.Succeeded)
	assert.Equal(t, 1, s.Failed)
	assert.True(t, s.HasFailures())
	require.Len(t, s.Failures, 1)
	assert.Equal(t, "B", s.Failures[0].Account.Name)
	assert.Equal(t, KindNotFound, s.Failures[0].Kind)
}

func TestParseRunInput(t *testing.T) {
	payload := `{
  "accounts": [{"name": "Starbucks", "cik": "0000829224"}],
  "bedrock": {"region": "us-west-2", "simulate": true},
  "ses": {"sender": "briefs@example.com", "recipient": "sales@example.com"}
}`
	in, err := ParseRunInput([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, in.Validate())

	require.Len(t, in.Accounts, 1)
	assert.Equal(t, "0000829224", in.Accounts[0].CIK)

	now := time.Date(2026, 3, 4, 23, 0, 0, 0, time.UTC)
	opts := in.Options(now)
	assert.Equal(t, "2026-03-04", opts.Date)
	assert.True(t, opts.Simulate)
	assert.Equal(t, "us-west-2", opts.ModelRegion)
	assert.Equal(t, "sales@example.com", opts.Recipient)
}

func TestRunInputValidate(t *testing.T) {
	in := &RunInput{Date: "03/04/2026"}
	err := in.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one account")
	assert.Contains(t, err.Error(), "ses.sender")
	assert.Contains(t, err.Error(), "ses.recipient")
	assert.Contains(t, err.Error(), "YYYY-MM-DD")

	in = &RunInput{
		Accounts: make([]Account, MaxAccountsPerRun+1),
		SES:      SESInput{Sender: "a@example.com", Recipient: "b@example.com"},
	}
	assert.ErrorContains(t, in.Validate(), "exceeds the limit")
}
