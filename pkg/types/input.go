// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"time"

	"go.yaml.in/yaml/v3"
)

// MaxAccountsPerRun bounds the account list of a single run.
const MaxAccountsPerRun = 100

// DateLayout formats a run's logical date.
const DateLayout = "2006-01-02"

// RunInput is the trigger payload for one run. It is accepted as JSON or
// YAML.
type RunInput struct {
	Accounts []Account    `json:"accounts" yaml:"accounts"`
	Bedrock  BedrockInput `json:"bedrock" yaml:"bedrock"`
	SES      SESInput     `json:"ses" yaml:"ses"`

	// Date is the logical run date; empty means today (UTC).
	Date string `json:"date,omitempty" yaml:"date,omitempty"`
}

// BedrockInput holds the model section of the trigger payload.
type BedrockInput struct {
	Region      string   `json:"region" yaml:"region"`
	Simulate    bool     `json:"simulate" yaml:"simulate"`
	ModelID     string   `json:"model_id,omitempty" yaml:"model_id,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
}

// SESInput holds the email section of the trigger payload.
type SESInput struct {
	Sender    string `json:"sender" yaml:"sender"`
	Recipient string `json:"recipient" yaml:"recipient"`
	Subject   string `json:"subject,omitempty" yaml:"subject,omitempty"`
}

// RunOptions are the per-run options handed to the generator.
type RunOptions struct {
	Date        string
	Simulate    bool
	ModelRegion string
	ModelID     string
	MaxTokens   int
	Temperature *float64
	Sender      string
	Recipient   string
	Subject     string
}

// ParseRunInput decodes a trigger payload. YAML is a superset of JSON, so
// both formats go through the YAML decoder.
func ParseRunInput(data []byte) (*RunInput, error) {
	var in RunInput
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parsing run input: %w", err)
	}
	return &in, nil
}

// Validate checks the payload before any account is processed. Per-account
// CIK problems are not checked here; they fail only their own account.
func (in *RunInput) Validate() error {
	var errs []error
	if len(in.Accounts) == 0 {
		errs = append(errs, errors.New("accounts: at least one account required"))
	}
	if len(in.Accounts) > MaxAccountsPerRun {
		errs = append(errs, fmt.Errorf("accounts: %d exceeds the limit of %d per run", len(in.Accounts), MaxAccountsPerRun))
	}
	if in.SES.Sender == "" {
		errs = append(errs, errors.New("ses.sender: required"))
	}
	if in.SES.Recipient == "" {
		errs = append(errs, errors.New("ses.recipient: required"))
	}
	if in.Date != "" {
		if _, err := time.Parse(DateLayout, in.Date); err != nil {
			errs = append(errs, fmt.Errorf("date: %q is not YYYY-MM-DD", in.Date))
		}
	}
	return errors.Join(errs...)
}

// Options converts the payload into run options. now supplies the default
// logical date.
func (in *RunInput) Options(now time.Time) RunOptions {
	date := in.Date
	if date == "" {
		date = now.UTC().Format(DateLayout)
	}
	return RunOptions{
		Date:        date,
		Simulate:    in.Bedrock.Simulate,
		ModelRegion: in.Bedrock.Region,
		ModelID:     in.Bedrock.ModelID,
		MaxTokens:   in.Bedrock.MaxTokens,
		Temperature: in.Bedrock.Temperature,
		Sender:      in.SES.Sender,
		Recipient:   in.SES.Recipient,
		Subject:     in.SES.Subject,
	}
}
