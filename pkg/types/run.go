// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Status is the terminal outcome of one account.
type Status string

const (
	StatusSucceeded Status = "success"
	StatusFailed    Status = "failed"
)

// Stage is a step of the per-account state machine. A failed account keeps
// the stage it failed in; Status carries the outcome.
type Stage string

const (
	StagePending    Stage = "pending"
	StageFetching   Stage = "fetching"
	StageExtracting Stage = "extracting"
	StageGenerating Stage = "generating"
	StageSucceeded  Stage = "succeeded"
)

// ArtifactRefs lists the object-store keys written for an account. Keys
// stay empty for stages that never ran.
type ArtifactRefs struct {
	RawSubmissions string `json:"raw_submissions,omitempty" yaml:"raw_submissions,omitempty"`
	RawFacts       string `json:"raw_facts,omitempty" yaml:"raw_facts,omitempty"`
	Features       string `json:"features,omitempty" yaml:"features,omitempty"`
	Insight        string `json:"insight,omitempty" yaml:"insight,omitempty"`
	Brief          string `json:"brief,omitempty" yaml:"brief,omitempty"`
}

// RunResult is the outcome of one account in a run.
type RunResult struct {
	Account Account `json:"account" yaml:"account"`
	Status  Status  `json:"status" yaml:"status"`

	// Stage is the last stage entered; for failures, the failing stage.
	Stage Stage `json:"stage" yaml:"stage"`

	ErrorKind ErrorKind    `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error     string       `json:"error,omitempty" yaml:"error,omitempty"`
	Artifacts ArtifactRefs `json:"artifacts" yaml:"artifacts"`
}

// Failure pairs a failed account with its error kind.
type Failure struct {
	Account Account   `json:"account" yaml:"account"`
	Kind    ErrorKind `json:"error_kind" yaml:"error_kind"`
}

// RunSummary aggregates a run once every account is terminal.
type RunSummary struct {
	RunID     string      `json:"run_id" yaml:"run_id"`
	Date      string      `json:"date" yaml:"date"`
	Simulate  bool        `json:"simulate" yaml:"simulate"`
	Total     int         `json:"total" yaml:"total"`
	Succeeded int         `json:"succeeded" yaml:"succeeded"`
	Failed    int         `json:"failed" yaml:"failed"`
	Failures  []Failure   `json:"failures" yaml:"failures"`
	Results   []RunResult `json:"results" yaml:"results"`
}

// HasFailures reports whether any account failed.
func (s RunSummary) HasFailures() bool {
	return s.Failed > 0
}

// Add records one terminal result and updates the counts.
func (s *RunSummary) Add(r RunResult) {
	s.Results = append(s.Results, r)
	s.Total++
	if r.Status == StatusSucceeded {
		s.Succeeded++
		return
	}
	s.Failed++
	s.Failures = append(s.Failures, Failure{Account: r.Account, Kind: r.ErrorKind})
}
