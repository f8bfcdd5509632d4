// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrate runs the fetch, extract and generate stages for a
// list of accounts with bounded parallelism and per-account fault isolation.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/roi-brief/internal/insight"
	"github.com/pdiddy/roi-brief/pkg/types"
)

// DefaultParallelism bounds concurrently processed accounts when the
// config leaves it unset.
const DefaultParallelism = 4

// Fetcher retrieves raw filings for an account.
type Fetcher interface {
	Fetch(ctx context.Context, acct types.Account, date string) (types.RawFilingRef, error)
}

// Extractor derives and persists the feature record.
type Extractor interface {
	Extract(ctx context.Context, ref types.RawFilingRef) (types.FeatureRecord, error)
	Save(ctx context.Context, rec types.FeatureRecord, date string) (string, error)
}

// Generator produces the insight and brief and sends the email.
type Generator interface {
	Generate(ctx context.Context, rec types.FeatureRecord, opts types.RunOptions) (insight.Artifacts, error)
}

// Runner processes runs. It is safe for concurrent use.
type Runner struct {
	fetcher   Fetcher
	extractor Extractor
	generator Generator
	cfg       types.RunConfig
	log       zerolog.Logger

	newID func() string
}

// New creates a Runner.
func New(f Fetcher, e Extractor, g Generator, cfg types.RunConfig, log zerolog.Logger) *Runner {
	return &Runner{
		fetcher:   f,
		extractor: e,
		generator: g,
		cfg:       cfg,
		log:       log,
		newID:     uuid.NewString,
	}
}

// Run processes every account and returns once each has reached a terminal
// state. Results keep the input order. Run never fails as a whole: every
// error is recorded against its account.
func (r *Runner) Run(ctx context.Context, accounts []types.Account, opts types.RunOptions) types.RunSummary {
	summary := types.RunSummary{
		RunID:    r.newID(),
		Date:     opts.Date,
		Simulate: opts.Simulate,
		Failures: []types.Failure{},
	}
	log := r.log.With().Str("run_id", summary.RunID).Str("date", opts.Date).Logger()

	runCtx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	parallelism := r.cfg.Parallelism
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}

	log.Info().
		Int("accounts", len(accounts)).
		Int("parallelism", parallelism).
		Dur("timeout", r.cfg.Timeout).
		Bool("simulate", opts.Simulate).
		Msg("run started")
	start := time.Now()

	results := make([]types.RunResult, len(accounts))
	var g errgroup.Group
	g.SetLimit(parallelism)
	for i, acct := range accounts {
		g.Go(func() error {
			results[i] = r.process(runCtx, acct, opts, log)
			return nil
		})
	}
	_ = g.Wait() // failures are recorded per account

	for _, res := range results {
		summary.Add(res)
	}

	log.Info().
		Int("total", summary.Total).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("run finished")
	return summary
}

// process drives one account through the stage machine.
func (r *Runner) process(ctx context.Context, acct types.Account, opts types.RunOptions, log zerolog.Logger) (res types.RunResult) {
	res = types.RunResult{Account: acct, Stage: types.StagePending}
	log = log.With().Str("cik", acct.CIK).Str("name", acct.Name).Logger()

	defer func() {
		if p := recover(); p != nil {
			res = r.fail(ctx, res, fmt.Errorf("panic in %s stage: %v", res.Stage, p), log)
		}
	}()

	enter := func(stage types.Stage) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res.Stage = stage
		log.Debug().Str("stage", string(stage)).Msg("stage entered")
		return nil
	}

	if err := enter(types.StageFetching); err != nil {
		return r.fail(ctx, res, err, log)
	}
	if normalized, err := acct.Normalized(); err == nil {
		res.Account = normalized
	}
	ref, err := r.fetcher.Fetch(ctx, acct, opts.Date)
	if err != nil {
		return r.fail(ctx, res, err, log)
	}
	res.Account.CIK = ref.CIK
	res.Artifacts.RawSubmissions = ref.SubmissionsKey
	res.Artifacts.RawFacts = ref.FactsKey

	if err := enter(types.StageExtracting); err != nil {
		return r.fail(ctx, res, err, log)
	}
	rec, err := r.extractor.Extract(ctx, ref)
	if err != nil {
		return r.fail(ctx, res, err, log)
	}
	key, err := r.extractor.Save(ctx, rec, opts.Date)
	if err != nil {
		return r.fail(ctx, res, err, log)
	}
	res.Artifacts.Features = key

	if err := enter(types.StageGenerating); err != nil {
		return r.fail(ctx, res, err, log)
	}
	art, err := r.generator.Generate(ctx, rec, opts)
	res.Artifacts.Insight = art.InsightKey
	res.Artifacts.Brief = art.BriefKey
	if err != nil {
		return r.fail(ctx, res, err, log)
	}

	res.Status = types.StatusSucceeded
	res.Stage = types.StageSucceeded
	log.Info().Str("stage", string(res.Stage)).Str("brief", res.Artifacts.Brief).Msg("account succeeded")
	return res
}

// fail marks res failed in its current stage. Context errors caused by the
// run deadline are reported as timeouts.
func (r *Runner) fail(ctx context.Context, res types.RunResult, err error, log zerolog.Logger) types.RunResult {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) &&
		(errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
		err = fmt.Errorf("%w: %w", types.ErrTimeout, err)
	}
	res.Status = types.StatusFailed
	res.ErrorKind = types.KindOf(err)
	res.Error = err.Error()

	event := log.Warn()
	if res.ErrorKind == types.KindInternal {
		event = log.Error()
	}
	event.Err(err).
		Str("stage", string(res.Stage)).
		Str("error_kind", string(res.ErrorKind)).
		Msg("account failed")
	return res
}
