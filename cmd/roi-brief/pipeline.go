// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/pdiddy/roi-brief/internal/extract"
	"github.com/pdiddy/roi-brief/internal/fetch"
	"github.com/pdiddy/roi-brief/internal/insight"
	"github.com/pdiddy/roi-brief/internal/notify"
	"github.com/pdiddy/roi-brief/internal/objectstore"
	"github.com/pdiddy/roi-brief/internal/orchestrate"
	"github.com/pdiddy/roi-brief/pkg/types"
)

// newFetcher builds the registry client and fetcher from cfg.
func newFetcher(cfg types.PipelineConfig, store objectstore.Store) *fetch.Fetcher {
	client := fetch.NewClient(
		fetch.WithBaseURL(cfg.Registry.BaseURL),
		fetch.WithUserAgent(cfg.Registry.UserAgent),
		fetch.WithRateLimit(cfg.Registry.RateLimit),
		fetch.WithTimeout(cfg.Registry.Timeout),
		fetch.WithMaxAttempts(cfg.Registry.MaxAttempts),
		fetch.WithLogger(logger),
	)
	return fetch.NewFetcher(client, store, logger)
}

// newRunner wires every stage for a full run. The notifier is opened here so
// a misconfigured email backend fails the command before any account is
// processed.
func newRunner(ctx context.Context, cfg types.PipelineConfig) (*orchestrate.Runner, error) {
	store, err := objectstore.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("opening object store: %w", err)
	}

	notifier, err := notify.Open(ctx, cfg.Email, logger)
	if err != nil {
		return nil, fmt.Errorf("opening notifier: %w", err)
	}

	models := insight.NewModelFactory(cfg.Model, logger)
	return orchestrate.New(
		newFetcher(cfg, store),
		extract.New(store, logger),
		insight.NewGenerator(store, models, notifier, logger),
		cfg.Run,
		logger,
	), nil
}
