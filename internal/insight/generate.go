// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package insight turns a feature record into a validated insight, renders
// the HTML brief, persists both, and emails the brief.
package insight

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pdiddy/roi-brief/internal/notify"
	"github.com/pdiddy/roi-brief/internal/objectstore"
	"github.com/pdiddy/roi-brief/pkg/types"
)

// DefaultSubject prefixes the account name in the email subject.
const DefaultSubject = "Account ROI Brief"

// Artifacts lists what Generate wrote and sent.
type Artifacts struct {
	InsightKey string
	BriefKey   string
	Insight    types.Insight

	// MessageID is the notifier's id for the sent email; empty when the
	// send failed.
	MessageID string
}

// Generator runs the insight stage for one account at a time. It is safe
// for concurrent use when its collaborators are.
type Generator struct {
	store    objectstore.Store
	models   ModelSource
	notifier notify.Notifier
	log      zerolog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(store objectstore.Store, models ModelSource, notifier notify.Notifier, log zerolog.Logger) *Generator {
	return &Generator{store: store, models: models, notifier: notifier, log: log}
}

// Generate produces and persists the insight and brief, then emails the
// brief. Model failures wrap types.ErrInsightGeneration. A failed send
// wraps types.ErrNotification and still returns the stored artifacts.
func (g *Generator) Generate(ctx context.Context, rec types.FeatureRecord, opts types.RunOptions) (Artifacts, error) {
	log := g.log.With().Str("cik", rec.CIK).Bool("simulate", opts.Simulate).Logger()

	model, err := g.selectModel(ctx, opts)
	if err != nil {
		return Artifacts{}, fmt.Errorf("%w: %w", types.ErrInsightGeneration, err)
	}

	prompt, err := BuildPrompt(rec)
	if err != nil {
		return Artifacts{}, err
	}
	ins, err := complete(ctx, model, prompt, log)
	if err != nil {
		return Artifacts{}, err
	}

	var art Artifacts
	art.Insight = ins

	insightJSON, err := Marshal(ins)
	if err != nil {
		return art, err
	}
	key := objectstore.InsightKey(opts.Date, rec.CIK)
	if err := g.store.Put(ctx, key, insightJSON, objectstore.ContentJSON); err != nil {
		return art, fmt.Errorf("storing insight: %w", err)
	}
	art.InsightKey = key

	html, err := RenderBrief(rec, ins, opts.Date)
	if err != nil {
		return art, err
	}
	key = objectstore.BriefKey(opts.Date, rec.CIK)
	if err := g.store.Put(ctx, key, html, objectstore.ContentHTML); err != nil {
		return art, fmt.Errorf("storing brief: %w", err)
	}
	art.BriefKey = key
	log.Debug().Str("insight", art.InsightKey).Str("brief", art.BriefKey).Msg("stored artifacts")

	id, err := g.notifier.Send(ctx, notify.Email{
		From:    opts.Sender,
		To:      opts.Recipient,
		Subject: Subject(opts.Subject, rec.Name),
		HTML:    string(html),
	})
	if err != nil {
		return art, fmt.Errorf("%w: %w", types.ErrNotification, err)
	}
	art.MessageID = id
	log.Info().Str("message_id", id).Str("to", opts.Recipient).Msg("brief sent")
	return art, nil
}

// selectModel is the single place the simulate flag is consulted.
func (g *Generator) selectModel(ctx context.Context, opts types.RunOptions) (Model, error) {
	if opts.Simulate {
		return Simulated{}, nil
	}
	return g.models.Model(ctx, ModelSpec{
		Region:      opts.ModelRegion,
		ModelID:     opts.ModelID,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
}

// complete asks the model once, and once more with the strict prompt when
// the first reply is unusable. Transport errors are not retried here.
func complete(ctx context.Context, model Model, prompt Prompt, log zerolog.Logger) (types.Insight, error) {
	reply, err := model.Complete(ctx, prompt)
	if err != nil {
		return types.Insight{}, fmt.Errorf("%w: %w", types.ErrInsightGeneration, err)
	}
	ins, parseErr := parseInsight(reply)
	if parseErr == nil {
		return ins, nil
	}
	log.Warn().Err(parseErr).Msg("unusable model reply, retrying with strict prompt")

	reply, err = model.Complete(ctx, prompt.Strict())
	if err != nil {
		return types.Insight{}, fmt.Errorf("%w: %w", types.ErrInsightGeneration, err)
	}
	ins, err = parseInsight(reply)
	if err != nil {
		return types.Insight{}, fmt.Errorf("%w: reply still unusable after strict retry: %w", types.ErrInsightGeneration, err)
	}
	return ins, nil
}

// Subject builds the email subject: "<prefix>: <name>".
func Subject(prefix, name string) string {
	if prefix == "" {
		prefix = DefaultSubject
	}
	return prefix + ": " + name
}
