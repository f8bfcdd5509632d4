// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var insightValidator = validator.New()

// Insight is the structured language-model output for one account.
type Insight struct {
	PainPoints      []string `json:"pain_points" yaml:"pain_points" validate:"required,min=1,dive,required"`
	ValueHypothesis string   `json:"value_hypothesis" yaml:"value_hypothesis" validate:"required"`
	NextBestAction  string   `json:"next_best_action" yaml:"next_best_action" validate:"required"`
}

// Validate checks the insight shape: every field present and at least one
// non-blank pain point.
func (i *Insight) Validate() error {
	trimmed := Insight{
		ValueHypothesis: strings.TrimSpace(i.ValueHypothesis),
		NextBestAction:  strings.TrimSpace(i.NextBestAction),
	}
	for _, p := range i.PainPoints {
		trimmed.PainPoints = append(trimmed.PainPoints, strings.TrimSpace(p))
	}
	if err := insightValidator.Struct(&trimmed); err != nil {
		return fmt.Errorf("invalid insight: %w", err)
	}
	return nil
}
