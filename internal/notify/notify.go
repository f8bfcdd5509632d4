// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notify delivers rendered briefs by email.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pdiddy/roi-brief/pkg/types"
)

// Email is one HTML message to a single recipient.
type Email struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Validate checks that the addressing fields are present.
func (e Email) Validate() error {
	var errs []error
	if e.From == "" {
		errs = append(errs, errors.New("sender required"))
	}
	if e.To == "" {
		errs = append(errs, errors.New("recipient required"))
	}
	if e.Subject == "" {
		errs = append(errs, errors.New("subject required"))
	}
	return errors.Join(errs...)
}

// Notifier sends an email. Implementations return the provider's message
// id when it has one.
type Notifier interface {
	Send(ctx context.Context, e Email) (string, error)
}

// Open returns the backend selected by cfg.
func Open(ctx context.Context, cfg types.EmailConfig, log zerolog.Logger) (Notifier, error) {
	switch cfg.Backend {
	case types.EmailSES, "":
		return NewSES(ctx, cfg.Region)
	case types.EmailSMTP:
		return NewSMTP(cfg)
	case types.EmailLog:
		return NewLog(log), nil
	default:
		return nil, fmt.Errorf("unknown email backend %q (want ses, smtp or log)", cfg.Backend)
	}
}
