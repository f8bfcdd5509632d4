// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/rs/zerolog"
)

// Log records sends in the log instead of delivering them. It is meant for
// local and simulated runs.
type Log struct {
	log zerolog.Logger
}

// NewLog creates a log-only notifier.
func NewLog(log zerolog.Logger) *Log {
	return &Log{log: log}
}

// Send logs the addressing fields and a digest of the body.
func (l *Log) Send(_ context.Context, e Email) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(e.HTML))
	id := "log-" + hex.EncodeToString(sum[:6])
	l.log.Info().
		Str("from", e.From).
		Str("to", e.To).
		Str("subject", e.Subject).
		Int("bytes", len(e.HTML)).
		Str("message_id", id).
		Msg("email not sent (log backend)")
	return id, nil
}
