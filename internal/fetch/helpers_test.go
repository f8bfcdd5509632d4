// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"testing"

	"github.com/rs/zerolog"
)

func zerologForTest(t *testing.T) zerolog.Logger {
	return zerolog.New(zerolog.NewTestWriter(t))
}
