// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the roi-brief pipeline:
// the account input, stage artifacts (raw filing references, feature records,
// insights), per-account run results, the error taxonomy, and the
// configuration structs decoded by the CLI.
package types

import (
	"fmt"
	"strings"
)

// cikWidth is the fixed width of a normalized Central Index Key.
const cikWidth = 10

// Account identifies one company to brief.
type Account struct {
	// Name is the display name used in the brief and email subject.
	Name string `json:"name" yaml:"name"`

	// CIK is the SEC Central Index Key, zero-padded to ten digits once
	// normalized.
	CIK string `json:"cik" yaml:"cik"`
}

// String returns "Name (CIK)" for logs and summaries.
func (a Account) String() string {
	if a.Name == "" {
		return a.CIK
	}
	return fmt.Sprintf("%s (%s)", a.Name, a.CIK)
}

// Normalized returns a copy of the account with its CIK normalized.
func (a Account) Normalized() (Account, error) {
	cik, err := NormalizeCIK(a.CIK)
	if err != nil {
		return a, err
	}
	a.CIK = cik
	a.Name = strings.TrimSpace(a.Name)
	return a, nil
}

// NormalizeCIK trims whitespace, strips an optional "CIK" prefix, and pads
// the numeric identifier to ten digits. An empty, non-numeric, or over-long
// identifier cannot name a public filer and wraps ErrNotFound.
func NormalizeCIK(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if len(s) >= 3 && strings.EqualFold(s[:3], "cik") {
		s = strings.TrimSpace(s[3:])
	}
	if s == "" {
		return "", fmt.Errorf("empty CIK: %w", ErrNotFound)
	}
	if len(s) > cikWidth {
		return "", fmt.Errorf("CIK %q longer than %d digits: %w", raw, cikWidth, ErrNotFound)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("CIK %q is not numeric: %w", raw, ErrNotFound)
		}
	}
	if strings.Trim(s, "0") == "" {
		return "", fmt.Errorf("CIK %q is all zeros: %w", raw, ErrNotFound)
	}
	return strings.Repeat("0", cikWidth-len(s)) + s, nil
}
