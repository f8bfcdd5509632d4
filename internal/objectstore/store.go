// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package objectstore persists pipeline artifacts under opaque string keys.
// Writing an existing key overwrites it, which keeps re-runs of the same
// logical date idempotent. Keys are partitioned per account and date, so
// concurrent accounts never write the same key.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/roi-brief/pkg/types"
)

// ErrObjectNotFound is returned by Get for a key that was never written.
var ErrObjectNotFound = errors.New("object not found")

// Content types used for artifacts.
const (
	ContentJSON = "application/json"
	ContentHTML = "text/html; charset=utf-8"
)

// Store is a key/value blob store with overwrite-on-put semantics.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// RawSubmissionsKey is where the registry submissions document is stored.
func RawSubmissionsKey(date, cik string) string {
	return fmt.Sprintf("raw/%s/%s/submissions.json", date, cik)
}

// RawFactsKey is where the registry company-facts document is stored.
func RawFactsKey(date, cik string) string {
	return fmt.Sprintf("raw/%s/%s/companyfacts.json", date, cik)
}

// FeaturesKey is where the FeatureRecord JSON is stored.
func FeaturesKey(date, cik string) string {
	return fmt.Sprintf("features/%s/%s.json", date, cik)
}

// InsightKey is where the Insight JSON is stored.
func InsightKey(date, cik string) string {
	return fmt.Sprintf("insights/%s/%s.json", date, cik)
}

// BriefKey is where the rendered HTML brief is stored.
func BriefKey(date, cik string) string {
	return fmt.Sprintf("briefs/%s/%s.html", date, cik)
}

// validateKey rejects keys that could escape a backend's root.
func validateKey(key string) error {
	if key == "" {
		return errors.New("empty object key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("object key %q must be a relative slash-separated path", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("object key %q has an empty or dot segment", key)
		}
	}
	return nil
}

// Open returns the backend selected by cfg.
func Open(ctx context.Context, cfg types.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case types.StorageFS, "":
		return NewFS(cfg.Dir)
	case types.StorageS3:
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want fs or s3)", cfg.Backend)
	}
}
