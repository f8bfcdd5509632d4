// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/roi-brief/internal/httputil"
	"github.com/pdiddy/roi-brief/internal/objectstore"
	"github.com/pdiddy/roi-brief/pkg/types"
)

const (
	testDate        = "2026-03-04"
	testSubmissions = `{"cik":"829224","name":"STARBUCKS CORP","sicDescription":"Retail-Eating Places","fiscalYearEnd":"0929"}`
	testFacts       = `{"cik":829224,"entityName":"STARBUCKS CORP","facts":{"us-gaap":{}}}`
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

// registry serves fixed documents per path and counts requests.
type registry struct {
	calls    atomic.Int32
	agents   []string
	handlers map[string]func(w http.ResponseWriter)
}

func (r *registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.calls.Add(1)
	r.agents = append(r.agents, req.Header.Get("User-Agent"))
	h, ok := r.handlers[req.URL.Path]
	if !ok {
		http.NotFound(w, req)
		return
	}
	h(w)
}

func body(s string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(s))
	}
}

func status(code int) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(code)
	}
}

func newTestFetcher(t *testing.T, reg *registry, opts ...Option) (*Fetcher, objectstore.Store) {
	t.Helper()
	srv := httptest.NewServer(reg)
	t.Cleanup(srv.Close)

	store, err := objectstore.NewFS(t.TempDir())
	require.NoError(t, err)

	client := NewClient(append([]Option{
		WithBaseURL(srv.URL),
		WithUserAgent("test-agent admin@example.com"),
		WithRateLimit(1000),
	}, opts...)...)
	return NewFetcher(client, store, zerologForTest(t)), store
}

func TestFetchStoresBothDocuments(t *testing.T) {
	reg := &registry{handlers: map[string]func(http.ResponseWriter){
		"/submissions/CIK0000829224.json":           body(testSubmissions),
		"/api/xbrl/companyfacts/CIK0000829224.json": body(testFacts),
	}}
	f, store := newTestFetcher(t, reg)
	ctx := context.Background()

	ref, err := f.Fetch(ctx, types.Account{Name: "Starbucks", CIK: "829224"}, testDate)
	require.NoError(t, err)

	assert.Equal(t, "0000829224", ref.CIK)
	assert.Equal(t, "raw/2026-03-04/0000829224/submissions.json", ref.SubmissionsKey)
	assert.Equal(t, "raw/2026-03-04/0000829224/companyfacts.json", ref.FactsKey)

	got, err := store.Get(ctx, ref.SubmissionsKey)
	require.NoError(t, err)
	assert.JSONEq(t, testSubmissions, string(got))

	got, err = store.Get(ctx, ref.FactsKey)
	require.NoError(t, err)
	assert.JSONEq(t, testFacts, string(got))

	for _, ua := range reg.agents {
		assert.Equal(t, "test-agent admin@example.com", ua)
	}
}

func TestFetchIsIdempotent(t *testing.T) {
	reg := &registry{handlers: map[string]func(http.ResponseWriter){
		"/submissions/CIK0000829224.json":           body(testSubmissions),
		"/api/xbrl/companyfacts/CIK0000829224.json": body(testFacts),
	}}
	f, store := newTestFetcher(t, reg)
	ctx := context.Background()
	acct := types.Account{Name: "Starbucks", CIK: "0000829224"}

	first, err := f.Fetch(ctx, acct, testDate)
	require.NoError(t, err)
	second, err := f.Fetch(ctx, acct, testDate)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	got, err := store.Get(ctx, second.FactsKey)
	require.NoError(t, err)
	assert.JSONEq(t, testFacts, string(got))
}

func TestFetchUnknownCIK(t *testing.T) {
	reg := &registry{handlers: map[string]func(http.ResponseWriter){}}
	f, _ := newTestFetcher(t, reg)

	_, err := f.Fetch(context.Background(), types.Account{Name: "Nobody", CIK: "9999999999"}, testDate)
	require.Error(t, err)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
	assert.Equal(t, int32(1), reg.calls.Load(), "404 is not retried")
}

func TestFetchInvalidCIKMakesNoRequest(t *testing.T) {
	reg := &registry{handlers: map[string]func(http.ResponseWriter){}}
	f, _ := newTestFetcher(t, reg)

	_, err := f.Fetch(context.Background(), types.Account{Name: "Bad", CIK: "not-a-cik"}, testDate)
	require.Error(t, err)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
	assert.Equal(t, int32(0), reg.calls.Load())
}

func TestFetchRetriesThenFails(t *testing.T) {
	reg := &registry{handlers: map[string]func(http.ResponseWriter){
		"/submissions/CIK0000829224.json": status(http.StatusServiceUnavailable),
	}}
	f, store := newTestFetcher(t, reg)

	ref, err := f.Fetch(context.Background(), types.Account{Name: "Starbucks", CIK: "829224"}, testDate)
	require.Error(t, err)
	assert.Equal(t, types.KindFetch, types.KindOf(err))
	assert.Equal(t, int32(httputil.DefaultMaxAttempts), reg.calls.Load())

	_, getErr := store.Get(context.Background(), ref.SubmissionsKey)
	assert.ErrorIs(t, getErr, objectstore.ErrObjectNotFound, "nothing stored on failure")
}

func TestFetchRecoversFromTransientError(t *testing.T) {
	var subsCalls atomic.Int32
	reg := &registry{handlers: map[string]func(http.ResponseWriter){
		"/submissions/CIK0000829224.json": func(w http.ResponseWriter) {
			if subsCalls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(testSubmissions))
		},
		"/api/xbrl/companyfacts/CIK0000829224.json": body(testFacts),
	}}
	f, _ := newTestFetcher(t, reg)

	_, err := f.Fetch(context.Background(), types.Account{Name: "Starbucks", CIK: "829224"}, testDate)
	require.NoError(t, err)
	assert.Equal(t, int32(2), subsCalls.Load())
}

func TestFetchNonRetryableStatus(t *testing.T) {
	reg := &registry{handlers: map[string]func(http.ResponseWriter){
		"/submissions/CIK0000829224.json": status(http.StatusForbidden),
	}}
	f, _ := newTestFetcher(t, reg)

	_, err := f.Fetch(context.Background(), types.Account{Name: "Starbucks", CIK: "829224"}, testDate)
	require.Error(t, err)
	assert.Equal(t, types.KindFetch, types.KindOf(err))
	assert.Equal(t, int32(1), reg.calls.Load())

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
}

func TestFetchMissingFactsStoresEmptyDocument(t *testing.T) {
	reg := &registry{handlers: map[string]func(http.ResponseWriter){
		"/submissions/CIK0000829224.json": body(testSubmissions),
	}}
	f, store := newTestFetcher(t, reg)
	ctx := context.Background()

	ref, err := f.Fetch(ctx, types.Account{Name: "Starbucks", CIK: "829224"}, testDate)
	require.NoError(t, err)

	got, err := store.Get(ctx, ref.FactsKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"facts":{}}`, string(got))
}

func TestFetchDeadline(t *testing.T) {
	reg := &registry{handlers: map[string]func(http.ResponseWriter){
		"/submissions/CIK0000829224.json": func(w http.ResponseWriter) {
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(testSubmissions))
		},
	}}
	f, _ := newTestFetcher(t, reg)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.Fetch(ctx, types.Account{Name: "Starbucks", CIK: "829224"}, testDate)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "caller deadline stays in the chain")
	assert.Equal(t, types.KindFetch, types.KindOf(err))
}

func TestFetchRequestTimeoutIsFetchError(t *testing.T) {
	reg := &registry{handlers: map[string]func(http.ResponseWriter){
		"/submissions/CIK0000829224.json": func(w http.ResponseWriter) {
			time.Sleep(150 * time.Millisecond)
			w.Write([]byte(testSubmissions))
		},
	}}
	f, _ := newTestFetcher(t, reg, WithTimeout(20*time.Millisecond))

	_, err := f.Fetch(context.Background(), types.Account{Name: "Starbucks", CIK: "829224"}, testDate)
	require.Error(t, err)
	assert.Equal(t, types.KindFetch, types.KindOf(err))
	assert.EqualValues(t, 3, reg.calls.Load())
}

func TestClientRateLimitPastDeadline(t *testing.T) {
	reg := &registry{handlers: map[string]func(http.ResponseWriter){
		"/submissions/CIK0000829224.json": body(testSubmissions),
	}}
	srv := httptest.NewServer(reg)
	defer srv.Close()
	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1))

	_, err := c.Submissions(context.Background(), "0000829224")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = c.Submissions(ctx, "0000829224")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrTimeout)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "limiter should fail without waiting")
	assert.EqualValues(t, 1, reg.calls.Load())
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{StatusCode: 500, URL: "https://data.sec.gov/x", Body: "oops"}
	if !strings.Contains(err.Error(), "HTTP 500") || !strings.Contains(err.Error(), "oops") {
		t.Errorf("Error() = %q", err.Error())
	}
}
