// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Sentinel errors for the per-account failure taxonomy. Stages wrap them with
// fmt.Errorf("...: %w", ErrX) so KindOf can classify the failure.
var (
	// ErrNotFound means the CIK does not resolve to a public filer.
	ErrNotFound = errors.New("filer not found")

	// ErrFetch means registry retries were exhausted or a non-retryable
	// registry error occurred.
	ErrFetch = errors.New("fetch failed")

	// ErrMalformedData means a raw payload is not parseable at all.
	ErrMalformedData = errors.New("malformed filing data")

	// ErrInsightGeneration means the model output was still invalid after the
	// single stricter retry, or the model call itself failed.
	ErrInsightGeneration = errors.New("insight generation failed")

	// ErrTimeout means the run deadline passed before the account finished.
	ErrTimeout = errors.New("run deadline exceeded")

	// ErrNotification means the brief email could not be sent. Artifacts
	// written before the send remain in place.
	ErrNotification = errors.New("notification failed")
)

// ErrorKind names a failure class in run summaries.
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindNotFound          ErrorKind = "NotFoundError"
	KindFetch             ErrorKind = "FetchError"
	KindMalformedData     ErrorKind = "MalformedDataError"
	KindInsightGeneration ErrorKind = "InsightGenerationError"
	KindTimeout           ErrorKind = "TimeoutError"
	KindNotification      ErrorKind = "NotificationError"
	KindInternal          ErrorKind = "InternalError"
)

// KindOf classifies err. ErrTimeout takes precedence because a stage
// interrupted by the run deadline reports it wrapped around its own error
// class. A bare context.DeadlineExceeded, such as a per-request HTTP
// timeout, is classified by the stage error that wraps it.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrFetch):
		return KindFetch
	case errors.Is(err, ErrMalformedData):
		return KindMalformedData
	case errors.Is(err, ErrInsightGeneration):
		return KindInsightGeneration
	case errors.Is(err, ErrNotification):
		return KindNotification
	default:
		return KindInternal
	}
}
