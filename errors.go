package ytinsight

import (
	"ytinsight/crawler"
	ythttp "ytinsight/http"
	"ytinsight/internal/retry"
	"ytinsight/storage"
	"ytinsight/youtube"
)

// Exported error types from sub-packages:
//
// From http package:
//   - http.ErrSessionBootstrap: anonymous session could not be created (fatal)
//   - http.ErrTransport: every attempt failed without a usable response
//   - http.ErrRead: a response arrived but its body could not be read
//   - http.FetchError: outcome and attempt count of a failed request
//
// From youtube package:
//   - youtube.ErrParse, youtube.ParseError: analytics payload rejected
//   - youtube.ErrMetadata, youtube.MetadataError: Data API call failed
//   - youtube.ErrVideoNotFound, youtube.ErrChannelNotFound: no such item
//
// From storage package:
//   - storage.ErrInvalidInput, storage.ErrStorageCorrupt, storage.ErrLockTimeout
//   - storage.StorageError: general storage operation error

// Type aliases for convenient error handling.
type (
	// FetchError describes a failed analytics or page request.
	FetchError = ythttp.FetchError
	// ParseError describes a rejected analytics payload.
	ParseError = youtube.ParseError
	// MetadataError wraps a failed Data API call.
	MetadataError = youtube.MetadataError
	// RetryableError wraps errors that occurred after retries were exhausted.
	RetryableError = retry.RetryableError
	// StorageError wraps errors during storage operations.
	StorageError = storage.StorageError
)

// Sentinel errors exported from sub-packages.
var (
	ErrSessionBootstrap = ythttp.ErrSessionBootstrap
	ErrTransport        = ythttp.ErrTransport
	ErrRead             = ythttp.ErrRead

	ErrParse           = youtube.ErrParse
	ErrMetadata        = youtube.ErrMetadata
	ErrVideoNotFound   = youtube.ErrVideoNotFound
	ErrChannelNotFound = youtube.ErrChannelNotFound

	// Storage errors
	ErrInvalidInput   = storage.ErrInvalidInput
	ErrStorageCorrupt = storage.ErrStorageCorrupt
	ErrLockTimeout    = storage.ErrLockTimeout
)

// Kind returns the failure kind logged for err, e.g. "transport_failure".
func Kind(err error) string {
	return crawler.Kind(err)
}

// IsRetryable determines if an error should be retried.
func IsRetryable(err error) bool {
	return retry.IsRetryable(err)
}
