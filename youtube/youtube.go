// Package youtube turns raw video-site responses into crawl records: it
// builds and parses analytics requests, wraps the Data API v3 for metadata
// and listings, and probes watch/channel pages.
package youtube

import (
	"errors"
	"fmt"

	"ytinsight/internal/retry"
)

// Sentinel errors for youtube operations.
var (
	// ErrParse indicates the analytics payload could not be normalized.
	ErrParse = errors.New("youtube: analytics payload parse error")
	// ErrMetadata indicates the Data API call failed after all retries.
	ErrMetadata = errors.New("youtube: metadata fetch failed")
	// ErrVideoNotFound indicates the Data API returned no item for the id.
	ErrVideoNotFound = fmt.Errorf("youtube: video %w", retry.ErrNotFound)
	// ErrChannelNotFound indicates the Data API returned no channel for the id.
	ErrChannelNotFound = fmt.Errorf("youtube: channel %w", retry.ErrNotFound)
)

// Document is an externally owned Data API resource, decoded to generic JSON.
// The crawler only reads its identifier and merges extra keys into it.
type Document map[string]any

// ID returns the resource identifier, or "".
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// ParseError describes why an analytics payload was rejected.
type ParseError struct {
	// Reason is a short description of the failed step.
	Reason string
	// Err is the underlying decoder error, if any.
	Err error
}

// Error returns a string representation of the parse error.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("youtube: parse analytics payload: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("youtube: parse analytics payload: %s", e.Reason)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *ParseError) Unwrap() error { return e.Err }

// Is makes every ParseError match ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// MetadataError wraps a failed Data API call with the item it was for.
type MetadataError struct {
	// Op is the Data API method ("videos.list", "search.list", ...).
	Op string
	// ID is the video, channel or playlist id.
	ID  string
	Err error
}

// Error returns a string representation of the metadata error.
func (e *MetadataError) Error() string {
	return fmt.Sprintf("youtube: %s %s: %v", e.Op, e.ID, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *MetadataError) Unwrap() error { return e.Err }

// Is makes every MetadataError match ErrMetadata.
func (e *MetadataError) Is(target error) bool { return target == ErrMetadata }
