package ytinsight

import (
	"errors"
	"fmt"
	"testing"

	ythttp "ytinsight/http"
)

func TestKindThroughAliases(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("start: %w", ErrSessionBootstrap), "session_bootstrap_failure"},
		{&FetchError{Outcome: ythttp.OutcomeTransportFailure}, "transport_failure"},
		{&ParseError{Reason: "no graph_data node"}, "parse_error"},
		{&MetadataError{Op: "videos.list", ID: "x", Err: ErrVideoNotFound}, "metadata_failure"},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestAliasesMatchSentinels(t *testing.T) {
	err := &MetadataError{Op: "videos.list", ID: "x", Err: ErrVideoNotFound}
	if !errors.Is(err, ErrMetadata) || !errors.Is(err, ErrVideoNotFound) {
		t.Errorf("errors.Is(%v) failed for ErrMetadata/ErrVideoNotFound", err)
	}
	if IsRetryable(ErrVideoNotFound) || IsRetryable(ErrChannelNotFound) {
		t.Error("IsRetryable(not found) = true, want false")
	}
	if !IsRetryable(&FetchError{Outcome: ythttp.OutcomeTransportFailure}) {
		t.Error("IsRetryable(transport failure) = false, want true")
	}
}
