package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytinsight/internal/retry"
)

type fakeDetector struct {
	code string
	ok   bool
	seen string
}

func (f *fakeDetector) Detect(text string) (string, bool) {
	f.seen = text
	return f.code, f.ok
}

func newTestAPI(t *testing.T, handler http.HandlerFunc, opts ...APIOption) *APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	api, err := NewAPIClient(context.Background(), APIConfig{
		Endpoint:   srv.URL + "/",
		Parts:      "snippet,statistics",
		Retry:      retry.Config{MaxAttempts: 3},
		PageSize:   2,
		HTTPClient: srv.Client(),
	}, opts...)
	require.NoError(t, err)
	return api
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestFetchVideoFlattensThumbnails(t *testing.T) {
	det := &fakeDetector{code: "en", ok: true}
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/youtube/v3/videos", r.URL.Path)
		assert.Equal(t, "abc", r.URL.Query().Get("id"))
		assert.Equal(t, []string{"snippet", "statistics"}, r.URL.Query()["part"])
		writeJSON(w, map[string]any{"items": []any{map[string]any{
			"id": "abc",
			"snippet": map[string]any{
				"title":       "Title",
				"description": "Description",
				"thumbnails": map[string]any{
					"default": map[string]any{"url": "https://i.ytimg.com/vi/abc/default.jpg", "width": 120},
					"high":    map[string]any{"url": "https://i.ytimg.com/vi/abc/hqdefault.jpg"},
				},
			},
			"statistics": map[string]any{"viewCount": "42"},
		}}})
	}, WithDetector(det))

	doc, err := api.FetchVideo(context.Background(), "abc")
	require.NoError(t, err)

	assert.Equal(t, "abc", doc.ID())
	snippet := doc["snippet"].(map[string]any)
	assert.Equal(t, "https://i.ytimg.com/vi/abc/default.jpg", snippet["thumbnails"])
	assert.Equal(t, "en", snippet["detectLang"])
	assert.Equal(t, "Title Description", det.seen)
	assert.Equal(t, "42", doc["statistics"].(map[string]any)["viewCount"])
}

func TestFetchVideoKeepsReportedLanguage(t *testing.T) {
	det := &fakeDetector{code: "fr", ok: true}
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"items": []any{map[string]any{
			"id":      "abc",
			"snippet": map[string]any{"title": "Title", "defaultLanguage": "en"},
		}}})
	}, WithDetector(det))

	doc, err := api.FetchVideo(context.Background(), "abc")
	require.NoError(t, err)

	snippet := doc["snippet"].(map[string]any)
	assert.NotContains(t, snippet, "detectLang")
	assert.Empty(t, det.seen)
}

func TestFetchVideoDetectionFailureIgnored(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"items": []any{map[string]any{
			"id":      "abc",
			"snippet": map[string]any{"title": "?!"},
		}}})
	}, WithDetector(&fakeDetector{}))

	doc, err := api.FetchVideo(context.Background(), "abc")
	require.NoError(t, err)
	assert.NotContains(t, doc["snippet"].(map[string]any), "detectLang")
}

func TestFetchVideoRetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"backend error"}}`))
	})

	_, err := api.FetchVideo(context.Background(), "abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMetadata))
	assert.Equal(t, int32(3), calls.Load())

	var me *MetadataError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "videos.list", me.Op)
	assert.Equal(t, "abc", me.ID)
}

func TestFetchVideoRecoversAfterFailure(t *testing.T) {
	var calls atomic.Int32
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]any{"items": []any{map[string]any{"id": "abc"}}})
	})

	doc, err := api.FetchVideo(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", doc.ID())
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchVideoNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, map[string]any{"items": []any{}})
	})

	_, err := api.FetchVideo(context.Background(), "gone")
	assert.True(t, errors.Is(err, ErrVideoNotFound))
	assert.True(t, errors.Is(err, ErrMetadata))
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearchRelatedPaginates(t *testing.T) {
	pages := map[string]map[string]any{
		"": {
			"items":         []any{videoResult("r1"), videoResult("r2")},
			"nextPageToken": "p2",
		},
		"p2": {
			"items":         []any{videoResult("r3"), map[string]any{"id": map[string]any{"kind": "youtube#channel"}}},
			"nextPageToken": "p3",
		},
		"p3": {
			"items": []any{videoResult("r4"), videoResult("r5")},
		},
	}
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/youtube/v3/search", r.URL.Path)
		assert.Equal(t, "seed", q.Get("relatedToVideoId"))
		assert.Equal(t, "video", q.Get("type"))
		writeJSON(w, pages[q.Get("pageToken")])
	})

	ids, err := api.SearchRelated(context.Background(), "seed", 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "r3", "r4"}, ids)
}

func TestSearchRelatedStopsWithoutNextPage(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"items": []any{videoResult("only")}})
	})

	ids, err := api.SearchRelated(context.Background(), "seed", 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, ids)
}

func videoResult(id string) map[string]any {
	return map[string]any{"id": map[string]any{"kind": "youtube#video", "videoId": id}}
}

func TestListChannelVideosCachesUploadsPlaylist(t *testing.T) {
	var channelCalls atomic.Int32
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/channels"):
			channelCalls.Add(1)
			assert.Equal(t, "UCchan", r.URL.Query().Get("id"))
			writeJSON(w, map[string]any{"items": []any{map[string]any{
				"id":             "UCchan",
				"contentDetails": map[string]any{"relatedPlaylists": map[string]any{"uploads": "UUchan"}},
			}}})
		case strings.HasSuffix(r.URL.Path, "/playlistItems"):
			assert.Equal(t, "UUchan", r.URL.Query().Get("playlistId"))
			if r.URL.Query().Get("pageToken") == "" {
				writeJSON(w, map[string]any{
					"items":         []any{playlistItem("v1"), playlistItem("v2")},
					"nextPageToken": "next",
				})
				return
			}
			writeJSON(w, map[string]any{"items": []any{playlistItem("v3")}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	for i := 0; i < 2; i++ {
		ids, err := api.ListChannelVideos(context.Background(), "UCchan")
		require.NoError(t, err)
		assert.Equal(t, []string{"v1", "v2", "v3"}, ids)
	}
	assert.Equal(t, int32(1), channelCalls.Load())
}

func TestListChannelVideosUnknownChannel(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"items": []any{}})
	})

	_, err := api.ListChannelVideos(context.Background(), "UCnone")
	assert.True(t, errors.Is(err, ErrChannelNotFound))
}

func playlistItem(videoID string) map[string]any {
	return map[string]any{"contentDetails": map[string]any{"videoId": videoID}}
}

func TestListPlaylists(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/youtube/v3/playlists", r.URL.Path)
		assert.Equal(t, "UCchan", r.URL.Query().Get("channelId"))
		writeJSON(w, map[string]any{"items": []any{
			map[string]any{"id": "PL1", "snippet": map[string]any{"title": "First"}},
			map[string]any{"id": "PL2"},
		}})
	})

	docs, err := api.ListPlaylists(context.Background(), "UCchan")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "PL1", docs[0].ID())
	assert.Equal(t, "PL2", docs[1].ID())
}

func TestListPlaylistItems(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/youtube/v3/playlistItems", r.URL.Path)
		assert.Equal(t, "PL1", r.URL.Query().Get("playlistId"))
		writeJSON(w, map[string]any{"items": []any{playlistItem("v9")}})
	})

	docs, err := api.ListPlaylistItems(context.Background(), "PL1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "v9", docs[0]["contentDetails"].(map[string]any)["videoId"])
}

func TestNewAPIClientRequiresKey(t *testing.T) {
	_, err := NewAPIClient(context.Background(), APIConfig{})
	assert.Error(t, err)
}

func TestSplitParts(t *testing.T) {
	assert.Equal(t, []string{"snippet", "statistics"}, splitParts(" snippet, statistics ,"))
	assert.Equal(t, []string{"snippet"}, splitParts(""))
}
