package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"ytinsight/internal/metrics"
	"ytinsight/internal/retry"
)

const (
	defaultPageSize     = 50
	uploadsCacheSize    = 1024
	relatedToVideoParam = "relatedToVideoId"
)

// APIConfig configures an APIClient.
type APIConfig struct {
	APIKey string
	// Endpoint overrides the Data API base URL. Must end with "/".
	Endpoint string
	// Parts is the comma-separated videos.list part set.
	Parts string
	// Fields is an optional partial-response selector.
	Fields   string
	Retry    retry.Config
	PageSize int64
	// DetectLanguage enables the title+description language fallback.
	DetectLanguage bool
	// HTTPClient replaces the default transport. The API key is not applied
	// when set.
	HTTPClient *http.Client
}

// APIClient fetches metadata and listings from the YouTube Data API v3.
// Every call is retried under Retry; exhaustion yields a *MetadataError.
type APIClient struct {
	service  *youtube.Service
	parts    []string
	fields   googleapi.Field
	retry    retry.Config
	pageSize int64
	detector LanguageDetector
	uploads  *lru.Cache[string, string]
	metrics  *metrics.Metrics
	log      *logrus.Entry
}

// APIOption configures an APIClient.
type APIOption func(*APIClient)

// WithAPIMetrics records attempt counts and durations.
func WithAPIMetrics(m *metrics.Metrics) APIOption {
	return func(a *APIClient) { a.metrics = m }
}

// WithAPILogger sets the logger.
func WithAPILogger(log *logrus.Entry) APIOption {
	return func(a *APIClient) { a.log = log }
}

// WithDetector replaces the language detector.
func WithDetector(d LanguageDetector) APIOption {
	return func(a *APIClient) { a.detector = d }
}

// NewAPIClient creates a Data API client.
func NewAPIClient(ctx context.Context, cfg APIConfig, opts ...APIOption) (*APIClient, error) {
	if cfg.APIKey == "" && cfg.HTTPClient == nil {
		return nil, fmt.Errorf("youtube: api key required")
	}

	var clientOpts []option.ClientOption
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(cfg.HTTPClient))
	}

	service, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	uploads, err := lru.New[string, string](uploadsCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create uploads cache: %w", err)
	}

	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}

	a := &APIClient{
		service:  service,
		parts:    splitParts(cfg.Parts),
		fields:   googleapi.Field(cfg.Fields),
		retry:    cfg.Retry,
		pageSize: cfg.PageSize,
		uploads:  uploads,
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
	if cfg.DetectLanguage {
		a.detector = WhatlangDetector{}
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func splitParts(parts string) []string {
	var out []string
	for _, p := range strings.Split(parts, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = []string{"snippet"}
	}
	return out
}

// do runs fn under the retry policy and wraps a final failure.
func (a *APIClient) do(ctx context.Context, op, id string, fn func(context.Context) error) error {
	hook := func(attempt int, err error, wait time.Duration) {
		a.log.WithFields(logrus.Fields{
			"op":      op,
			"item_id": id,
			"attempt": attempt,
			"wait":    wait.String(),
		}).WithError(err).Warn("data api call failed, retrying")
	}

	err := retry.DoWithHook(ctx, a.retry, apiErrorClassifier, hook, func(ctx context.Context) error {
		a.metrics.IncAttempt(metrics.EndpointMetadata)
		start := time.Now()
		err := fn(ctx)
		a.metrics.ObserveFetch(metrics.EndpointMetadata, time.Since(start))
		return err
	})
	if err != nil {
		return &MetadataError{Op: op, ID: id, Err: err}
	}
	return nil
}

// FetchVideo returns the videos.list resource for videoID, with the
// thumbnail map flattened to the default URL and, when enabled, a detected
// language under snippet.detectLang.
func (a *APIClient) FetchVideo(ctx context.Context, videoID string) (Document, error) {
	var doc Document
	err := a.do(ctx, "videos.list", videoID, func(ctx context.Context) error {
		call := a.service.Videos.List(a.parts).Id(videoID).Context(ctx)
		if a.fields != "" {
			call = call.Fields(a.fields)
		}
		resp, err := call.Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 {
			return fmt.Errorf("%w: %s", ErrVideoNotFound, videoID)
		}
		doc, err = toDocument(resp.Items[0])
		return err
	})
	if err != nil {
		return nil, err
	}

	flattenThumbnails(doc)
	if a.detector != nil {
		detectLanguage(doc, a.detector)
	}
	return doc, nil
}

// SearchRelated returns up to limit ids of videos related to videoID,
// following page tokens until limit is reached or results run out.
func (a *APIClient) SearchRelated(ctx context.Context, videoID string, limit int) ([]string, error) {
	var ids []string
	pageToken := ""
	for len(ids) < limit {
		size := min(a.pageSize, int64(limit-len(ids)))
		var resp *youtube.SearchListResponse
		err := a.do(ctx, "search.list", videoID, func(ctx context.Context) error {
			call := a.service.Search.List([]string{"id"}).
				Type("video").
				MaxResults(size).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var err error
			resp, err = call.Do(googleapi.QueryParameter(relatedToVideoParam, videoID))
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, item := range resp.Items {
			if item.Id != nil && item.Id.VideoId != "" && len(ids) < limit {
				ids = append(ids, item.Id.VideoId)
			}
		}
		pageToken = resp.NextPageToken
		if pageToken == "" || len(resp.Items) == 0 {
			break
		}
	}
	return ids, nil
}

// ListChannelVideos returns every video id in the channel's uploads playlist.
func (a *APIClient) ListChannelVideos(ctx context.Context, channelID string) ([]string, error) {
	playlistID, err := a.uploadsPlaylistID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	var ids []string
	pageToken := ""
	for {
		var resp *youtube.PlaylistItemListResponse
		err := a.do(ctx, "playlistItems.list", playlistID, func(ctx context.Context) error {
			call := a.service.PlaylistItems.List([]string{"contentDetails"}).
				PlaylistId(playlistID).
				MaxResults(a.pageSize).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var err error
			resp, err = call.Do()
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, item := range resp.Items {
			if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
				ids = append(ids, item.ContentDetails.VideoId)
			}
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return ids, nil
}

// uploadsPlaylistID resolves and caches the channel's uploads playlist.
func (a *APIClient) uploadsPlaylistID(ctx context.Context, channelID string) (string, error) {
	if id, ok := a.uploads.Get(channelID); ok {
		return id, nil
	}

	var playlistID string
	err := a.do(ctx, "channels.list", channelID, func(ctx context.Context) error {
		resp, err := a.service.Channels.List([]string{"contentDetails"}).
			Id(channelID).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 || resp.Items[0].ContentDetails == nil ||
			resp.Items[0].ContentDetails.RelatedPlaylists == nil {
			return fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
		}
		playlistID = resp.Items[0].ContentDetails.RelatedPlaylists.Uploads
		return nil
	})
	if err != nil {
		return "", err
	}

	a.uploads.Add(channelID, playlistID)
	return playlistID, nil
}

// ListPlaylists returns the first page of the channel's playlists.
func (a *APIClient) ListPlaylists(ctx context.Context, channelID string) ([]Document, error) {
	var docs []Document
	err := a.do(ctx, "playlists.list", channelID, func(ctx context.Context) error {
		resp, err := a.service.Playlists.List([]string{"snippet", "contentDetails"}).
			ChannelId(channelID).
			MaxResults(a.pageSize).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		docs, err = toDocuments(resp.Items)
		return err
	})
	return docs, err
}

// ListPlaylistItems returns the first page of items in a playlist.
func (a *APIClient) ListPlaylistItems(ctx context.Context, playlistID string) ([]Document, error) {
	var docs []Document
	err := a.do(ctx, "playlistItems.list", playlistID, func(ctx context.Context) error {
		resp, err := a.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(a.pageSize).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		docs, err = toDocuments(resp.Items)
		return err
	})
	return docs, err
}

func toDocument(v any) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func toDocuments[T any](items []T) ([]Document, error) {
	docs := make([]Document, 0, len(items))
	for _, item := range items {
		doc, err := toDocument(item)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// flattenThumbnails replaces snippet.thumbnails with its default URL.
func flattenThumbnails(doc Document) {
	snippet, ok := doc["snippet"].(map[string]any)
	if !ok {
		return
	}
	thumbs, ok := snippet["thumbnails"].(map[string]any)
	if !ok {
		return
	}
	def, ok := thumbs["default"].(map[string]any)
	if !ok {
		return
	}
	if url, ok := def["url"].(string); ok {
		snippet["thumbnails"] = url
	}
}

// detectLanguage sets snippet.detectLang when the API reports no language.
// Detection failure leaves the document unchanged.
func detectLanguage(doc Document, d LanguageDetector) {
	snippet, ok := doc["snippet"].(map[string]any)
	if !ok {
		return
	}
	if lang, _ := snippet["defaultLanguage"].(string); lang != "" {
		return
	}
	if lang, _ := snippet["defaultAudioLanguage"].(string); lang != "" {
		return
	}
	title, _ := snippet["title"].(string)
	desc, _ := snippet["description"].(string)
	if code, ok := d.Detect(strings.TrimSpace(title + " " + desc)); ok {
		snippet["detectLang"] = code
	}
}

// apiErrorClassifier determines if a Data API error is retryable.
func apiErrorClassifier(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, retry.ErrNotFound) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	// Quota, auth and server errors all spend the retry budget.
	return true
}
