// Package crawler combines the analytics pipeline and the Data API into one
// component that produces a single output record per item.
package crawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	ythttp "ytinsight/http"
	"ytinsight/internal/metrics"
	"ytinsight/youtube"
)

// Output record keys merged into the metadata document.
const (
	KeyInsights       = "insights"
	KeyRelevantVideos = "relevantVideos"
)

// Failure kinds used in logs and metrics.
const (
	KindSessionBootstrap = "session_bootstrap_failure"
	KindTransport        = "transport_failure"
	KindRead             = "read_failure"
	KindParse            = "parse_error"
	KindMetadata         = "metadata_failure"
	KindStorage          = "storage_failure"
	KindUnknown          = "unknown"
)

// Kind maps an error to its failure kind.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ythttp.ErrSessionBootstrap):
		return KindSessionBootstrap
	case errors.Is(err, ythttp.ErrRead):
		return KindRead
	case errors.Is(err, ythttp.ErrTransport):
		return KindTransport
	case errors.Is(err, youtube.ErrParse):
		return KindParse
	case errors.Is(err, youtube.ErrMetadata):
		return KindMetadata
	default:
		return KindUnknown
	}
}

// AnalyticsFetcher bootstraps sessions and sends analytics requests.
// *ythttp.Client implements it.
type AnalyticsFetcher interface {
	Bootstrap(ctx context.Context, cfg ythttp.SessionConfig) (*ythttp.Session, error)
	Fetch(ctx context.Context, req *ythttp.Request) (*ythttp.Response, error)
}

// MetadataSource is the Data API surface used by the crawler.
// *youtube.APIClient implements it.
type MetadataSource interface {
	FetchVideo(ctx context.Context, videoID string) (youtube.Document, error)
	SearchRelated(ctx context.Context, videoID string, limit int) ([]string, error)
	ListChannelVideos(ctx context.Context, channelID string) ([]string, error)
	ListPlaylists(ctx context.Context, channelID string) ([]youtube.Document, error)
	ListPlaylistItems(ctx context.Context, playlistID string) ([]youtube.Document, error)
}

// Config configures a Crawler.
type Config struct {
	Session ythttp.SessionConfig
	// MaxRelevant caps the relevant-video ids per item.
	MaxRelevant int
	// RebootstrapAfter replaces the session after this many consecutive
	// transport failures. 0 keeps the first session for the whole run.
	RebootstrapAfter int
}

// ChannelRecord is the output record of a channel crawl.
type ChannelRecord struct {
	ChannelID string   `json:"channelId"`
	VideoIDs  []string `json:"videoIds"`
}

// Crawler owns one session and fetches everything known about an item.
// It is not safe for concurrent use; items are processed one at a time.
type Crawler struct {
	fetcher AnalyticsFetcher
	meta    MetadataSource
	builder *youtube.RequestBuilder
	cfg     Config
	session *ythttp.Session
	health  *ythttp.SessionHealth
	metrics *metrics.Metrics
	log     *logrus.Entry
	runID   string
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithMetrics records item outcomes and failure kinds.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Crawler) { c.metrics = m }
}

// WithLogger sets the logger. The run id is added to it.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Crawler) { c.log = log }
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(c *Crawler) { c.runID = id }
}

// New bootstraps a session and returns a Crawler. A bootstrap failure is
// returned as is and should abort the run.
func New(ctx context.Context, fetcher AnalyticsFetcher, meta MetadataSource, cfg Config, opts ...Option) (*Crawler, error) {
	c := &Crawler{
		fetcher: fetcher,
		meta:    meta,
		builder: youtube.NewRequestBuilder(cfg.Session.Host),
		cfg:     cfg,
		health:  ythttp.NewSessionHealth(cfg.RebootstrapAfter),
		log:     logrus.NewEntry(logrus.StandardLogger()),
		runID:   uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("run_id", c.runID)

	session, err := fetcher.Bootstrap(ctx, cfg.Session)
	if err != nil {
		c.metrics.IncFailure(KindSessionBootstrap)
		return nil, fmt.Errorf("crawler: %w", err)
	}
	c.session = session
	c.log.WithField("acquired_at", session.AcquiredAt).Debug("session acquired")
	return c, nil
}

// RunID returns the correlation id attached to every log line.
func (c *Crawler) RunID() string { return c.runID }

// Session returns the current session.
func (c *Crawler) Session() *ythttp.Session { return c.session }

// FetchMetadata returns the Data API document for videoID.
func (c *Crawler) FetchMetadata(ctx context.Context, videoID string) (youtube.Document, error) {
	return c.meta.FetchVideo(ctx, videoID)
}

// FetchHistorical retrieves and normalizes the analytics series for videoID.
// Transport failures feed the session health tracker; once it reports the
// session stale a new one is bootstrapped for later items.
func (c *Crawler) FetchHistorical(ctx context.Context, videoID string) (*youtube.HistoricalRecord, error) {
	req := c.builder.BuildHistorical(videoID, c.session)
	resp, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		if errors.Is(err, ythttp.ErrTransport) && c.health.RecordFailure() {
			c.rebootstrap(ctx)
		}
		return nil, err
	}
	c.health.RecordSuccess()
	return youtube.ParseHistorical(resp.Body)
}

func (c *Crawler) rebootstrap(ctx context.Context) {
	log := c.log.WithField("consecutive_errors", c.health.ConsecutiveErrors())
	session, err := c.fetcher.Bootstrap(ctx, c.cfg.Session)
	if err != nil {
		c.metrics.IncFailure(KindSessionBootstrap)
		log.WithError(err).Warn("session refresh failed, keeping current session")
		return
	}
	c.session = session
	c.health.Reset()
	log.Info("session refreshed")
}

// SearchRelated returns up to Config.MaxRelevant related video ids.
func (c *Crawler) SearchRelated(ctx context.Context, videoID string) ([]string, error) {
	return c.meta.SearchRelated(ctx, videoID, c.cfg.MaxRelevant)
}

// ListChannelVideos returns every uploaded video id of channelID.
func (c *Crawler) ListChannelVideos(ctx context.Context, channelID string) (*ChannelRecord, error) {
	ids, err := c.meta.ListChannelVideos(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return &ChannelRecord{ChannelID: channelID, VideoIDs: ids}, nil
}

// ListPlaylists returns the first page of the channel's playlists.
func (c *Crawler) ListPlaylists(ctx context.Context, channelID string) ([]youtube.Document, error) {
	return c.meta.ListPlaylists(ctx, channelID)
}

// ListPlaylistItems returns the first page of a playlist's items.
func (c *Crawler) ListPlaylistItems(ctx context.Context, playlistID string) ([]youtube.Document, error) {
	return c.meta.ListPlaylistItems(ctx, playlistID)
}

// CrawlVideo builds the output record of one video: the metadata document
// with the historical record under "insights" and, when withRelevant is set,
// related ids under "relevantVideos". A metadata failure is returned; a
// historical or related failure is logged and leaves its key absent.
func (c *Crawler) CrawlVideo(ctx context.Context, videoID string, withRelevant bool) (youtube.Document, error) {
	doc, err := c.FetchMetadata(ctx, videoID)
	if err != nil {
		return nil, err
	}

	hist, err := c.FetchHistorical(ctx, videoID)
	if err != nil {
		c.itemFailure(videoID, err).Warn("historical data unavailable")
	} else {
		doc[KeyInsights] = hist
	}

	if withRelevant {
		ids, err := c.SearchRelated(ctx, videoID)
		if err != nil {
			c.itemFailure(videoID, err).Warn("relevant videos unavailable")
		} else {
			if ids == nil {
				ids = []string{}
			}
			doc[KeyRelevantVideos] = ids
		}
	}
	return doc, nil
}

// CrawlChannel builds the output record of one channel.
func (c *Crawler) CrawlChannel(ctx context.Context, channelID string) (*ChannelRecord, error) {
	return c.ListChannelVideos(ctx, channelID)
}

// itemFailure counts err and returns an entry carrying item and kind fields.
func (c *Crawler) itemFailure(itemID string, err error) *logrus.Entry {
	kind := Kind(err)
	c.metrics.IncFailure(kind)
	return c.log.WithFields(logrus.Fields{
		"item_id": itemID,
		"kind":    kind,
	}).WithError(err)
}
