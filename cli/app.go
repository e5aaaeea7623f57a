package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"ytinsight/config"
	"ytinsight/crawler"
	ythttp "ytinsight/http"
	"ytinsight/internal/logging"
	"ytinsight/internal/metrics"
	"ytinsight/internal/retry"
	"ytinsight/storage"
	"ytinsight/youtube"
)

// app holds the dependencies shared by every command.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	log     *logrus.Entry
	metrics *metrics.Metrics
	client  *ythttp.Client
	server  *http.Server
}

func newApp() (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagMetricsAddr != "" {
		cfg.Metrics.Addr = flagMetricsAddr
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	httpCfg := ythttp.DefaultConfig()
	httpCfg.MaxAttempts = cfg.Historical.MaxAttempts
	httpCfg.JitterMin = cfg.Historical.JitterMin
	httpCfg.JitterMax = cfg.Historical.JitterMax
	httpCfg.TimeoutBase = cfg.Historical.TimeoutBase
	httpCfg.RateLimiter.RPS = cfg.RateLimit.RPS

	a := &app{
		cfg:     cfg,
		logger:  logger,
		log:     logger.WithComponent("cli"),
		metrics: m,
		client:  ythttp.New(httpCfg, ythttp.WithMetrics(m), ythttp.WithLogger(logger.WithComponent("http"))),
	}
	a.serveMetrics()
	return a, nil
}

func (a *app) serveMetrics() {
	if a.cfg.Metrics.Addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	a.server = &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Error("metrics listener stopped")
		}
	}()
}

func (a *app) close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		a.server.Shutdown(ctx)
		cancel()
	}
	a.client.Close()
	a.logger.Close()
}

func (a *app) apiClient(ctx context.Context) (*youtube.APIClient, error) {
	md := a.cfg.Metadata
	rc := retry.DefaultConfig()
	rc.MaxAttempts = md.MaxAttempts
	rc.InitialBackoff = 2 * time.Second
	rc.Jitter = md.Jitter

	return youtube.NewAPIClient(ctx, youtube.APIConfig{
		APIKey:         md.APIKey,
		Endpoint:       md.Endpoint,
		Parts:          md.Parts,
		Fields:         md.Fields,
		Retry:          rc,
		PageSize:       md.PageSize,
		DetectLanguage: md.DetectLanguage,
	}, youtube.WithAPIMetrics(a.metrics), youtube.WithAPILogger(a.logger.WithComponent("youtube")))
}

func (a *app) crawler(ctx context.Context) (*crawler.Crawler, error) {
	api, err := a.apiClient(ctx)
	if err != nil {
		return nil, err
	}
	s := a.cfg.Session
	return crawler.New(ctx, a.client, api, crawler.Config{
		Session: ythttp.SessionConfig{
			Host:          s.Host,
			WarmupVideoID: s.WarmupVideoID,
			WarmupJitter:  s.WarmupJitter,
			CookieNames:   s.CookieNames,
		},
		MaxRelevant:      a.cfg.Metadata.MaxRelevant,
		RebootstrapAfter: s.RebootstrapAfter,
	}, crawler.WithMetrics(a.metrics), crawler.WithLogger(a.logger.WithComponent("crawler")))
}

// readInput loads ids, failing when the file is missing.
func readInput(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("input file is required (-i)")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("input file %s: %w", path, err)
	}
	return storage.ReadIDFile(path)
}

func (a *app) openOutput(path string) (*storage.NDJSONStore, error) {
	if path == "" {
		return nil, fmt.Errorf("output file is required (-o)")
	}
	return storage.OpenNDJSON(path, storage.Options{
		LockTimeout: a.cfg.Output.LockTimeout,
		Logger:      a.logger.WithComponent("storage"),
	})
}

// upload ships the finished output when a bucket is configured.
func (a *app) upload(ctx context.Context, path string) error {
	out := a.cfg.Output
	if out.S3Bucket == "" {
		return nil
	}
	u, err := storage.NewS3Uploader(ctx, storage.S3Config{
		Bucket:   out.S3Bucket,
		Prefix:   out.S3Prefix,
		Region:   out.S3Region,
		Endpoint: out.S3Endpoint,
	})
	if err != nil {
		return err
	}
	loc, err := u.Upload(ctx, path)
	if err != nil {
		a.log.WithError(err).Error("upload failed")
		return err
	}
	a.log.WithField("location", loc).Info("output uploaded")
	return nil
}

// crawlInto runs one batch command end to end.
func (a *app) crawlInto(ctx context.Context, input, output string, run func(*crawler.Crawler, []string, storage.RecordStore) (crawler.Summary, error)) error {
	ids, err := readInput(input)
	if err != nil {
		return err
	}
	store, err := a.openOutput(output)
	if err != nil {
		return err
	}

	c, err := a.crawler(ctx)
	if err != nil {
		store.Close()
		return err
	}

	sum, runErr := run(c, ids, store)
	if err := store.Close(); err != nil && runErr == nil {
		runErr = err
	}
	fmt.Fprintf(os.Stderr, "%d ids: %d written, %d already done, %d failed (run %s)\n",
		sum.Total, sum.Written, sum.Skipped, sum.Failed, c.RunID())
	if runErr != nil {
		return runErr
	}
	return a.upload(ctx, output)
}
