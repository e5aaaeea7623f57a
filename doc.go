// Package ytinsight collects metadata and historical statistics for videos
// and channels.
//
// Overview
//
// Two sources are combined into one record per item:
//
//   - the Data API v3, for video metadata, related videos and channel uploads
//   - the analytics endpoint behind the watch page, for daily views, shares,
//     watch time and subscribers, reached through an anonymous session
//
// Quick Start
//
// Crawl a list of videos into an NDJSON file:
//
//	client := http.New(http.DefaultConfig())
//	api, err := youtube.NewAPIClient(ctx, youtube.APIConfig{APIKey: key, Parts: config.DefaultParts})
//	if err != nil {
//		log.Fatal(err)
//	}
//	c, err := crawler.New(ctx, client, api, crawler.Config{Session: http.DefaultSessionConfig()})
//	if err != nil {
//		log.Fatal(err) // no session, nothing can be fetched
//	}
//	store, err := storage.OpenNDJSON("videos.json", storage.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//	summary, err := c.RunVideos(ctx, ids, store, false)
//
// Ids already present in videos.json are skipped, so an interrupted run can
// simply be restarted.
//
// Configuration
//
// The ytinsight command reads settings from several sources:
//
//  1. YTINSIGHT_* environment variables (highest priority)
//  2. a .env file in the working directory
//  3. ytinsight.yaml or ~/.config/ytinsight/ytinsight.yaml
//  4. default values (lowest priority)
//
// Commonly used environment variables:
//
//   - YTINSIGHT_API_KEY: Data API developer key
//   - YTINSIGHT_LOG_LEVEL: logrus level, "warning" by default
//   - YTINSIGHT_REBOOTSTRAP_AFTER: refresh the session after N transport failures
//   - YTINSIGHT_S3_BUCKET: upload the finished output file to this bucket
//
// Error Handling
//
// Per-item failures are classified with crawler.Kind and never stop a batch.
// The exception is a session bootstrap failure, which is fatal:
//
//	if errors.Is(err, ytinsight.ErrSessionBootstrap) {
//		log.Fatal("cannot reach the video site")
//	}
//
// Extracting wrapped error details:
//
//	var fetchErr *ytinsight.FetchError
//	if errors.As(err, &fetchErr) {
//		fmt.Printf("%s after %d attempts\n", fetchErr.Outcome, fetchErr.Attempts)
//	}
//
// Sub-packages
//
//   - http: session bootstrap, attempt loop, rate limiting
//   - youtube: analytics request and parser, Data API client, page probes
//   - crawler: per-item record assembly and the resumable batch loop
//   - storage: NDJSON output, file locking, S3 upload
//   - config: configuration loading
package ytinsight
