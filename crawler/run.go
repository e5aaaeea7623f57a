package crawler

import (
	"context"

	"github.com/sirupsen/logrus"

	"ytinsight/storage"
)

// Item results used in metrics.
const (
	ResultWritten = "written"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

// Summary counts the outcome of a batch.
type Summary struct {
	Total   int
	Written int
	Skipped int
	Failed  int
}

// CrawlFunc produces the output record for one id.
type CrawlFunc func(ctx context.Context, id string) (any, error)

// Run processes ids in order, skipping those already in store. A failing
// item is logged and does not stop the batch. Run returns early only when
// ctx is done or the store rejects a write.
func (c *Crawler) Run(ctx context.Context, ids []string, store storage.RecordStore, crawl CrawlFunc) (Summary, error) {
	var sum Summary
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Total++

		if store.Done(id) {
			sum.Skipped++
			c.metrics.IncItem(ResultSkipped)
			c.log.WithField("item_id", id).Debug("already crawled")
			continue
		}

		rec, err := crawl(ctx, id)
		if err != nil {
			sum.Failed++
			c.metrics.IncItem(ResultFailed)
			c.itemFailure(id, err).Error("item skipped")
			continue
		}

		if err := store.Append(id, rec); err != nil {
			c.metrics.IncFailure(KindStorage)
			c.log.WithFields(logrus.Fields{"item_id": id, "kind": KindStorage}).WithError(err).Error("write failed")
			return sum, err
		}
		sum.Written++
		c.metrics.IncItem(ResultWritten)
	}

	c.log.WithFields(logrus.Fields{
		"total":   sum.Total,
		"written": sum.Written,
		"skipped": sum.Skipped,
		"failed":  sum.Failed,
	}).Info("batch finished")
	return sum, nil
}

// RunVideos crawls video ids into store.
func (c *Crawler) RunVideos(ctx context.Context, ids []string, store storage.RecordStore, withRelevant bool) (Summary, error) {
	return c.Run(ctx, ids, store, func(ctx context.Context, id string) (any, error) {
		return c.CrawlVideo(ctx, id, withRelevant)
	})
}

// RunChannels crawls channel ids into store.
func (c *Crawler) RunChannels(ctx context.Context, ids []string, store storage.RecordStore) (Summary, error) {
	return c.Run(ctx, ids, store, func(ctx context.Context, id string) (any, error) {
		return c.CrawlChannel(ctx, id)
	})
}
