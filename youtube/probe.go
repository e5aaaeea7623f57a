package youtube

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	ythttp "ytinsight/http"
)

const (
	verifiedBadgeHref   = "support.google.com/youtube/answer/3046484?hl=en"
	statisticsMenuLabel = "Statistics"
	uploadDateLayout    = "Jan 2, 2006"
	uploadDateWidth     = 12
)

// PageFetcher fetches a page body.
type PageFetcher interface {
	Get(ctx context.Context, url string) (*ythttp.Response, error)
}

// Prober answers yes/no questions by scraping public pages. Any fetch or
// parse failure is logged and answered with false.
type Prober struct {
	fetcher PageFetcher
	host    string
	log     *logrus.Entry
}

// NewProber creates a Prober rooted at host.
func NewProber(fetcher PageFetcher, host string, log *logrus.Entry) *Prober {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Prober{fetcher: fetcher, host: strings.TrimRight(host, "/"), log: log}
}

func (p *Prober) document(ctx context.Context, url, id string) *goquery.Document {
	resp, err := p.fetcher.Get(ctx, url)
	if err != nil {
		p.log.WithField("item_id", id).WithError(err).Warn("probe fetch failed")
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		p.log.WithField("item_id", id).WithError(err).Warn("probe parse failed")
		return nil
	}
	return doc
}

// IsVerified reports whether the channel's featured page links the
// verification badge help article.
func (p *Prober) IsVerified(ctx context.Context, channelID string) bool {
	doc := p.document(ctx, p.host+"/channel/"+channelID+"/featured", channelID)
	if doc == nil {
		return false
	}
	found := false
	doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if href, ok := s.Attr("href"); ok && strings.Contains(href, verifiedBadgeHref) {
			found = true
			return false
		}
		return true
	})
	return found
}

// IsAvailable reports whether the watch page offers a Statistics menu entry,
// which means historical analytics can be requested for the video.
func (p *Prober) IsAvailable(ctx context.Context, videoID string) bool {
	doc := p.document(ctx, p.host+"/watch?v="+videoID, videoID)
	if doc == nil {
		return false
	}
	return hasStatisticsMenu(doc)
}

func hasStatisticsMenu(doc *goquery.Document) bool {
	found := false
	doc.Find("span.yt-ui-menu-item-label").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) == statisticsMenuLabel {
			found = true
			return false
		}
		return true
	})
	return found
}

// IsRecentAvailable reports whether the video was uploaded after the given
// date and has statistics available.
func (p *Prober) IsRecentAvailable(ctx context.Context, videoID string, after time.Time) bool {
	doc := p.document(ctx, p.host+"/watch?v="+videoID, videoID)
	if doc == nil {
		return false
	}
	info := doc.Find("#watch-uploader-info").First()
	if info.Length() == 0 {
		return false
	}
	uploaded, err := parseUploadDate(info.Text())
	if err != nil {
		p.log.WithField("item_id", videoID).WithError(err).Debug("no upload date")
		return false
	}
	if !uploaded.After(after) {
		return false
	}
	return hasStatisticsMenu(doc)
}

// parseUploadDate reads a trailing "Mon D, YYYY" date.
func parseUploadDate(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if r := []rune(text); len(r) > uploadDateWidth {
		text = string(r[len(r)-uploadDateWidth:])
	}
	return time.Parse(uploadDateLayout, strings.TrimSpace(text))
}
