package youtube

import (
	"net/http"
	"net/url"
	"strings"

	ythttp "ytinsight/http"
	"ytinsight/internal/metrics"
)

const (
	analyticsPath   = "/insight_ajax"
	formContentType = "application/x-www-form-urlencoded"
)

// RequestBuilder builds analytics POST requests against a host.
type RequestBuilder struct {
	Host string
}

// NewRequestBuilder returns a builder for host (scheme and authority, no trailing slash).
func NewRequestBuilder(host string) *RequestBuilder {
	return &RequestBuilder{Host: strings.TrimRight(host, "/")}
}

// AnalyticsURL returns the analytics endpoint URL for itemID.
func (b *RequestBuilder) AnalyticsURL(itemID string) string {
	q := url.Values{}
	q.Set("action_get_statistics_and_data", "1")
	q.Set("v", itemID)
	return b.Host + analyticsPath + "?" + q.Encode()
}

// WatchURL returns the watch page URL for itemID.
func (b *RequestBuilder) WatchURL(itemID string) string {
	return b.Host + "/watch?v=" + url.QueryEscape(itemID)
}

// BuildHistorical returns the analytics request for itemID under session.
// The body is the session's pre-encoded token form.
func (b *RequestBuilder) BuildHistorical(itemID string, session *ythttp.Session) *ythttp.Request {
	h := http.Header{}
	h.Set("Content-Type", formContentType)
	h.Set("Cookie", session.Cookie)
	h.Set("Origin", b.Host)
	h.Set("Referer", b.WatchURL(itemID))
	h.Set("User-Agent", ythttp.DesktopUserAgent)

	return &ythttp.Request{
		Method:   http.MethodPost,
		URL:      b.AnalyticsURL(itemID),
		Header:   h,
		Body:     session.PostBody,
		Endpoint: metrics.EndpointHistorical,
	}
}
