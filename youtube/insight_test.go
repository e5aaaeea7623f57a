package youtube

import (
	"net/http"
	"net/url"
	"testing"

	ythttp "ytinsight/http"
	"ytinsight/internal/metrics"
)

func TestBuildHistorical(t *testing.T) {
	session := &ythttp.Session{
		Cookie:   "YSC=a; VISITOR_INFO1_LIVE=b; PREF=c",
		Token:    "tok==",
		PostBody: ythttp.EncodePostBody("tok=="),
	}
	b := NewRequestBuilder("https://www.youtube.com/")

	req := b.BuildHistorical("rYEDA3JcQqw", session)

	if req.Method != http.MethodPost {
		t.Errorf("Method = %q, want POST", req.Method)
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		t.Fatalf("url.Parse(%q) error = %v", req.URL, err)
	}
	if u.Path != "/insight_ajax" || u.Query().Get("v") != "rYEDA3JcQqw" ||
		u.Query().Get("action_get_statistics_and_data") != "1" {
		t.Errorf("URL = %q", req.URL)
	}

	headers := map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
		"Cookie":       session.Cookie,
		"Origin":       "https://www.youtube.com",
		"Referer":      "https://www.youtube.com/watch?v=rYEDA3JcQqw",
		"User-Agent":   ythttp.DesktopUserAgent,
	}
	for k, want := range headers {
		if got := req.Header.Get(k); got != want {
			t.Errorf("Header[%s] = %q, want %q", k, got, want)
		}
	}
	if string(req.Body) != string(session.PostBody) {
		t.Errorf("Body = %q, want %q", req.Body, session.PostBody)
	}
	if req.Endpoint != metrics.EndpointHistorical {
		t.Errorf("Endpoint = %q, want %q", req.Endpoint, metrics.EndpointHistorical)
	}
}

func TestAnalyticsURLEscapesID(t *testing.T) {
	b := NewRequestBuilder("http://localhost:8080")
	if got, want := b.AnalyticsURL("a&b"), "http://localhost:8080/insight_ajax?action_get_statistics_and_data=1&v=a%26b"; got != want {
		t.Errorf("AnalyticsURL() = %q, want %q", got, want)
	}
}
