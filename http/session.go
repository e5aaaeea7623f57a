package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"ytinsight/internal/metrics"
)

// tokenPattern matches the anti-forgery token embedded in the watch page.
// Both the legacy `'XSRF_TOKEN': "..."` and the JSON `"XSRF_TOKEN":"..."` forms are accepted.
var tokenPattern = regexp.MustCompile(`['"]XSRF_TOKEN['"]\s*:\s*"([^"]+)"`)

// SessionConfig configures the anonymous session bootstrap.
type SessionConfig struct {
	// Host is the scheme and host of the video site.
	Host string
	// WarmupVideoID is the watch page requested to obtain cookies and the token.
	WarmupVideoID string
	// WarmupJitter bounds the random pause taken after the page request.
	WarmupJitter time.Duration
	// CookieNames is the allow-list of cookies kept for the session.
	CookieNames []string
}

// DefaultSessionConfig returns sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Host:          "https://www.youtube.com",
		WarmupVideoID: "rYEDA3JcQqw",
		WarmupJitter:  1 * time.Second,
		CookieNames:   []string{"YSC", "PREF", "VISITOR_INFO1_LIVE", "ACTIVITY"},
	}
}

// Session holds the artifacts of a logged-out browser session. It is
// created once and never mutated; share it read-only.
type Session struct {
	// Cookie is the serialized "name=value; name=value" cookie header.
	Cookie string
	// Token is the anti-forgery session token.
	Token string
	// PostBody is the form-encoded body carrying Token.
	PostBody []byte
	// AcquiredAt is when the bootstrap page was fetched.
	AcquiredAt time.Time
}

// Bootstrap acquires an anonymous session. It issues exactly one GET against
// the warmup watch page, pauses for a random duration in [0, WarmupJitter),
// and extracts the allow-listed cookies and the session token. Any failure
// wraps ErrSessionBootstrap.
func (c *Client) Bootstrap(ctx context.Context, cfg SessionConfig) (*Session, error) {
	pageURL := strings.TrimRight(cfg.Host, "/") + "/watch?v=" + url.QueryEscape(cfg.WarmupVideoID)
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse page url: %v", ErrSessionBootstrap, err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("%w: create cookie jar: %v", ErrSessionBootstrap, err)
	}
	hc := &http.Client{
		Transport: c.base.Transport,
		Jar:       jar,
		Timeout:   c.config.TimeoutBase << uint(c.config.MaxAttempts),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionBootstrap, err)
	}
	req.Header.Set("User-Agent", DesktopUserAgent)

	c.metrics.IncAttempt(metrics.EndpointBootstrap)
	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionBootstrap, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %v", ErrSessionBootstrap, &StatusError{StatusCode: resp.StatusCode})
	}
	page, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read page: %v", ErrSessionBootstrap, err)
	}
	c.metrics.ObserveFetch(metrics.EndpointBootstrap, time.Since(start))

	if err := c.sleep(ctx, uniform(0, cfg.WarmupJitter)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionBootstrap, err)
	}

	token, err := ExtractToken(page)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionBootstrap, err)
	}

	return &Session{
		Cookie:     CookieString(jar.Cookies(parsed), cfg.CookieNames),
		Token:      token,
		PostBody:   EncodePostBody(token),
		AcquiredAt: start,
	}, nil
}

// ExtractToken returns the first session token found in a page body.
func ExtractToken(page []byte) (string, error) {
	m := tokenPattern.FindSubmatch(page)
	if m == nil {
		return "", fmt.Errorf("session token not found in page")
	}
	return string(m[1]), nil
}

// CookieString serializes the allow-listed cookies as "name=value" pairs
// joined by "; ", preserving the order they were received in.
func CookieString(cookies []*http.Cookie, allow []string) string {
	allowed := make(map[string]bool, len(allow))
	for _, name := range allow {
		allowed[name] = true
	}

	var parts []string
	for _, ck := range cookies {
		if allowed[ck.Name] {
			parts = append(parts, ck.Name+"="+ck.Value)
		}
	}
	return strings.Join(parts, "; ")
}

// EncodePostBody form-encodes the session token as the analytics POST body.
func EncodePostBody(token string) []byte {
	return []byte(url.Values{"session_token": {token}}.Encode())
}
