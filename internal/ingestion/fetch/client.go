package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/yungbote/tenpadel-backend/internal/ingestion/failure"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

const maxBodyBytes = 8 << 20

type Config struct {
	BaseURL    string
	SearchPath string
	MinDelay   time.Duration
	MaxDelay   time.Duration
	Timeout    time.Duration
	UserAgent  string
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Option func(*Client)

func WithSleeper(s Sleeper) Option { return func(c *Client) { c.sleep = s } }

func WithSnapshotSink(s SnapshotSink) Option { return func(c *Client) { c.snapshots = s } }

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.base = h } }

func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

// Client holds the fetch configuration. Each run opens its own Session.
type Client struct {
	cfg       Config
	log       *logger.Logger
	base      *http.Client
	sleep     Sleeper
	snapshots SnapshotSink
	now       func() time.Time
}

func NewClient(cfg Config, log *logger.Logger, opts ...Option) (*Client, error) {
	if _, err := url.Parse(cfg.BaseURL); err != nil || strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("invalid source base url %q", cfg.BaseURL)
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MinDelay, cfg.MaxDelay = cfg.MaxDelay, cfg.MinDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (compatible; tenpadel-ingest/1.0)"
	}
	c := &Client{
		cfg:   cfg,
		log:   log.With("component", "FetchClient"),
		base:  &http.Client{},
		sleep: sleepCtx,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Config() Config { return c.cfg }

// Session is a cookie-carrying browsing session. It dismisses a consent
// interstitial at most once.
type Session struct {
	c    *Client
	http *http.Client

	mu               sync.Mutex
	consentDismissed bool
}

func (c *Client) NewSession() *Session {
	jar, _ := cookiejar.New(nil)
	hc := *c.base
	hc.Jar = jar
	hc.Timeout = c.cfg.Timeout
	return &Session{c: c, http: &hc}
}

// FetchPage loads one listing page and extracts its items. The primary
// strategy runs first; the fallback scan runs only when it finds nothing.
func (s *Session) FetchPage(ctx context.Context, req PageRequest) (Page, error) {
	pageURL := req.Cursor
	if pageURL == "" {
		first, err := SearchURL(s.c.cfg.BaseURL, s.c.cfg.SearchPath, req.Filters)
		if err != nil {
			return Page{}, &Error{Kind: failure.KindNetwork, URL: s.c.cfg.BaseURL, Err: err}
		}
		pageURL = first
	}

	body, err := s.get(ctx, pageURL)
	if err != nil {
		return Page{}, s.fail(ctx, err, body)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Page{}, s.fail(ctx, &Error{Kind: failure.KindParse, URL: pageURL, Err: err}, body)
	}

	if hasConsentWall(doc) && s.claimConsent() {
		if err := s.dismissConsent(ctx, doc, pageURL); err != nil {
			s.c.log.Warn("consent dismissal failed", "url", pageURL, "error", err)
		}
		if body, err = s.get(ctx, pageURL); err != nil {
			return Page{}, s.fail(ctx, err, body)
		}
		if doc, err = goquery.NewDocumentFromReader(bytes.NewReader(body)); err != nil {
			return Page{}, s.fail(ctx, &Error{Kind: failure.KindParse, URL: pageURL, Err: err}, body)
		}
	}

	page := Page{URL: pageURL, Strategy: StrategyPrimary}
	page.Items = extractPrimary(doc, pageURL)
	if len(page.Items) == 0 {
		page.Strategy = StrategyFallback
		page.Items = extractFallback(doc, pageURL)
	}
	if len(page.Items) == 0 {
		if isEmptyResult(doc) {
			return Page{URL: pageURL, Strategy: StrategyPrimary}, nil
		}
		return Page{}, s.fail(ctx, &Error{Kind: failure.KindParse, URL: pageURL, Err: errors.New("no recognizable items")}, body)
	}
	page.Next = nextToken(doc, pageURL)
	s.c.log.Debug("page fetched", "url", pageURL, "items", len(page.Items), "strategy", page.Strategy, "has_next", page.Next != "")
	return page, nil
}

func (s *Session) claimConsent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.consentDismissed {
		return false
	}
	s.consentDismissed = true
	return true
}

// dismissConsent submits the accept form, or follows the accept link.
func (s *Session) dismissConsent(ctx context.Context, doc *goquery.Document, pageURL string) error {
	btn := doc.Find(consentSelector).First()
	if target, ok := btn.Attr("data-consent-url"); ok {
		_, err := s.do(ctx, http.MethodGet, resolve(pageURL, target), nil)
		return err
	}
	form := btn.Closest("form")
	if form.Length() == 0 {
		form = doc.Find("form#consent-form").First()
	}
	if form.Length() == 0 {
		return errors.New("no actionable consent control")
	}
	action, _ := form.Attr("action")
	target := resolve(pageURL, action)
	if target == "" {
		target = pageURL
	}
	values := url.Values{}
	form.Find("input[name]").Each(func(_ int, in *goquery.Selection) {
		name, _ := in.Attr("name")
		val, _ := in.Attr("value")
		values.Add(name, val)
	})
	if name, ok := btn.Attr("name"); ok {
		val, _ := btn.Attr("value")
		values.Set(name, val)
	}
	method := strings.ToUpper(strings.TrimSpace(form.AttrOr("method", http.MethodPost)))
	if method == http.MethodGet {
		u, err := url.Parse(target)
		if err != nil {
			return err
		}
		u.RawQuery = values.Encode()
		_, err = s.do(ctx, http.MethodGet, u.String(), nil)
		return err
	}
	_, err := s.do(ctx, http.MethodPost, target, values)
	return err
}

func (s *Session) get(ctx context.Context, pageURL string) ([]byte, error) {
	return s.do(ctx, http.MethodGet, pageURL, nil)
}

// do waits the politeness delay, then performs one request. The body is
// returned alongside HTTP status errors so it can be snapshotted.
func (s *Session) do(ctx context.Context, method, target string, form url.Values) ([]byte, error) {
	if err := s.c.sleep(ctx, s.c.delay()); err != nil {
		return nil, failure.Wrap(failure.KindCanceled, err)
	}
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, &Error{Kind: failure.KindNetwork, URL: target, Err: err}
	}
	req.Header.Set("User-Agent", s.c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, failure.Wrap(failure.KindCanceled, ctx.Err())
		}
		return nil, &Error{Kind: failure.KindNetwork, URL: target, Err: describeNetErr(err)}
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	switch {
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusServiceUnavailable && resp.Header.Get("Retry-After") != "":
		return body, &Error{Kind: failure.KindRateLimited, URL: target, Status: resp.StatusCode, RetryAfter: retryAfter(resp.Header.Get("Retry-After"), s.c.now())}
	case resp.StatusCode >= 400:
		return body, &Error{Kind: failure.KindNetwork, URL: target, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	if readErr != nil {
		return body, &Error{Kind: failure.KindNetwork, URL: target, Err: readErr}
	}
	return body, nil
}

// fail writes the diagnostic snapshot and returns err annotated with its path.
func (s *Session) fail(ctx context.Context, err error, body []byte) error {
	var fErr *Error
	if !errors.As(err, &fErr) {
		return err
	}
	if s.c.snapshots == nil {
		return err
	}
	content := body
	if len(content) == 0 {
		content = []byte(err.Error())
	}
	// the snapshot is written even when the run context is already canceled
	path, snapErr := s.c.snapshots.Save(context.WithoutCancel(ctx), Snapshot{
		URL:     fErr.URL,
		Kind:    fErr.Kind,
		Content: content,
		TakenAt: s.c.now(),
	})
	if snapErr != nil {
		s.c.log.Warn("snapshot write failed", "url", fErr.URL, "error", snapErr)
		return err
	}
	fErr.Snapshot = path
	s.c.log.Warn("page fetch failed", "url", fErr.URL, "kind", fErr.Kind, "status", fErr.Status, "snapshot", path)
	return err
}

func (c *Client) delay() time.Duration {
	spread := c.cfg.MaxDelay - c.cfg.MinDelay
	if spread <= 0 {
		return c.cfg.MinDelay
	}
	return c.cfg.MinDelay + rand.N(spread+1)
}

func retryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

func describeNetErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("timeout: %w", err)
	}
	return err
}
