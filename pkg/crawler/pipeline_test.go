package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/article-dl/pkg/config"
	"github.com/Sriram-PR/article-dl/pkg/fetch"
	"github.com/Sriram-PR/article-dl/pkg/models"
	"github.com/Sriram-PR/article-dl/pkg/process"
	"github.com/Sriram-PR/article-dl/pkg/utils"
)

// testLogger returns a logger that discards output
func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

const articleURL = "https://blog.csdn.net/u/article/details/123"

func normalPage(title, body string) *models.RawPage {
	return &models.RawPage{
		StatusCode:  http.StatusOK,
		Body:        `<html><head><title>` + title + `</title></head><body><div id="content_views">` + body + `</div></body></html>`,
		FinalTitle:  title,
		ContentType: "text/html; charset=utf-8",
	}
}

func paywalledPage(title string) *models.RawPage {
	p := normalPage(title, "<p>teaser</p>")
	p.Body += `<div class="hide-article-box">login to read</div>`
	return p
}

// fakeFetcher returns scripted pages or errors per identity and records the order of calls
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[fetch.Identity]*models.RawPage
	errs  map[fetch.Identity]error
	delay time.Duration
	panic bool
	calls []fetch.Identity
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string, id fetch.Identity) (*models.RawPage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()
	if f.panic {
		panic("fetcher exploded")
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	return f.pages[id], nil
}

func (f *fakeFetcher) Calls() []fetch.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetch.Identity(nil), f.calls...)
}

// errorPage is a server error page without any article container
func errorPage(code int) *models.RawPage {
	title := fmt.Sprintf("%d %s", code, http.StatusText(code))
	return &models.RawPage{
		StatusCode: code,
		Body:       "<html><head><title>" + title + "</title></head><body><h1>" + title + "</h1></body></html>",
		FinalTitle: title,
	}
}

type failingExtractor struct{}

func (failingExtractor) Extract(*models.RawPage, string) (string, error) {
	return "", fmt.Errorf("%w: broken markup", utils.ErrExtraction)
}

func newTestPipeline(f PageFetcher) *Pipeline {
	return NewPipeline(f, process.NewExtractor("<h1>{{title}}</h1>{{content}}", testLogger()), testLogger())
}

// assertResultShape checks the shape every Result must have
func assertResultShape(t *testing.T, r models.Result) {
	t.Helper()
	if r.Success {
		assert.NotEmpty(t, r.SanitizedHTML)
		assert.Empty(t, r.Error)
		assert.True(t, r.ItemExists)
		assert.Equal(t, len(r.SanitizedHTML), r.ContentLength)
	} else {
		assert.Empty(t, r.SanitizedHTML)
		assert.NotEmpty(t, r.Error)
	}
	if r.HTTPStatus == http.StatusNotFound {
		assert.False(t, r.ItemExists)
	}
	assert.GreaterOrEqual(t, r.ElapsedMillis, int64(0))
	assert.False(t, r.ProducedAt.IsZero())
}

func TestPipeline_NormalPageSucceedsWithOneFetch(t *testing.T) {
	f := &fakeFetcher{pages: map[fetch.Identity]*models.RawPage{
		fetch.IdentityPrimary: normalPage("Go Tips-CSDN博客", "<p>hello</p>"),
	}}
	r := newTestPipeline(f).Run(context.Background(), models.Task{Seq: 4, URL: articleURL})

	assertResultShape(t, r)
	assert.True(t, r.Success)
	assert.Equal(t, 4, r.Seq)
	assert.Equal(t, "123", r.ArticleID)
	assert.Equal(t, "Go Tips", r.Title)
	assert.Equal(t, http.StatusOK, r.HTTPStatus)
	assert.Equal(t, "text/html; charset=utf-8", r.ContentType)
	assert.Equal(t, "primary", r.Identity)
	assert.Empty(t, r.Restriction)
	assert.Equal(t, "<h1>Go Tips</h1><p>hello</p>", r.SanitizedHTML)
	assert.Equal(t, []fetch.Identity{fetch.IdentityPrimary}, f.Calls())
}

func TestPipeline_RestrictedPrimaryUsesFallbackOnce(t *testing.T) {
	f := &fakeFetcher{pages: map[fetch.Identity]*models.RawPage{
		fetch.IdentityPrimary:  paywalledPage("Locked-CSDN博客"),
		fetch.IdentityFallback: normalPage("Full-CSDN博客", "<p>full text</p>"),
	}}
	r := newTestPipeline(f).Run(context.Background(), models.Task{URL: articleURL})

	assertResultShape(t, r)
	assert.True(t, r.Success)
	assert.Equal(t, "Full", r.Title, "title comes from the last fetched page")
	assert.Equal(t, "fallback", r.Identity)
	assert.Equal(t, "paywall", r.Restriction)
	assert.Contains(t, r.SanitizedHTML, "full text")
	assert.Equal(t, []fetch.Identity{fetch.IdentityPrimary, fetch.IdentityFallback}, f.Calls())
}

func TestPipeline_FallbackStillRestrictedIsExtractedAnyway(t *testing.T) {
	f := &fakeFetcher{pages: map[fetch.Identity]*models.RawPage{
		fetch.IdentityPrimary:  {StatusCode: 200, Body: "<html><body>nothing</body></html>"},
		fetch.IdentityFallback: {StatusCode: 200, Body: "<html><body>still nothing</body></html>", FinalTitle: "X"},
	}}
	r := newTestPipeline(f).Run(context.Background(), models.Task{URL: articleURL})

	assertResultShape(t, r)
	assert.True(t, r.Success)
	assert.Contains(t, r.SanitizedHTML, process.PlaceholderFragment)
	assert.Equal(t, "missing", r.Restriction)
	assert.Len(t, f.Calls(), 2, "at most one fallback attempt")
}

func TestPipeline_FailureModes(t *testing.T) {
	netErr := fmt.Errorf("%w: dial tcp: connection refused", utils.ErrNetwork)

	tests := []struct {
		name          string
		fetcher       *fakeFetcher
		wantStatus    int
		wantExists    bool
		wantErrSubstr string
		wantCalls     int
	}{
		{
			name:          "primary network error",
			fetcher:       &fakeFetcher{errs: map[fetch.Identity]error{fetch.IdentityPrimary: netErr}},
			wantStatus:    500,
			wantExists:    true,
			wantErrSubstr: "connection refused",
			wantCalls:     1,
		},
		{
			name: "primary 404",
			fetcher: &fakeFetcher{pages: map[fetch.Identity]*models.RawPage{
				fetch.IdentityPrimary: {StatusCode: 404, Body: "<html></html>"},
			}},
			wantStatus:    404,
			wantExists:    false,
			wantErrSubstr: NotFoundMessage,
			wantCalls:     1,
		},
		{
			name: "fallback network error",
			fetcher: &fakeFetcher{
				pages: map[fetch.Identity]*models.RawPage{fetch.IdentityPrimary: paywalledPage("T")},
				errs:  map[fetch.Identity]error{fetch.IdentityFallback: netErr},
			},
			wantStatus:    500,
			wantExists:    true,
			wantErrSubstr: "network error",
			wantCalls:     2,
		},
		{
			name: "fallback 404",
			fetcher: &fakeFetcher{pages: map[fetch.Identity]*models.RawPage{
				fetch.IdentityPrimary:  paywalledPage("T"),
				fetch.IdentityFallback: {StatusCode: 404, Body: ""},
			}},
			wantStatus:    404,
			wantExists:    false,
			wantErrSubstr: NotFoundMessage,
			wantCalls:     2,
		},
		{
			name: "primary 503 challenge page, fallback 503",
			fetcher: &fakeFetcher{pages: map[fetch.Identity]*models.RawPage{
				fetch.IdentityPrimary:  errorPage(503),
				fetch.IdentityFallback: errorPage(503),
			}},
			wantStatus:    503,
			wantExists:    true,
			wantErrSubstr: "HTTP 503 Service Unavailable",
			wantCalls:     2,
		},
		{
			name: "primary 403, fallback 403",
			fetcher: &fakeFetcher{pages: map[fetch.Identity]*models.RawPage{
				fetch.IdentityPrimary:  errorPage(403),
				fetch.IdentityFallback: errorPage(403),
			}},
			wantStatus:    403,
			wantExists:    true,
			wantErrSubstr: "HTTP 403 Forbidden",
			wantCalls:     2,
		},
		{
			name: "paywalled primary, fallback 503",
			fetcher: &fakeFetcher{pages: map[fetch.Identity]*models.RawPage{
				fetch.IdentityPrimary:  paywalledPage("T"),
				fetch.IdentityFallback: errorPage(503),
			}},
			wantStatus:    503,
			wantExists:    true,
			wantErrSubstr: "HTTP 503",
			wantCalls:     2,
		},
		{
			name: "primary 500 with article markup, no fallback",
			fetcher: &fakeFetcher{pages: map[fetch.Identity]*models.RawPage{
				fetch.IdentityPrimary: func() *models.RawPage { p := normalPage("T", "<p>x</p>"); p.StatusCode = 500; return p }(),
			}},
			wantStatus:    500,
			wantExists:    true,
			wantErrSubstr: "HTTP 500 Internal Server Error",
			wantCalls:     1,
		},
		{
			name: "primary 521 unknown status text",
			fetcher: &fakeFetcher{pages: map[fetch.Identity]*models.RawPage{
				fetch.IdentityPrimary:  errorPage(521),
				fetch.IdentityFallback: errorPage(521),
			}},
			wantStatus:    521,
			wantExists:    true,
			wantErrSubstr: "HTTP 521",
			wantCalls:     2,
		},
		{
			name:          "panic recovered",
			fetcher:       &fakeFetcher{panic: true},
			wantStatus:    500,
			wantExists:    true,
			wantErrSubstr: "panic: fetcher exploded",
			wantCalls:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestPipeline(tt.fetcher).Run(context.Background(), models.Task{Seq: 2, URL: articleURL})
			assertResultShape(t, r)
			assert.False(t, r.Success)
			assert.Equal(t, tt.wantStatus, r.HTTPStatus)
			assert.Equal(t, tt.wantExists, r.ItemExists)
			assert.Contains(t, r.Error, tt.wantErrSubstr)
			assert.Equal(t, 2, r.Seq)
			assert.Equal(t, articleURL, r.URL)
			assert.Len(t, tt.fetcher.Calls(), tt.wantCalls)
		})
	}
}

func TestPipeline_ExtractionErrorIs500(t *testing.T) {
	f := &fakeFetcher{pages: map[fetch.Identity]*models.RawPage{
		fetch.IdentityPrimary: normalPage("T", "<p>x</p>"),
	}}
	r := NewPipeline(f, failingExtractor{}, testLogger()).Run(context.Background(), models.Task{URL: articleURL})

	assertResultShape(t, r)
	assert.False(t, r.Success)
	assert.Equal(t, 500, r.HTTPStatus)
	assert.True(t, r.ItemExists)
	assert.Contains(t, r.Error, "content extraction failed")
}

func TestPipeline_ElapsedCoversWholeRun(t *testing.T) {
	f := &fakeFetcher{
		delay: 20 * time.Millisecond,
		pages: map[fetch.Identity]*models.RawPage{
			fetch.IdentityPrimary:  paywalledPage("T"),
			fetch.IdentityFallback: normalPage("T", "<p>ok</p>"),
		},
	}
	r := newTestPipeline(f).Run(context.Background(), models.Task{URL: articleURL})
	require.True(t, r.Success)
	assert.GreaterOrEqual(t, r.ElapsedMillis, int64(40))
}

func TestPipeline_NetworkErrorMessageKeepsTransportDescription(t *testing.T) {
	f := &fakeFetcher{errs: map[fetch.Identity]error{
		fetch.IdentityPrimary: fmt.Errorf("%w: %w", utils.ErrNetwork, errors.New("lookup blog.csdn.net: no such host")),
	}}
	r := newTestPipeline(f).Run(context.Background(), models.Task{URL: articleURL})
	assert.Equal(t, "network error: lookup blog.csdn.net: no such host", r.Error)
}

func TestPipeline_FetchTimeoutIsFailureWithTimeoutDescription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Stall until the client gives up
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	cfg := &config.AppConfig{Timeout: 100 * time.Millisecond}
	_, _ = cfg.Validate()
	fetcher := fetch.NewFetcher(fetch.NewClient(cfg.HTTPClientSettings, testLogger()), cfg, nil, testLogger())

	url := server.URL + "/u/article/details/9"
	r := newTestPipeline(fetcher).Run(context.Background(), models.Task{Seq: 0, URL: url})

	assertResultShape(t, r)
	assert.False(t, r.Success)
	assert.Equal(t, http.StatusInternalServerError, r.HTTPStatus)
	assert.True(t, r.ItemExists)
	assert.Equal(t, models.ResultStatusFailure, r.Status())
	assert.Contains(t, r.Error, "network error")
	assert.Contains(t, r.Error, "context deadline exceeded")
	assert.Less(t, r.ElapsedMillis, int64(2000))
}
