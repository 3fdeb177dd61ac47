package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/article-dl/pkg/config"
	"github.com/Sriram-PR/article-dl/pkg/models"
	"github.com/Sriram-PR/article-dl/pkg/utils"
)

// Referer sent with every request
const Referer = "https://blog.csdn.net/"

// Fetcher performs single GET attempts under a chosen Identity.
// It never retries; the pipeline decides whether a second attempt is worth making.
type Fetcher struct {
	client       *http.Client
	profiles     map[Identity]Profile
	creds        config.Credentials
	timeout      time.Duration
	maxBodyBytes int64
	log          *logrus.Entry
}

// NewFetcher creates a Fetcher bound to the shared client and the read-only credentials
// Zero values in an unvalidated config fall back to the defaults.
func NewFetcher(client *http.Client, cfg *config.AppConfig, creds config.Credentials, log *logrus.Entry) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	primaryUA, fallbackUA := cfg.UserAgent, cfg.FallbackUserAgent
	if primaryUA == "" {
		primaryUA = config.DefaultUserAgent
	}
	if fallbackUA == "" {
		fallbackUA = config.DefaultFallbackUserAgent
	}
	return &Fetcher{
		client: client,
		profiles: map[Identity]Profile{
			IdentityPrimary:  {UserAgent: primaryUA, SendCookies: true},
			IdentityFallback: {UserAgent: fallbackUA, SendCookies: false},
		},
		creds:        creds,
		timeout:      timeout,
		maxBodyBytes: cfg.MaxPageSizeBytes,
		log:          log,
	}
}

// Profile returns the header profile bound to an identity
func (f *Fetcher) Profile(id Identity) Profile {
	return f.profiles[id]
}

// Fetch issues one GET for rawURL using the given identity.
// Any HTTP status yields a RawPage; only transport failures (DNS, refused, timeout, body read) return an error, wrapping utils.ErrNetwork.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, id Identity) (*models.RawPage, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", utils.ErrNetwork, utils.ErrRequestCreation, err)
	}
	f.applyProfile(req, id)

	reqLog := f.log.WithFields(logrus.Fields{"url": rawURL, "identity": id.String()})
	reqLog.Debug("Fetching")

	resp, err := f.client.Do(req)
	if err != nil {
		reqLog.Warnf("Transport failure: %v", err)
		return nil, fmt.Errorf("%w: %w", utils.ErrNetwork, err)
	}

	body, err := readBody(resp, f.maxBodyBytes)
	if err != nil {
		reqLog.Warnf("Body read failure: %v", err)
		return nil, fmt.Errorf("%w: %w", utils.ErrNetwork, err)
	}

	page := &models.RawPage{
		StatusCode:  resp.StatusCode,
		Body:        string(body),
		FinalTitle:  documentTitle(body),
		ContentType: resp.Header.Get("Content-Type"),
	}
	reqLog.WithFields(logrus.Fields{"status_code": page.StatusCode, "bytes": len(body)}).Debug("Fetched")
	return page, nil
}

func (f *Fetcher) applyProfile(req *http.Request, id Identity) {
	profile := f.Profile(id)
	req.Header.Set("User-Agent", profile.UserAgent)
	req.Header.Set("Referer", Referer)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	if !profile.SendCookies || len(f.creds) == 0 {
		return
	}
	names := make([]string, 0, len(f.creds))
	for name := range f.creds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		req.AddCookie(&http.Cookie{Name: name, Value: f.creds[name]})
	}
}

// documentTitle returns the trimmed <title> text of body, or "" if it cannot be parsed
func documentTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
