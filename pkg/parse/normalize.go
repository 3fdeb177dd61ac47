package parse

import (
	"net"
	"net/url"
	"strings"
)

// NormalizeURL reduces an article URL to the key used by the result ledger.
// Scheme is forced to https (the site serves both), host is lowercased with default ports and a leading "www." dropped,
// trailing slashes are trimmed and query and fragment are discarded since tracking parameters never change the article.
// Does not modify the input *url.URL
func NormalizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	key := *u

	scheme := strings.ToLower(key.Scheme)
	host := strings.ToLower(key.Host)
	if h, port, err := net.SplitHostPort(host); err == nil {
		if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
			host = h
		}
	}
	key.Host = strings.TrimPrefix(host, "www.")
	if scheme == "http" || scheme == "" {
		scheme = "https"
	}
	key.Scheme = scheme

	key.Path = strings.TrimRight(key.Path, "/")
	if key.Path == "" {
		key.Path = "/"
	}
	key.RawPath = ""
	key.Fragment = ""
	key.RawQuery = ""
	key.ForceQuery = false
	key.User = nil

	return key.String()
}

// ParseAndNormalize parses a trimmed URL string with url.ParseRequestURI and returns its ledger key
func ParseAndNormalize(urlStr string) (string, *url.URL, error) {
	parsed, err := url.ParseRequestURI(strings.TrimSpace(urlStr))
	if err != nil {
		return "", nil, err
	}
	return NormalizeURL(parsed), parsed, nil
}
