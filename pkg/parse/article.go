package parse

import (
	"strings"
)

const (
	// SiteMarker must appear in every acceptable article URL
	SiteMarker = "csdn.net"
	// ArticlePathMarker identifies the article detail path
	ArticlePathMarker = "/article/details/"
)

// IsAcceptable reports whether a raw input line looks like an article URL.
// The check is a deliberately loose substring test and does not dedupe.
func IsAcceptable(raw string) bool {
	line := strings.TrimSpace(raw)
	return strings.Contains(line, SiteMarker) && strings.Contains(line, ArticlePathMarker)
}

// ArticleID returns the numeric id that follows the article path marker, or "" if there is none
func ArticleID(raw string) string {
	_, rest, found := strings.Cut(strings.TrimSpace(raw), ArticlePathMarker)
	if !found {
		return ""
	}
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	return rest[:end]
}

// AcceptedLines returns the trimmed lines that pass IsAcceptable, in input order
func AcceptedLines(lines []string) []string {
	accepted := make([]string, 0, len(lines))
	for _, line := range lines {
		if IsAcceptable(line) {
			accepted = append(accepted, strings.TrimSpace(line))
		}
	}
	return accepted
}

// Report summarises a validation pass over raw input lines
type Report struct {
	Valid   int
	Invalid int
	// InvalidLines keeps the rejected lines in input order
	InvalidLines []string
}

// ValidateLines counts acceptable and rejected non-empty lines; blank lines are ignored
func ValidateLines(lines []string) Report {
	var r Report
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if IsAcceptable(line) {
			r.Valid++
		} else {
			r.Invalid++
			r.InvalidLines = append(r.InvalidLines, line)
		}
	}
	return r
}
