package parse

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAcceptable(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected bool
	}{
		{"article url", "https://blog.csdn.net/u/article/details/123", true},
		{"surrounding whitespace", "  https://blog.csdn.net/u/article/details/123 \t", true},
		{"missing article path", "https://example.com/u/article/details/123", false},
		{"missing site marker", "https://blog.csdn.net/u/123", false},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"loose substring match", "csdn.net.evil.org/article/details/9", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsAcceptable(tt.line))
		})
	}
}

func TestArticleID(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"https://blog.csdn.net/u/article/details/123", "123"},
		{"https://blog.csdn.net/u/article/details/456789?spm=1001", "456789"},
		{"https://blog.csdn.net/u/article/details/42/", "42"},
		{"https://blog.csdn.net/u/article/details/", ""},
		{"https://blog.csdn.net/u/123", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, ArticleID(tt.raw))
		})
	}
}

func TestAcceptedLines_KeepsOrderAndDuplicates(t *testing.T) {
	in := []string{
		"https://blog.csdn.net/a/article/details/2",
		"junk",
		"",
		" https://blog.csdn.net/a/article/details/1 ",
		"https://blog.csdn.net/a/article/details/2",
	}
	assert.Equal(t, []string{
		"https://blog.csdn.net/a/article/details/2",
		"https://blog.csdn.net/a/article/details/1",
		"https://blog.csdn.net/a/article/details/2",
	}, AcceptedLines(in))
}

func TestValidateLines(t *testing.T) {
	r := ValidateLines([]string{
		"https://blog.csdn.net/a/article/details/1",
		"",
		"https://example.com/x",
		"  ",
		"not a url",
	})
	assert.Equal(t, 1, r.Valid)
	assert.Equal(t, 2, r.Invalid)
	assert.Equal(t, []string{"https://example.com/x", "not a url"}, r.InvalidLines)
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "https://blog.csdn.net/u/article/details/1", "https://blog.csdn.net/u/article/details/1"},
		{"http upgraded", "http://blog.csdn.net/u/article/details/1", "https://blog.csdn.net/u/article/details/1"},
		{"case and default port", "HTTPS://Blog.CSDN.net:443/u/article/details/1", "https://blog.csdn.net/u/article/details/1"},
		{"www dropped", "https://www.csdn.net/article/details/1", "https://csdn.net/article/details/1"},
		{"query and fragment dropped", "https://blog.csdn.net/u/article/details/1?spm=1001.2014#comments", "https://blog.csdn.net/u/article/details/1"},
		{"trailing slash", "https://blog.csdn.net/u/article/details/1//", "https://blog.csdn.net/u/article/details/1"},
		{"non default port kept", "http://localhost:8080/article/details/1", "https://localhost:8080/article/details/1"},
		{"empty path", "https://blog.csdn.net", "https://blog.csdn.net/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, NormalizeURL(u))
		})
	}
}

func TestNormalizeURL_NilAndInputUntouched(t *testing.T) {
	assert.Equal(t, "", NormalizeURL(nil))

	u, _ := url.Parse("HTTP://Blog.csdn.net/x/?a=1")
	_ = NormalizeURL(u)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "Blog.csdn.net", u.Host)
	assert.Equal(t, "a=1", u.RawQuery)
}

func TestParseAndNormalize(t *testing.T) {
	key, parsed, err := ParseAndNormalize(" https://blog.csdn.net/u/article/details/7?x=1 ")
	require.NoError(t, err)
	assert.Equal(t, "https://blog.csdn.net/u/article/details/7", key)
	assert.Equal(t, "blog.csdn.net", parsed.Host)

	_, _, err = ParseAndNormalize("blog.csdn.net/no-scheme")
	assert.Error(t, err)
}
