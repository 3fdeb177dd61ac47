package config

import (
	"errors"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Credentials is a read-only cookie-name to value map attached to primary-identity requests
type Credentials map[string]string

// ParseCookieString parses a semicolon-delimited "name=value" header string.
// Segments without '=' are skipped; names and values are trimmed; later duplicates win.
func ParseCookieString(raw string) Credentials {
	creds := make(Credentials)
	if !strings.Contains(raw, "=") {
		return creds
	}
	for _, part := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		creds[name] = strings.TrimSpace(value)
	}
	return creds
}

// LoadCredentials reads a cookie file once at startup. A missing or unreadable file yields an empty map.
func LoadCredentials(path string, log *logrus.Entry) Credentials {
	if path == "" {
		return Credentials{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Infof("No cookie file at '%s', requests will carry no session cookies", path)
		} else {
			log.Errorf("Failed to read cookie file '%s': %v", path, err)
		}
		return Credentials{}
	}
	creds := ParseCookieString(string(data))
	log.Infof("Loaded %d cookies from '%s'", len(creds), path)
	return creds
}
