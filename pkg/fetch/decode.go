package fetch

import (
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/Sriram-PR/article-dl/pkg/utils"
)

// readBody decodes the response according to Content-Encoding and reads at most maxBytes.
// Closes the response body.
func readBody(resp *http.Response, maxBytes int64) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, fmt.Errorf("%w: empty response", utils.ErrResponseBodyRead)
	}

	reader := io.Reader(resp.Body)
	closers := []io.Closer{resp.Body}

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: gzip decode: %w", utils.ErrResponseBodyRead, err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		reader = fl
		closers = append(closers, fl)
	}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	if maxBytes <= 0 {
		body, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", utils.ErrResponseBodyRead, err)
		}
		return body, nil
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrResponseBodyRead, err)
	}
	if int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("%w: body exceeds limit of %d bytes", utils.ErrResponseBodyRead, maxBytes)
	}
	return body, nil
}
