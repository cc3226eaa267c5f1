package fetch

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"

	"scope-crawler/pkg/utils"
)

// AcceptEncoding lists the content codings DecodeBody understands
const AcceptEncoding = "gzip, deflate, br"

// DecodeBody reads resp.Body through its Content-Encoding and closes it.
// Bodies larger than maxBytes after decoding are rejected; maxBytes <= 0 means no cap.
func DecodeBody(resp *http.Response, maxBytes int64) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, fmt.Errorf("%w: empty response", utils.ErrResponseBodyRead)
	}

	reader := io.Reader(resp.Body)
	closers := []io.Closer{resp.Body}
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i].Close()
		}
	}()

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
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

	if maxBytes > 0 {
		reader = io.LimitReader(reader, maxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrResponseBodyRead, err)
	}
	if maxBytes > 0 && int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("%w: body exceeds limit of %d bytes", utils.ErrResponseBodyRead, maxBytes)
	}
	return body, nil
}
