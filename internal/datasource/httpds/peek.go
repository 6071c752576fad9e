package httpds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrBodyTooLarge is returned when a response body exceeds the read limit.
var ErrBodyTooLarge = errors.New("httpds: response body too large")

// ReadLimited reads at most limit bytes from r. A body longer than limit is
// an error rather than a silent truncation, since a cut-off page would parse
// as a page with missing fields.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("httpds: limit must be > 0")
	}
	// one extra byte tells an exact-size body from an oversized one
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, ErrBodyTooLarge
	}
	return b, nil
}

// Fetch performs a GET and returns the whole body, capped at limit bytes.
func (c *Client) Fetch(ctx context.Context, url string, limit int64) ([]byte, error) {
	resp, err := c.Do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := ReadLimited(resp.Body, limit)
	if err != nil {
		return nil, fmt.Errorf("httpds: read %s: %w", url, err)
	}
	return b, nil
}
