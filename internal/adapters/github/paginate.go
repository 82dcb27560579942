package github

import (
	"context"
	"io"
	"net/http"

	perr "codefrog/internal/platform/errors"
)

// ForEachPage fetches path and every rel next page after it, handing each raw
// body to fn. When retries are exhausted mid stream the pages already handed
// out stand, ingestion is idempotent and picks up the rest on the next run.
// Permanent provider answers (404, 401) surface to the caller.
func (c *Client) ForEachPage(ctx context.Context, path string, auth Auth, fn func(body []byte) error) error {
	url := path
	for url != "" {
		resp, err := c.Do(ctx, http.MethodGet, url, auth)
		if err != nil {
			if IsPermanent(err) || ctx.Err() != nil {
				return err
			}
			c.log.Warn().Str("url", url).Err(err).Msg("pagination aborted, partial stream kept")
			return nil
		}

		b, readErr := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		next := nextLink(resp.Header)
		_ = resp.Body.Close()
		if readErr != nil {
			return perr.Wrapf(readErr, perr.ErrorCodeUnavailable, "read page body")
		}

		if err := fn(b); err != nil {
			return err
		}
		url = next
	}
	return nil
}
