package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	perr "codefrog/internal/platform/errors"
)

// Issues streams all issues for a repo oldest first, optionally since a start date
func (c *Client) Issues(ctx context.Context, auth Auth, owner, name string, since *time.Time, fn func(Issue) error) error {
	path := fmt.Sprintf("/repos/%s/%s/issues?state=all&sort=created&direction=asc&per_page=100", owner, name)
	if since != nil {
		path += "&since=" + since.UTC().Format(time.RFC3339)
	}
	return c.ForEachPage(ctx, path, auth, func(body []byte) error {
		var page []Issue
		if err := json.Unmarshal(body, &page); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeJSON, "decode issues page")
		}
		for _, it := range page {
			if err := fn(it); err != nil {
				return err
			}
		}
		return nil
	})
}

// Pulls streams closed pull requests most recently updated first
func (c *Client) Pulls(ctx context.Context, auth Auth, owner, name string, fn func(Pull) error) error {
	path := fmt.Sprintf("/repos/%s/%s/pulls?state=closed&sort=updated&direction=desc&per_page=100", owner, name)
	return c.ForEachPage(ctx, path, auth, func(body []byte) error {
		var page []Pull
		if err := json.Unmarshal(body, &page); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeJSON, "decode pulls page")
		}
		for _, it := range page {
			if err := fn(it); err != nil {
				return err
			}
		}
		return nil
	})
}

// Releases streams provider releases for a repo
func (c *Client) Releases(ctx context.Context, auth Auth, owner, name string, fn func(Release) error) error {
	path := fmt.Sprintf("/repos/%s/%s/releases?per_page=100", owner, name)
	return c.ForEachPage(ctx, path, auth, func(body []byte) error {
		var page []Release
		if err := json.Unmarshal(body, &page); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeJSON, "decode releases page")
		}
		for _, it := range page {
			if err := fn(it); err != nil {
				return err
			}
		}
		return nil
	})
}

// RepoByFullName fetches repository metadata by owner and name
func (c *Client) RepoByFullName(ctx context.Context, auth Auth, owner, name string) (Repo, error) {
	path := fmt.Sprintf("/repos/%s/%s", owner, name)
	resp, err := c.Do(ctx, http.MethodGet, path, auth)
	if err != nil {
		return Repo{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	var out Repo
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(b, &out); err != nil {
		return Repo{}, perr.Wrapf(err, perr.ErrorCodeJSON, "decode repository")
	}
	return out, nil
}
