package github

import (
	"context"
	"sync"
	"time"
)

// Installation tokens live for an hour, refresh with headroom
const tokenRefreshMargin = 10 * time.Minute

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// TokenSource mints installation access tokens from app credentials and
// caches them per installation until shortly before expiry
type TokenSource struct {
	c     *Client
	appID string
	key   []byte
	now   func() time.Time

	mu    sync.Mutex
	cache map[int64]cachedToken
}

// NewTokenSource returns a TokenSource for the given app credentials
func NewTokenSource(c *Client, appID string, pemKey []byte) *TokenSource {
	return &TokenSource{
		c:     c,
		appID: appID,
		key:   pemKey,
		now:   time.Now,
		cache: map[int64]cachedToken{},
	}
}

// Token returns a valid installation access token, minting one when the
// cached token is missing or close to expiry
func (t *TokenSource) Token(ctx context.Context, installationID int64) (string, error) {
	t.mu.Lock()
	cached, ok := t.cache[installationID]
	t.mu.Unlock()
	if ok && t.now().Before(cached.expiresAt) {
		return cached.token, nil
	}

	appJWT, err := AppJWT(t.appID, t.key, t.now())
	if err != nil {
		return "", err
	}
	tok, err := t.c.InstallationToken(ctx, appJWT, installationID)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	t.cache[installationID] = cachedToken{
		token:     tok,
		expiresAt: t.now().Add(time.Hour - tokenRefreshMargin),
	}
	t.mu.Unlock()
	return tok, nil
}
