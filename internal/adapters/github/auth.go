package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	perr "codefrog/internal/platform/errors"

	"github.com/golang-jwt/jwt/v5"
)

// machineManPreview is required by the installation token endpoint
const machineManPreview = "application/vnd.github.machine-man-preview+json"

// AppJWT signs a short lived app level JWT with the configured RSA key.
// Rebuilt on demand, never cached beyond a single request.
func AppJWT(appID string, pemKey []byte, now time.Time) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemKey)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnauthorized, "parse app private key")
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(10 * time.Minute).Unix(),
		"iss": appID,
	})
	signed, err := tok.SignedString(key)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnauthorized, "sign app jwt")
	}
	return signed, nil
}

// InstallationToken exchanges an app JWT for a short lived installation access token
func (c *Client) InstallationToken(ctx context.Context, appJWT string, installationID int64) (string, error) {
	path := fmt.Sprintf("/app/installations/%d/access_tokens", installationID)
	resp, err := c.Do(ctx, http.MethodPost, path, BearerAuth(appJWT), WithAccept(machineManPreview))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var out struct {
		Token string `json:"token"`
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(b, &out); err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeJSON, "decode installation token")
	}
	if out.Token == "" {
		return "", perr.Unauthorizedf("installation token response had no token")
	}
	return out.Token, nil
}

// UserToken exchanges an OAuth code and state for a user access token
func (c *Client) UserToken(ctx context.Context, clientID, clientSecret, code, state string) (string, error) {
	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"code":          {code},
		"state":         {state},
	}
	u := c.opts.OAuthBaseURL + "/login/oauth/access_token"
	resp, err := c.Do(ctx, http.MethodPost, u, Auth{}, WithForm(form))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	vals, err := url.ParseQuery(string(b))
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnauthorized, "decode oauth response")
	}
	tok := vals.Get("access_token")
	if tok == "" {
		return "", perr.Unauthorizedf("oauth exchange returned no access_token")
	}
	return tok, nil
}
