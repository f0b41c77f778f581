package twitch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-json-experiment/json"
	"golang.org/x/oauth2"
)

// Validation describes an access token's validation status.
type Validation struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	Scopes    []string `json:"scopes"`
	UserID    string   `json:"user_id"`
	ExpiresIn int      `json:"expires_in"`

	Message string `json:"message"`
	Status  int    `json:"status"`
}

// Validate checks the status of an access token and reports the user it
// belongs to. The chat token is a user token, so this is how the bot learns
// its own login and user ID.
// If the API response indicates that the access token is invalid, the returned
// error wraps [ErrNeedRefresh].
func Validate(ctx context.Context, client Client, tok *oauth2.Token) (*Validation, error) {
	base := client.Identity
	if base == "" {
		base = "https://id.twitch.tv/"
	}
	u, err := url.JoinPath(base, "/oauth2/validate")
	if err != nil {
		return nil, fmt.Errorf("couldn't make validate url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("couldn't make validate request: %w", err)
	}
	// The validate endpoint wants "OAuth" rather than "Bearer".
	req.Header.Set("Authorization", "OAuth "+tok.AccessToken)
	hc := client.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("couldn't validate access token: %w", err)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("couldn't read token validation response: %w", err)
	}
	var s Validation
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("couldn't unmarshal token validation response: %w", err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return &s, nil
	case http.StatusUnauthorized:
		return &s, fmt.Errorf("token validation failed: %s (%w)", s.Message, ErrNeedRefresh)
	default:
		return &s, fmt.Errorf("token validation failed: %s (%s)", s.Message, resp.Status)
	}
}
