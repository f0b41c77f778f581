package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-json-experiment/json"
	"golang.org/x/oauth2"
)

// TwitchEndpoint is the OAuth2 endpoint for Twitch app access tokens.
var TwitchEndpoint = oauth2.Endpoint{
	TokenURL: "https://id.twitch.tv/oauth2/token",
}

type ccf struct {
	mu  sync.Mutex
	cur *oauth2.Token
	// flows counts completed grants.
	flows int

	cfg    oauth2.Config
	client *http.Client
	// onRefresh is called after each completed flow.
	onRefresh func()
}

// ClientCredentialsFlow creates a TokenSource which retrieves app access
// tokens through the client credentials grant flow.
// If client is nil, [http.DefaultClient] is used instead.
// If onRefresh is non-nil, it is called each time a new token is obtained.
func ClientCredentialsFlow(cfg oauth2.Config, client *http.Client, onRefresh func()) TokenSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &ccf{
		cfg:       cfg,
		client:    client,
		onRefresh: onRefresh,
	}
}

func (c *ccf) Token(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur != nil {
		return c.cur, nil
	}
	return c.flowLocked(ctx)
}

func (c *ccf) Refresh(ctx context.Context, old *oauth2.Token) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur != nil && !Equal(c.cur, old) {
		return c.cur, nil
	}
	return c.flowLocked(ctx)
}

func (c *ccf) flowLocked(ctx context.Context) (*oauth2.Token, error) {
	// The client credentials flow has no refresh token, so each renewal is a
	// fresh grant.
	v := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"grant_type":    {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.Endpoint.TokenURL, strings.NewReader(v.Encode()))
	if err != nil {
		return nil, fmt.Errorf("couldn't create client credentials request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client credentials request failed: %w", err)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("couldn't read token response body: %w", err)
	}
	var d struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
		Message     string `json:"message"`
		Status      int    `json:"status"`
	}
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("couldn't decode token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("client credentials grant failed: %s (%s)", d.Message, resp.Status)
	}
	tok := &oauth2.Token{
		AccessToken: d.AccessToken,
		TokenType:   d.TokenType,
	}
	if d.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(d.ExpiresIn) * time.Second)
	}
	c.cur = tok
	c.flows++
	slog.InfoContext(ctx, "obtained app access token", slog.Int("flows", c.flows), slog.Time("expiry", tok.Expiry))
	if c.onRefresh != nil {
		c.onRefresh()
	}
	return c.cur, nil
}
