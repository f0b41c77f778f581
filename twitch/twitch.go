package twitch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-json-experiment/json"
	"golang.org/x/oauth2"
)

// Client holds the context for requests to the Twitch API.
type Client struct {
	// HTTP is the HTTP client for performing requests.
	// If nil, http.DefaultClient is used.
	HTTP *http.Client
	// ID is the application's client ID.
	ID string
	// Base is the API root. If empty, https://api.twitch.tv/ is used.
	Base string
	// Identity is the root of the OAuth2 service. If empty,
	// https://id.twitch.tv/ is used.
	Identity string
}

// reqjson performs an HTTP request and decodes the response as JSON.
// The response body is truncated to 2 MB.
func reqjson[Resp any](ctx context.Context, client Client, tok *oauth2.Token, method, url string, u *Resp) error {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("couldn't make request: %w", err)
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Client-Id", client.ID)
	hc := client.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("couldn't %s: %w", method, err)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("couldn't read response: %w", err)
	}
	switch resp.StatusCode {
	case http.StatusOK: // do nothing
	case http.StatusUnauthorized:
		return fmt.Errorf("request failed: %s (%w)", b, ErrNeedRefresh)
	case http.StatusBadRequest:
		return fmt.Errorf("request failed: %s (%w)", b, ErrBadRequest)
	default:
		return fmt.Errorf("request failed: %s (%s)", b, resp.Status)
	}
	r := struct {
		Data *Resp `json:"data"`
	}{u}
	if err := json.Unmarshal(b, &r); err != nil {
		return fmt.Errorf("couldn't decode JSON response: %w", err)
	}
	return nil
}

// apiurl creates an API URL for the given endpoint and with the given URL
// parameters.
func (c Client) apiurl(ep string, values url.Values) string {
	base := c.Base
	if base == "" {
		base = "https://api.twitch.tv/"
	}
	u, err := url.JoinPath(base, ep)
	if err != nil {
		panic("twitch: bad url join with " + ep)
	}
	if len(values) == 0 {
		return u
	}
	return u + "?" + values.Encode()
}

// ErrNeedRefresh is an error indicating that the access token needs to be refreshed.
// It must be checked using [errors.Is].
var ErrNeedRefresh = errors.New("need refresh")

// ErrBadRequest is an error indicating that the API rejected the shape of a
// request, e.g. too many or too few query parameters. Retrying the same
// request cannot succeed.
var ErrBadRequest = errors.New("bad request")
