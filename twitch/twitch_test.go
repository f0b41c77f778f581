package twitch

import (
	"context"
	"embed"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

type reqspy struct {
	// got is the first request the round tripper received.
	got *http.Request
	// respond is the response the round tripper returns.
	respond *http.Response
}

func (r *reqspy) RoundTrip(req *http.Request) (*http.Response, error) {
	if r.got != nil {
		return nil, errors.New("already have a request")
	}
	r.got = req
	return r.respond, nil
}

//go:embed testdata/*.json
var jsonFiles embed.FS

// apiresp creates a reqspy responding with the given testdata document.
func apiresp(status int, file string) *reqspy {
	f, err := jsonFiles.Open(path.Join("testdata/", file))
	if err != nil {
		panic(err)
	}
	return &reqspy{
		respond: &http.Response{
			StatusCode: status,
			Body:       f,
		},
	}
}

// textresp creates a reqspy responding with a fixed body.
func textresp(status int, body string) *reqspy {
	return &reqspy{
		respond: &http.Response{
			StatusCode: status,
			Status:     http.StatusText(status),
			Body:       io.NopCloser(strings.NewReader(body)),
		},
	}
}

func TestReqJSON(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		spy := textresp(200, `{"data":1}`)
		cl := Client{
			HTTP: &http.Client{Transport: spy},
			ID:   "alice",
		}
		tok := &oauth2.Token{AccessToken: "carol"}
		var u int
		err := reqjson(context.Background(), cl, tok, "GET", "https://complements.example/x", &u)
		if err != nil {
			t.Errorf("failed to request: %v", err)
		}
		if u != 1 {
			t.Errorf("didn't get the result: want 1, got %d", u)
		}
		if got := spy.got.URL.String(); got != "https://complements.example/x" {
			t.Errorf(`request went to the wrong place: want "https://complements.example/x", got %q`, got)
		}
		if got := spy.got.Header.Get("Authorization"); got != "Bearer carol" {
			t.Errorf(`wrong authorization: want "Bearer carol", got %q`, got)
		}
		if got := spy.got.Header.Get("Client-Id"); got != "alice" {
			t.Errorf(`wrong client-id: want "alice", got %q`, got)
		}
	})
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"expired", 401, ErrNeedRefresh},
		{"malformed", 400, ErrBadRequest},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			spy := textresp(c.status, `{"error":"nope"}`)
			cl := Client{HTTP: &http.Client{Transport: spy}, ID: "alice"}
			tok := &oauth2.Token{AccessToken: "carol"}
			var u int
			err := reqjson(context.Background(), cl, tok, "GET", "https://complements.example/x", &u)
			if !errors.Is(err, c.want) {
				t.Errorf("wrong error: want %v, got %v", c.want, err)
			}
		})
	}
	t.Run("server", func(t *testing.T) {
		spy := textresp(503, `down`)
		cl := Client{HTTP: &http.Client{Transport: spy}, ID: "alice"}
		tok := &oauth2.Token{AccessToken: "carol"}
		var u int
		err := reqjson(context.Background(), cl, tok, "GET", "https://complements.example/x", &u)
		if err == nil {
			t.Fatal("expected an error")
		}
		if errors.Is(err, ErrNeedRefresh) || errors.Is(err, ErrBadRequest) {
			t.Errorf("server error classified as %v", err)
		}
	})
}

func TestAPIURL(t *testing.T) {
	cases := []struct {
		name string
		base string
		want string
	}{
		{"default", "", "https://api.twitch.tv/helix/users?login=alice&login=bob"},
		{"custom", "http://127.0.0.1:1234/", "http://127.0.0.1:1234/helix/users?login=alice&login=bob"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cl := Client{Base: c.base}
			got := cl.apiurl("/helix/users", map[string][]string{"login": {"alice", "bob"}})
			if got != c.want {
				t.Errorf("wrong url: want %q, got %q", c.want, got)
			}
		})
	}
}
