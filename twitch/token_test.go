package twitch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"
)

func TestValidate(t *testing.T) {
	var mux http.ServeMux
	mux.HandleFunc("GET /oauth2/validate", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "OAuth carol" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"status":401,"message":"invalid access token"}`)
			return
		}
		io.WriteString(w, `{"client_id":"alice","login":"complementsbot","scopes":["chat:read","chat:edit"],"user_id":"845759020","expires_in":5520838}`)
	})
	srv := httptest.NewServer(&mux)
	t.Cleanup(srv.Close)
	cl := Client{HTTP: srv.Client(), Identity: srv.URL}

	v, err := Validate(context.Background(), cl, &oauth2.Token{AccessToken: "carol"})
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if v.Login != "complementsbot" || v.UserID != "845759020" {
		t.Errorf("wrong identity: got %q/%q", v.Login, v.UserID)
	}

	_, err = Validate(context.Background(), cl, &oauth2.Token{AccessToken: "mallory"})
	if !errors.Is(err, ErrNeedRefresh) {
		t.Errorf("bad token didn't give ErrNeedRefresh: %v", err)
	}
}
