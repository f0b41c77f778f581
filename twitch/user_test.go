package twitch

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/oauth2"
)

func TestUsers(t *testing.T) {
	want := User{
		ID:              "141981764",
		Login:           "twitchdev",
		DisplayName:     "TwitchDev",
		Type:            "",
		BroadcasterType: "partner",
		Description:     "Supporting third-party developers building Twitch integrations from chatbots to game integrations.",
		ProfileImageURL: "https://static-cdn.jtvnw.net/jtv_user_pictures/8a6381c7-d0c0-4576-b179-38bd5ce1d6af-profile_image-300x300.png",
		OfflineImageURL: "https://static-cdn.jtvnw.net/jtv_user_pictures/3f13ab61-ec78-4fe6-8481-8682cb3b0ac2-channel_offline_image-1920x1080.png",
		ViewCount:       5980557,
		Email:           "not-real@email.com",
		CreatedAt:       "2016-12-14T20:32:28Z",
	}
	cases := []struct {
		name  string
		get   func(context.Context, Client, *oauth2.Token, ...string) ([]User, error)
		keys  []string
		query string
	}{
		{"login", UsersByLogin, []string{"twitchdev", "nobody"}, "login=twitchdev&login=nobody"},
		{"id", UsersByID, []string{"141981764"}, "id=141981764"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			spy := apiresp(200, "users.json")
			cl := Client{HTTP: &http.Client{Transport: spy}, ID: "alice"}
			tok := &oauth2.Token{AccessToken: "carol"}
			u, err := c.get(context.Background(), cl, tok, c.keys...)
			if err != nil {
				t.Fatal(err)
			}
			if got := spy.got.URL.Path; got != "/helix/users" {
				t.Errorf("wrong path: want /helix/users, got %q", got)
			}
			if got := spy.got.URL.RawQuery; got != c.query {
				t.Errorf("wrong query: want %q, got %q", c.query, got)
			}
			if len(u) != 1 {
				t.Fatalf("wrong number of results: want 1, got %d", len(u))
			}
			if diff := cmp.Diff(want, u[0]); diff != "" {
				t.Errorf("wrong result (-want +got):\n%s", diff)
			}
		})
	}
}
