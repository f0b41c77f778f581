package twitch

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/oauth2"
)

// MaxUsers is the largest number of users that can be requested at once.
const MaxUsers = 100

// User is the response type from https://dev.twitch.tv/docs/api/reference/#get-users.
type User struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	Type            string `json:"type"`
	BroadcasterType string `json:"broadcaster_type"`
	Description     string `json:"description"`
	ProfileImageURL string `json:"profile_image_url"`
	OfflineImageURL string `json:"offline_image_url"`
	ViewCount       int    `json:"view_count"`
	Email           string `json:"email"`
	CreatedAt       string `json:"created_at"`
}

// UsersByLogin gets user information for up to [MaxUsers] login names.
// Logins that do not exist are absent from the result, and the order of the
// result is unspecified.
func UsersByLogin(ctx context.Context, client Client, tok *oauth2.Token, names ...string) ([]User, error) {
	return users(ctx, client, tok, url.Values{"login": names})
}

// UsersByID gets user information for up to [MaxUsers] user IDs.
// IDs that do not exist are absent from the result, and the order of the
// result is unspecified.
func UsersByID(ctx context.Context, client Client, tok *oauth2.Token, ids ...string) ([]User, error) {
	return users(ctx, client, tok, url.Values{"id": ids})
}

func users(ctx context.Context, client Client, tok *oauth2.Token, v url.Values) ([]User, error) {
	u := make([]User, 0, MaxUsers)
	err := reqjson(ctx, client, tok, "GET", client.apiurl("/helix/users", v), &u)
	if err != nil {
		return nil, fmt.Errorf("couldn't get users info: %w", err)
	}
	return u, nil
}
