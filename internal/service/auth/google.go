// internal/service/auth/google.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	xerrors "fieldmapper-service/internal/pkg/errors"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleUserInfo is the payload of the provider's userinfo endpoint.
type GoogleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
}

// GoogleClient exchanges OAuth authorization codes and fetches the extended
// profile. Both the redirect flow (code) and the popup flow (access token)
// end up here.
type GoogleClient struct {
	config      *oauth2.Config
	userInfoURL string
}

func NewGoogleClient(clientID, clientSecret, redirectURL string) *GoogleClient {
	return &GoogleClient{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoints.Google,
		},
		userInfoURL: defaultUserInfoURL,
	}
}

// Exchange trades an authorization code for an access token.
func (g *GoogleClient) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	cfg := *g.config
	if redirectURI != "" {
		cfg.RedirectURL = redirectURI
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrProviderExchange, err)
	}
	return token, nil
}

// FetchUserInfo loads the profile for an access token.
func (g *GoogleClient) FetchUserInfo(ctx context.Context, accessToken string) (*GoogleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrProviderExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo returned %d", xerrors.ErrProviderExchange, resp.StatusCode)
	}

	var info GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}

	if info.Sub == "" || info.Email == "" {
		return nil, fmt.Errorf("%w: userinfo missing sub or email", xerrors.ErrProviderExchange)
	}

	return &info, nil
}
