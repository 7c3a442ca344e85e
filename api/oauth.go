package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"levant/models"
	"levant/service"

	"golang.org/x/oauth2"
)

const discordMeURL = "https://discord.com/api/users/@me"

// discordEndpoint is Discord's OAuth2 endpoint pair
var discordEndpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/oauth2/authorize",
	TokenURL: "https://discord.com/api/oauth2/token",
}

// IdentityProvider resolves an OAuth2 authorization code to the
// authenticating user's identity.
type IdentityProvider interface {
	Exchange(ctx context.Context, code string) (*models.Identity, error)
}

// discordIdentityProvider implements the code-for-identity exchange against
// Discord's OAuth2 token endpoint and /users/@me.
type discordIdentityProvider struct {
	oauth *oauth2.Config
}

// NewDiscordIdentityProvider creates the production identity provider
func NewDiscordIdentityProvider(clientID, clientSecret, redirectURL string) IdentityProvider {
	return &discordIdentityProvider{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"identify"},
			Endpoint:     discordEndpoint,
		},
	}
}

func (p *discordIdentityProvider) Exchange(ctx context.Context, code string) (*models.Identity, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discordMeURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build identity request: %w", err)
	}

	resp, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch identity: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity endpoint returned status %d", resp.StatusCode)
	}

	var payload struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Avatar   string `json:"avatar"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode identity response: %w", err)
	}

	discordID, err := strconv.ParseInt(payload.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("identity carried malformed ID %q: %w", payload.ID, err)
	}

	return &models.Identity{
		DiscordID: discordID,
		Username:  payload.Username,
		Avatar:    payload.Avatar,
	}, nil
}

// identityAvatarURL resolves the CDN URL for an identity's avatar hash,
// falling back to the default embed avatar for users without one.
func identityAvatarURL(identity *models.Identity) string {
	if identity.Avatar == "" {
		return service.DefaultAvatarURL
	}
	return fmt.Sprintf("https://cdn.discordapp.com/avatars/%d/%s.png", identity.DiscordID, identity.Avatar)
}
