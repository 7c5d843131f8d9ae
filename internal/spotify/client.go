// Package spotify provides Spotify Web API integration: a playback observer
// for the listening account and a link lookup provider.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"djfriend/internal/core"
)

const (
	// FilePermission is the permission for token files
	FilePermission = 0600
	// UnknownArtist is the default value when artist name is not available
	UnknownArtist = "Unknown"

	authState = "djfriend-auth-state"
)

// Client is an authenticated user session used to read playback state.
type Client struct {
	config *core.SpotifyConfig
	logger *zap.Logger
	client *spotify.Client
	auth   *spotifyauth.Authenticator
}

type TokenData struct {
	Token *oauth2.Token `json:"token"`
}

func NewClient(config *core.SpotifyConfig, logger *zap.Logger) *Client {
	auth := spotifyauth.New(
		spotifyauth.WithRedirectURL(config.RedirectURL),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserReadCurrentlyPlaying,
			spotifyauth.ScopeUserReadPlaybackState,
		),
		spotifyauth.WithClientID(config.ClientID),
		spotifyauth.WithClientSecret(config.ClientSecret),
	)

	return &Client{
		config: config,
		logger: logger.Named("spotify"),
		auth:   auth,
	}
}

// Authenticate restores the saved user token, falling back to an interactive
// OAuth flow when there is none or it was revoked.
func (c *Client) Authenticate(ctx context.Context) error {
	token, err := c.loadToken()
	if err != nil {
		c.logger.Info("No saved token found, starting OAuth flow")
		return c.startOAuthFlow(ctx)
	}

	client := spotify.New(c.auth.Client(ctx, token))
	c.client = client

	user, err := client.CurrentUser(ctx)
	if err != nil {
		c.logger.Warn("Saved token invalid, starting OAuth flow", zap.Error(err))
		return c.startOAuthFlow(ctx)
	}

	c.logger.Info("Authenticated successfully", zap.String("user", user.DisplayName))
	return nil
}

// PlayerState returns the user's current playback state.
func (c *Client) PlayerState(ctx context.Context, opts ...spotify.RequestOption) (*spotify.PlayerState, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not authenticated")
	}
	return c.client.PlayerState(ctx, opts...)
}

func (c *Client) startOAuthFlow(ctx context.Context) error {
	authURL := c.auth.AuthURL(authState)

	fmt.Printf("Please visit the following URL to authorize the application:\n%s\n", authURL)
	fmt.Print("Enter the authorization code: ")

	var code string
	if _, err := fmt.Scanln(&code); err != nil {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}

	token, err := c.auth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code for token: %w", err)
	}

	if saveErr := c.saveToken(token); saveErr != nil {
		c.logger.Warn("Failed to save token", zap.Error(saveErr))
	}

	client := spotify.New(c.auth.Client(ctx, token))
	c.client = client

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	c.logger.Info("OAuth flow completed successfully", zap.String("user", user.DisplayName))
	return nil
}

func (c *Client) loadToken() (*oauth2.Token, error) {
	return loadToken(c.config.TokenPath)
}

func (c *Client) saveToken(token *oauth2.Token) error {
	return saveToken(c.config.TokenPath, token)
}

func loadToken(path string) (*oauth2.Token, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	var tokenData TokenData
	if err := json.Unmarshal(data, &tokenData); err != nil {
		return nil, err
	}
	if tokenData.Token == nil {
		return nil, fmt.Errorf("token file %s holds no token", path)
	}

	return tokenData.Token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	tokenData := TokenData{Token: token}

	data, err := json.MarshalIndent(tokenData, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, FilePermission)
}
