package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"

	"yt-analytics/shared/config"
	"yt-analytics/shared/logger"
)

func newOAuthConfig(cfg *config.YouTubeConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{youtube.YoutubeReadonlyScope},
		Endpoint:     google.Endpoint,
	}
}

// tokenSaver wraps the OAuth token source and persists refreshed tokens so
// they survive restarts.
type tokenSaver struct {
	config    *oauth2.Config
	token     *oauth2.Token
	tokenFile string
	log       logger.Logger
	mu        sync.Mutex
}

// Token implements oauth2.TokenSource.
func (ts *tokenSaver) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	newToken, err := ts.config.TokenSource(context.Background(), ts.token).Token()
	if err != nil {
		return nil, err
	}

	if newToken.AccessToken != ts.token.AccessToken {
		ts.log.Info("Token refreshed, saving to file", logger.String("path", ts.tokenFile))
		ts.token = newToken
		if err := saveToken(ts.tokenFile, newToken); err != nil {
			ts.log.Warn("Failed to save refreshed token", logger.Error(err))
		}
	}

	return newToken, nil
}

// getToken loads a stored token, keeping expired ones that can still be
// refreshed, and falls back to the device authorization flow.
func getToken(ctx context.Context, config *oauth2.Config, tokenFile string, prompt io.Writer, log logger.Logger) (*oauth2.Token, error) {
	tok, err := tokenFromFile(tokenFile)
	if err == nil {
		if tok.RefreshToken != "" {
			log.Info("Loaded token from file", logger.Time("expires", tok.Expiry))
			return tok, nil
		}
		if tok.Valid() {
			return tok, nil
		}
	}

	log.Info("Requesting new token via device authorization")
	tok, err = getTokenWithDeviceFlow(ctx, config, prompt)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			log.Error("Device authorization response failed",
				logger.String("status", retrieveErr.Response.Status),
				logger.String("body", strings.TrimSpace(string(retrieveErr.Body))),
			)
		}
		return nil, fmt.Errorf("device authorization failed: %w (the OAuth client must be of type 'TVs and Limited Input devices' with the YouTube Data API v3 enabled)", err)
	}

	if err := saveToken(tokenFile, tok); err != nil {
		log.Warn("Failed to save token", logger.Error(err))
	}
	return tok, nil
}

func getTokenWithDeviceFlow(ctx context.Context, config *oauth2.Config, prompt io.Writer) (*oauth2.Token, error) {
	resp, err := config.DeviceAuth(ctx, oauth2.AccessTypeOffline)
	if err != nil {
		return nil, fmt.Errorf("unable to start device authorization: %w", err)
	}

	rule := strings.Repeat("=", 80)
	fmt.Fprintf(prompt, "\n%s\nYOUTUBE DEVICE AUTHORIZATION REQUIRED\n%s\n", rule, rule)
	fmt.Fprintf(prompt, "1. Visit %s in your browser (any device works).\n", resp.VerificationURI)
	fmt.Fprintf(prompt, "2. Enter this code when prompted: %s\n\n", resp.UserCode)
	if completeURL := strings.TrimSpace(resp.VerificationURIComplete); completeURL != "" {
		fmt.Fprintf(prompt, "   Or open directly: %s\n\n", completeURL)
	}
	fmt.Fprintf(prompt, "Waiting for authorization to complete... (Ctrl+C to cancel)\n")

	tok, err := config.DeviceAccessToken(ctx, resp, oauth2.AccessTypeOffline)
	if err != nil {
		return nil, fmt.Errorf("device authorization did not complete: %w", err)
	}

	fmt.Fprintf(prompt, "\nAuthorization successful.\n%s\n\n", rule)
	return tok, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("unable to create token directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode oauth token: %w", err)
	}
	return nil
}
