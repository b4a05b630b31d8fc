package sheets

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

// DefaultCallbackPort is where the interactive flow listens for Google's redirect.
const DefaultCallbackPort = 8080

// ErrAuthTimeout is returned when the browser flow is not completed in time.
var ErrAuthTimeout = errors.New("authentication timeout: no response received within 5 minutes")

// OAuth2Config holds OAuth2 configuration.
type OAuth2Config struct {
	ClientID     string
	ClientSecret string
	TokenFile    string // Where to save the token
	Port         int
}

func oauthConfig(clientID, clientSecret, redirect string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirect,
		Scopes:       []string{sheets.SpreadsheetsScope},
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// AuthenticateOAuth2Interactive performs the OAuth2 flow in the user's browser.
func AuthenticateOAuth2Interactive(ctx context.Context, config OAuth2Config) (*oauth2.Token, error) {
	port := config.Port
	if port == 0 {
		port = DefaultCallbackPort
	}
	oc := oauthConfig(config.ClientID, config.ClientSecret, fmt.Sprintf("http://localhost:%d/callback", port))

	state, err := randomState()
	if err != nil {
		return nil, err
	}

	codeChan := make(chan string, 1)
	errorChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			select {
			case errorChan <- fmt.Errorf("no authorization code received"):
			default:
			}
			_, _ = fmt.Fprint(w, "<html><body><h1>Authentication Failed</h1><p>No authorization code received.</p></body></html>")
			return
		}
		select {
		case codeChan <- code:
		default:
		}
		_, _ = fmt.Fprint(w, "<html><body><h1>Authentication Successful</h1><p>You can return to the terminal.</p></body></html>")
	})

	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			select {
			case errorChan <- fmt.Errorf("callback server: %w", serveErr):
			default:
			}
		}
	}()
	defer func() {
		if shutdownErr := server.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			slog.Warn("Error shutting down callback server", "error", shutdownErr)
		}
	}()

	authURL := oc.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	slog.Info("Google Sheets authentication required")
	slog.Info("Please visit this URL to authenticate", "url", authURL)

	var authCode string
	select {
	case authCode = <-codeChan:
		slog.Info("Received authorization code")
	case err := <-errorChan:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Minute):
		return nil, ErrAuthTimeout
	}

	token, err := oc.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if config.TokenFile != "" {
		if err := saveToken(config.TokenFile, token); err != nil {
			slog.Warn("Failed to save token to file", "error", err, "file", config.TokenFile)
		} else {
			slog.Info("Token saved", "file", config.TokenFile)
		}
	}

	return token, nil
}

// LoadToken loads a token from file.
func LoadToken(tokenFile string) (*oauth2.Token, error) {
	f, err := os.Open(tokenFile) // #nosec G304
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	token := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(token)
	return token, err
}

// saveToken saves a token to file with owner-only permissions.
func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	return nil
}

// RefreshTokenIfNeeded refreshes the token if it's expired.
func RefreshTokenIfNeeded(ctx context.Context, config OAuth2Config, token *oauth2.Token) (*oauth2.Token, error) {
	if token.Valid() {
		return token, nil
	}

	slog.Info("Token expired, refreshing")

	newToken, err := oauthConfig(config.ClientID, config.ClientSecret, "").TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	if config.TokenFile != "" {
		if err := saveToken(config.TokenFile, newToken); err != nil {
			slog.Warn("Failed to save refreshed token", "error", err)
		}
	}

	return newToken, nil
}

// GetOrCreateToken loads a saved token or runs the interactive flow.
func GetOrCreateToken(ctx context.Context, config OAuth2Config) (*oauth2.Token, error) {
	if config.TokenFile != "" {
		token, err := LoadToken(config.TokenFile)
		if err == nil {
			slog.Debug("Loaded existing token from file")
			return RefreshTokenIfNeeded(ctx, config, token)
		}
		slog.Info("No existing token found, starting OAuth2 flow")
	}

	return AuthenticateOAuth2Interactive(ctx, config)
}
