package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dom/foodorder-backend/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var (
	ErrOAuthNotConfigured = errors.New("google oauth not configured")
	ErrOAuthExchange      = errors.New("token error")
	ErrOAuthProfile       = errors.New("google profile request failed")
)

type GoogleProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GoogleProvider wraps the authorization-code flow against Google.
type GoogleProvider struct {
	oauth       *oauth2.Config
	enabled     bool
	userInfoURL string
	httpClient  *http.Client
}

func NewGoogleProvider(cfg config.Google) *GoogleProvider {
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
		},
		enabled:     cfg.Configured(),
		userInfoURL: cfg.UserInfoURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// AuthURL returns the consent page URL the frontend should send the user to.
func (p *GoogleProvider) AuthURL() (string, error) {
	if p.oauth.ClientID == "" {
		return "", ErrOAuthNotConfigured
	}
	return p.oauth.AuthCodeURL("", oauth2.AccessTypeOffline), nil
}

// Exchange trades an authorization code for a provider token and fetches the profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleProfile, error) {
	if !p.enabled {
		return nil, ErrOAuthNotConfigured
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode != "" {
			return nil, fmt.Errorf("%w: %s", ErrOAuthExchange, retrieveErr.ErrorCode)
		}
		return nil, fmt.Errorf("%w: %v", ErrOAuthExchange, err)
	}

	resp, err := p.oauth.Client(ctx, token).Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOAuthProfile, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrOAuthProfile, resp.StatusCode, string(b))
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrOAuthProfile, err)
	}
	if profile.Email == "" {
		return nil, fmt.Errorf("%w: profile has no email", ErrOAuthProfile)
	}

	return &profile, nil
}
