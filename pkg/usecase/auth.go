package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/dagstat/pkg/domain"
	"github.com/m-mizutani/dagstat/pkg/domain/interfaces"
	"github.com/m-mizutani/dagstat/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/oauth2"
)

// Airflow 3 issues JWTs for the public API from this endpoint
const authTokenPath = "/auth/token" // #nosec G101 - This is not a credential, it's an API path

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type AuthService struct {
	config model.AirflowConfig
}

func NewAuthService(config model.AirflowConfig) interfaces.AuthService {
	return &AuthService{config: config}
}

// GetAuthenticatedClient returns an HTTP client for the Airflow API.
//   - token configured: bearer token
//   - username with API v2: exchange credentials for a JWT, falling back to
//     basic auth when the webserver has no token endpoint
//   - username with API v1: basic auth
//   - nothing: anonymous
func (s *AuthService) GetAuthenticatedClient(ctx context.Context) (*http.Client, error) {
	logger := ctxlog.From(ctx)

	if s.config.Token != "" {
		return s.bearerClient(ctx, s.config.Token), nil
	}

	if s.config.Username == "" {
		logger.Debug("no airflow credentials configured, using anonymous access")
		return &http.Client{Timeout: s.config.RequestTimeout}, nil
	}

	if s.config.APIVersion == "v2" {
		token, err := s.requestToken(ctx)
		if err == nil {
			return s.bearerClient(ctx, token), nil
		}
		if !domain.ErrNotFound.Is(err) {
			return nil, err
		}
		logger.Debug("token endpoint not available, falling back to basic auth")
	}

	return &http.Client{
		Timeout: s.config.RequestTimeout,
		Transport: &basicAuthTransport{
			username: s.config.Username,
			password: s.config.Password,
			base:     http.DefaultTransport,
		},
	}, nil
}

func (s *AuthService) bearerClient(ctx context.Context, token string) *http.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	client := oauth2.NewClient(ctx, ts)
	client.Timeout = s.config.RequestTimeout
	return client
}

func (s *AuthService) requestToken(ctx context.Context) (string, error) {
	logger := ctxlog.From(ctx)

	body, err := json.Marshal(tokenRequest{
		Username: s.config.Username,
		Password: s.config.Password,
	})
	if err != nil {
		return "", domain.ErrAuthentication.Wrap(err)
	}

	tokenURL := strings.TrimSuffix(s.config.URL, "/") + authTokenPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewReader(body))
	if err != nil {
		return "", domain.ErrConfiguration.Wrap(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: s.config.RequestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", domain.ErrConnection.Wrap(err, goerr.V("url", tokenURL))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusMethodNotAllowed:
		return "", domain.ErrNotFound.Wrap(goerr.New("token endpoint not found"), goerr.V("url", tokenURL))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", domain.ErrAuthentication.Wrap(goerr.New("credentials rejected"),
			goerr.V("status", resp.StatusCode),
			goerr.V("username", s.config.Username),
		)
	case resp.StatusCode >= 300:
		return "", domain.ErrAPIRequest.Wrap(goerr.New("token request failed"), goerr.V("status", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.ErrConnection.Wrap(err)
	}

	var token tokenResponse
	if err := json.Unmarshal(data, &token); err != nil {
		return "", domain.ErrAPIRequest.Wrap(err)
	}
	if token.AccessToken == "" {
		return "", domain.ErrAuthentication.Wrap(goerr.New("token response has no access_token"))
	}

	logger.Debug("obtained airflow access token", slog.String("username", s.config.Username))
	return token.AccessToken, nil
}

type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(clone)
}
