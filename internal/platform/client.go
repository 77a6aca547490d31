package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/matheuscscp/integration-auth/internal/config"
	"github.com/matheuscscp/integration-auth/internal/constants"
	"github.com/matheuscscp/integration-auth/internal/keycache"
	"github.com/matheuscscp/integration-auth/internal/logging"
	"github.com/matheuscscp/integration-auth/internal/pairing"
)

const (
	pathPodCertificate   = "/pod/v1/podcert"
	pathExtensionApp     = "/authenticator/v1/authenticate/extension-app"
	pathSessionAuth      = "/sessionauth/v1/authenticate"
	pathConfiguration    = "/pod/v1/configuration"
	pathSegmentAuthToken = "auth/token"
)

// Client talks to a remote platform over HTTP.
type Client struct {
	httpClient       *http.Client
	podURL           string
	authenticatorURL string
	sessionAuthURL   string
	sessionTokenTTL  time.Duration
	nowFunc          func() time.Time
}

func NewClient(conf *config.PlatformConfig) (*Client, error) {
	for _, u := range []string{conf.PodURL, conf.AuthenticatorURL, conf.SessionAuthURL} {
		if _, err := url.Parse(u); err != nil {
			return nil, fmt.Errorf("failed to parse platform URL '%s': %w", u, err)
		}
	}
	return &Client{
		httpClient:       &http.Client{Timeout: conf.Timeout},
		podURL:           conf.PodURL,
		authenticatorURL: conf.AuthenticatorURL,
		sessionAuthURL:   conf.SessionAuthURL,
		sessionTokenTTL:  conf.SessionTokenTTL,
		nowFunc:          time.Now,
	}, nil
}

func (c *Client) FetchPodCertificate(ctx context.Context) (*keycache.Certificate, error) {
	u, err := url.JoinPath(c.podURL, pathPodCertificate)
	if err != nil {
		return nil, err
	}
	var cert keycache.Certificate
	if err := c.do(ctx, http.MethodGet, u, nil, nil, &cert); err != nil {
		return nil, fmt.Errorf("pod certificate request failed: %w", err)
	}
	return &cert, nil
}

func (c *Client) Exchange(ctx context.Context, appID, applicationToken string) (*pairing.AppToken, error) {
	req := pairing.AppToken{
		AppID:            appID,
		ApplicationToken: applicationToken,
	}
	u, err := url.JoinPath(c.authenticatorURL, pathExtensionApp)
	if err != nil {
		return nil, err
	}
	var resp pairing.AppToken
	if err := c.do(ctx, http.MethodPost, u, nil, &req, &resp); err != nil {
		return nil, fmt.Errorf("extension app authentication request failed: %w", err)
	}
	return &resp, nil
}

func (c *Client) AuthenticateSession(ctx context.Context, appType string) (*oauth2.Token, error) {
	req := struct {
		AppType string `json:"appType"`
	}{appType}
	var resp struct {
		Name  string `json:"name"`
		Token string `json:"token"`
	}
	u, err := url.JoinPath(c.sessionAuthURL, pathSessionAuth)
	if err != nil {
		return nil, err
	}
	if err := c.do(ctx, http.MethodPost, u, nil, &req, &resp); err != nil {
		return nil, fmt.Errorf("session authentication request failed: %w", err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("session authentication returned an empty token")
	}
	return &oauth2.Token{
		AccessToken: resp.Token,
		TokenType:   constants.SessionTokenHeader,
		Expiry:      c.nowFunc().Add(c.sessionTokenTTL),
	}, nil
}

func (c *Client) Save(ctx context.Context, sessionToken, configurationID string, token *pairing.AppToken) error {
	u, err := url.JoinPath(c.podURL, pathConfiguration, url.PathEscape(configurationID), pathSegmentAuthToken)
	if err != nil {
		return err
	}
	header := http.Header{constants.SessionTokenHeader: []string{sessionToken}}
	if err := c.do(ctx, http.MethodPost, u, header, token, nil); err != nil {
		return fmt.Errorf("token pair save request failed: %w", err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, sessionToken, configurationID,
	applicationToken string) (*pairing.AppToken, bool, error) {

	u, err := url.JoinPath(c.podURL, pathConfiguration, url.PathEscape(configurationID),
		pathSegmentAuthToken, url.PathEscape(applicationToken))
	if err != nil {
		return nil, false, err
	}
	header := http.Header{constants.SessionTokenHeader: []string{sessionToken}}
	var token pairing.AppToken
	if err := c.do(ctx, http.MethodGet, u, header, nil, &token); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("token pair lookup request failed: %w", err)
	}
	return &token, true, nil
}

type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return e.status
}

func (c *Client) do(ctx context.Context, method, u string, header http.Header, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	logging.FromContext(ctx).WithField("platform", map[string]any{
		"method": method,
		"url":    u,
		"status": resp.StatusCode,
	}).Debug("platform request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{code: resp.StatusCode, status: resp.Status}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
