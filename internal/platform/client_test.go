package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/matheuscscp/integration-auth/internal/config"
	"github.com/matheuscscp/integration-auth/internal/pairing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	conf := &config.PlatformConfig{
		PodURL:           srv.URL,
		AuthenticatorURL: srv.URL,
		SessionAuthURL:   srv.URL,
		Timeout:          5 * time.Second,
		SessionTokenTTL:  30 * time.Minute,
	}
	c, err := NewClient(conf)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestClient_BaseURLWithTrailingSlash(t *testing.T) {
	g := NewWithT(t)

	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/pod/v1/podcert":
			w.Write([]byte(`{"certificate":"pem"}`))
		case "/authenticator/v1/authenticate/extension-app":
			w.Write([]byte(`{"appId":"jira","appToken":"app","symphonyToken":"sym"}`))
		case "/sessionauth/v1/authenticate":
			w.Write([]byte(`{"name":"jira","token":"session"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(&config.PlatformConfig{
		PodURL:           srv.URL + "/",
		AuthenticatorURL: srv.URL + "/",
		SessionAuthURL:   srv.URL + "/",
		Timeout:          5 * time.Second,
		SessionTokenTTL:  30 * time.Minute,
	})
	g.Expect(err).ToNot(HaveOccurred())

	ctx := context.Background()
	_, err = c.FetchPodCertificate(ctx)
	g.Expect(err).ToNot(HaveOccurred())
	_, err = c.Exchange(ctx, "jira", "app")
	g.Expect(err).ToNot(HaveOccurred())
	_, err = c.AuthenticateSession(ctx, "jira")
	g.Expect(err).ToNot(HaveOccurred())

	g.Expect(paths).To(Equal([]string{
		"/pod/v1/podcert",
		"/authenticator/v1/authenticate/extension-app",
		"/sessionauth/v1/authenticate",
	}))
}

func TestClient_FetchPodCertificate(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		expectedPEM   string
		expectedError string
	}{
		{
			name:        "success",
			status:      http.StatusOK,
			body:        `{"certificate":"-----BEGIN CERTIFICATE-----\nabc\n-----END CERTIFICATE-----\n"}`,
			expectedPEM: "-----BEGIN CERTIFICATE-----\nabc\n-----END CERTIFICATE-----\n",
		},
		{
			name:          "server error",
			status:        http.StatusInternalServerError,
			expectedError: "pod certificate request failed: 500 Internal Server Error",
		},
		{
			name:          "invalid json",
			status:        http.StatusOK,
			body:          `{`,
			expectedError: "pod certificate request failed: failed to decode response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				g.Expect(r.Method).To(Equal(http.MethodGet))
				g.Expect(r.URL.Path).To(Equal("/pod/v1/podcert"))
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			cert, err := c.FetchPodCertificate(context.Background())
			if tt.expectedError != "" {
				g.Expect(err).To(HaveOccurred())
				g.Expect(err.Error()).To(ContainSubstring(tt.expectedError))
				return
			}
			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(cert.PEM).To(Equal(tt.expectedPEM))
		})
	}
}

func TestClient_Exchange(t *testing.T) {
	g := NewWithT(t)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		g.Expect(r.Method).To(Equal(http.MethodPost))
		g.Expect(r.URL.Path).To(Equal("/authenticator/v1/authenticate/extension-app"))
		g.Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))

		var req map[string]any
		g.Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
		g.Expect(req).To(Equal(map[string]any{"appId": "jira", "appToken": "app-token"}))

		w.Write([]byte(`{"appId":"jira","appToken":"app-token","symphonyToken":"sym","expireAt":1700000000000}`))
	})

	pair, err := c.Exchange(context.Background(), "jira", "app-token")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(pair).To(Equal(&pairing.AppToken{
		AppID:            "jira",
		ApplicationToken: "app-token",
		SymphonyToken:    "sym",
		ExpireAt:         1700000000000,
	}))
}

func TestClient_Exchange_Unauthorized(t *testing.T) {
	g := NewWithT(t)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Exchange(context.Background(), "jira", "app-token")
	g.Expect(err).To(MatchError("extension app authentication request failed: 401 Unauthorized"))
}

func TestClient_AuthenticateSession(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		expectedToken string
		expectedError string
	}{
		{
			name:          "success",
			status:        http.StatusOK,
			body:          `{"name":"sessionToken","token":"session-123"}`,
			expectedToken: "session-123",
		},
		{
			name:          "empty token",
			status:        http.StatusOK,
			body:          `{"name":"sessionToken","token":""}`,
			expectedError: "session authentication returned an empty token",
		},
		{
			name:          "forbidden",
			status:        http.StatusForbidden,
			expectedError: "session authentication request failed: 403 Forbidden",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				g.Expect(r.URL.Path).To(Equal("/sessionauth/v1/authenticate"))
				var req map[string]string
				g.Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				g.Expect(req).To(Equal(map[string]string{"appType": "jiraWebHookIntegration"}))
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			now := time.Now()
			c.nowFunc = func() time.Time { return now }

			tok, err := c.AuthenticateSession(context.Background(), "jiraWebHookIntegration")
			if tt.expectedError != "" {
				g.Expect(err).To(MatchError(tt.expectedError))
				return
			}
			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(tok.AccessToken).To(Equal(tt.expectedToken))
			g.Expect(tok.Expiry).To(Equal(now.Add(30 * time.Minute)))
		})
	}
}

func TestClient_SaveAndGet(t *testing.T) {
	g := NewWithT(t)

	records := map[string][]byte{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("sessionToken") != "session-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.Method {
		case http.MethodPost:
			g.Expect(r.URL.Path).To(Equal("/pod/v1/configuration/cfg-1/auth/token"))
			var token pairing.AppToken
			g.Expect(json.NewDecoder(r.Body).Decode(&token)).To(Succeed())
			b, _ := json.Marshal(token)
			records["/pod/v1/configuration/cfg-1/auth/token/"+token.ApplicationToken] = b
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			b, ok := records[r.URL.Path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(b)
		}
	})

	ctx := context.Background()
	saved := &pairing.AppToken{AppID: "jira", ApplicationToken: "app-1", SymphonyToken: "sym-1"}
	g.Expect(c.Save(ctx, "session-123", "cfg-1", saved)).To(Succeed())

	got, ok, err := c.Get(ctx, "session-123", "cfg-1", "app-1")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(ok).To(BeTrue())
	g.Expect(got).To(Equal(saved))

	got, ok, err = c.Get(ctx, "session-123", "cfg-1", "app-2")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(ok).To(BeFalse())
	g.Expect(got).To(BeNil())

	_, _, err = c.Get(ctx, "expired-session", "cfg-1", "app-1")
	g.Expect(err).To(MatchError("token pair lookup request failed: 401 Unauthorized"))

	err = c.Save(ctx, "expired-session", "cfg-1", saved)
	g.Expect(err).To(MatchError("token pair save request failed: 401 Unauthorized"))
}

func TestClient_ContextCanceled(t *testing.T) {
	g := NewWithT(t)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"certificate":"x"}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchPodCertificate(ctx)
	g.Expect(err).To(MatchError(context.Canceled))
}
