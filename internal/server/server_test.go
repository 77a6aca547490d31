package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"

	"github.com/matheuscscp/integration-auth/internal/config"
	"github.com/matheuscscp/integration-auth/internal/logging"
)

func TestServer(t *testing.T) {
	t.Run("health endpoints", func(t *testing.T) {
		apiCalled := false
		api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiCalled = true
		})

		conf := &config.Config{Server: config.ServerConfig{Addr: ":8080"}}
		registry := prometheus.NewRegistry()
		server := newServer(conf, api, registry, registry)

		for _, path := range []string{"/readyz", "/healthz"} {
			t.Run(path, func(t *testing.T) {
				g := NewWithT(t)

				apiCalled = false
				rec := httptest.NewRecorder()
				server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

				g.Expect(rec.Code).To(Equal(http.StatusOK))
				g.Expect(apiCalled).To(BeFalse())
			})
		}
		g := NewWithT(t)
		g.Expect(server.Addr).To(Equal(":8080"))
	})

	t.Run("metrics endpoint", func(t *testing.T) {
		g := NewWithT(t)

		api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
		conf := &config.Config{}
		registry := prometheus.NewRegistry()
		server := newServer(conf, api, registry, registry)

		rec := httptest.NewRecorder()
		server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/anything", nil))
		g.Expect(rec.Code).To(Equal(http.StatusTeapot))

		rec = httptest.NewRecorder()
		server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		g.Expect(rec.Code).To(Equal(http.StatusOK))
		g.Expect(rec.Body.String()).To(ContainSubstring(`http_request_duration_seconds_count{method="GET",route="/",status="418"} 1`))

		count, err := testutil.GatherAndCount(registry, "http_request_duration_seconds")
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(count).To(BeNumerically(">=", 1))
	})

	t.Run("requests are labeled by route pattern", func(t *testing.T) {
		g := NewWithT(t)

		auth := &mockAuthenticator{token: "app-token"}
		api := newAPI(testIntegrations(t), auth, &mockVerifier{}, &mockKeys{}, nil)
		registry := prometheus.NewRegistry()
		server := newServer(&config.Config{}, api, registry, registry)

		for _, id := range []string{testConfigurationID, "5810d144e4b0f884b709cc91"} {
			server.Handler.ServeHTTP(httptest.NewRecorder(),
				httptest.NewRequest(http.MethodPost, "/v1/application/"+id+"/authenticate", nil))
		}
		server.Handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/unknown", nil))

		rec := httptest.NewRecorder()
		server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		body := rec.Body.String()
		g.Expect(body).To(ContainSubstring(`http_request_duration_seconds_count{method="POST",route="POST /v1/application/{configurationId}/authenticate",status="200"} 2`))
		g.Expect(body).To(ContainSubstring(`http_request_duration_seconds_count{method="GET",route="unmatched",status="404"} 1`))
		g.Expect(body).ToNot(ContainSubstring(testConfigurationID))
	})

	t.Run("health endpoints only answer GET", func(t *testing.T) {
		g := NewWithT(t)

		apiCalled := false
		api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiCalled = true
			w.WriteHeader(http.StatusNotFound)
		})
		registry := prometheus.NewRegistry()
		server := newServer(&config.Config{}, api, registry, registry)

		rec := httptest.NewRecorder()
		server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
		g.Expect(rec.Code).To(Equal(http.StatusNotFound))
		g.Expect(apiCalled).To(BeTrue())
	})

	t.Run("request logger", func(t *testing.T) {
		g := NewWithT(t)

		var requestID any
		api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if e, ok := logging.FromRequest(r).(*logrus.Entry); ok {
				requestID = e.Data[logging.FieldRequestID]
			}
		})
		registry := prometheus.NewRegistry()
		server := newServer(&config.Config{}, api, registry, registry)

		server.Handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/anything", nil))
		g.Expect(requestID).To(BeAssignableToTypeOf(""))
		g.Expect(requestID).ToNot(BeEmpty())
	})
}

func TestStatusRecorder(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
	}{
		{name: "nothing written", write: func(http.ResponseWriter) {}, status: http.StatusOK},
		{name: "body only", write: func(w http.ResponseWriter) { w.Write([]byte("x")) }, status: http.StatusOK},
		{name: "explicit status", write: func(w http.ResponseWriter) { w.WriteHeader(http.StatusNotFound) }, status: http.StatusNotFound},
		{
			name: "first status wins",
			write: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.WriteHeader(http.StatusOK)
			},
			status: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			sr := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
			tt.write(sr)
			g.Expect(sr.status()).To(Equal(tt.status))
		})
	}
}
