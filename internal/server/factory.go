package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matheuscscp/integration-auth/internal/config"
	"github.com/matheuscscp/integration-auth/internal/keycache"
	"github.com/matheuscscp/integration-auth/internal/metrics"
	"github.com/matheuscscp/integration-auth/internal/pairing"
	"github.com/matheuscscp/integration-auth/internal/platform"
	"github.com/matheuscscp/integration-auth/internal/store"
	"github.com/matheuscscp/integration-auth/internal/verifier"
)

func New(conf *config.Config) (*http.Server, error) {
	return newWithRegistry(conf, prometheus.DefaultRegisterer, prometheus.DefaultGatherer, time.Now)
}

func newWithRegistry(conf *config.Config, promRegisterer prometheus.Registerer,
	promGatherer prometheus.Gatherer, nowFunc func() time.Time) (*http.Server, error) {

	plat, err := platform.New(&conf.Platform, nowFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to create platform client: %w", err)
	}
	pairs, err := store.New(conf.Pairing, plat, nowFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to create pairing store: %w", err)
	}

	recorder := metrics.New(promRegisterer)
	keys := keycache.New(plat, keycache.PEMKeyExtractor{}, recorder, nowFunc)
	v := verifier.New(keys, recorder, nowFunc)
	auth := pairing.New(conf, plat, platform.NewSessions(plat), pairs, recorder)

	var dev userTokenIssuer
	if d, ok := plat.(*platform.Dev); ok {
		dev = d
	}

	api := newAPI(conf, auth, v, keys, dev)
	return newServer(conf, api, promRegisterer, promGatherer), nil
}
