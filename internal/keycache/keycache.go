package keycache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/matheuscscp/integration-auth/internal/constants"
	"github.com/matheuscscp/integration-auth/internal/failure"
	"github.com/matheuscscp/integration-auth/internal/logging"
	"github.com/matheuscscp/integration-auth/internal/metrics"
)

// Certificate is the pod signing certificate as served by the platform.
type Certificate struct {
	PEM string `json:"certificate"`
}

// CertificateSource fetches the current pod signing certificate.
type CertificateSource interface {
	FetchPodCertificate(ctx context.Context) (*Certificate, error)
}

// KeyExtractor turns a certificate into a verification key.
type KeyExtractor interface {
	PublicKeyFrom(cert *Certificate) (jwk.Key, error)
}

// Material is an immutable snapshot of the trusted key.
type Material struct {
	Key       jwk.Key
	FetchedAt time.Time
	ExpiresAt time.Time
}

func (m *Material) expired(now time.Time) bool {
	return m == nil || !now.Before(m.ExpiresAt)
}

// Cache holds the pod verification key for a fixed window after each fetch.
// Concurrent callers that observe an expired key may all refresh; the first
// one to publish wins and the others return equivalent material.
type Cache struct {
	source    CertificateSource
	extractor KeyExtractor
	recorder  *metrics.Recorder
	nowFunc   func() time.Time

	cur atomic.Pointer[Material]
}

func New(source CertificateSource, extractor KeyExtractor,
	recorder *metrics.Recorder, nowFunc func() time.Time) *Cache {

	if extractor == nil {
		extractor = PEMKeyExtractor{}
	}
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &Cache{
		source:    source,
		extractor: extractor,
		recorder:  recorder,
		nowFunc:   nowFunc,
	}
}

func (c *Cache) GetVerificationKey(ctx context.Context) (jwk.Key, error) {
	now := c.nowFunc()
	old := c.cur.Load()
	if !old.expired(now) {
		return old.Key, nil
	}

	fresh, err := c.fetch(ctx, now)
	if err != nil {
		c.recorder.KeyRefresh(metrics.ResultFailure)
		return nil, err
	}
	c.recorder.KeyRefresh(metrics.ResultSuccess)

	if !c.cur.CompareAndSwap(old, fresh) {
		logging.FromContext(ctx).Debug("concurrent verification key refresh, keeping published key")
		if published := c.cur.Load(); !published.expired(now) {
			return published.Key, nil
		}
	}
	return fresh.Key, nil
}

// Material returns the cached snapshot, or nil when nothing was fetched yet.
func (c *Cache) Material() *Material {
	return c.cur.Load()
}

// Invalidate forces the next lookup to fetch a new certificate.
func (c *Cache) Invalidate() {
	c.cur.Store(nil)
}

func (c *Cache) fetch(ctx context.Context, now time.Time) (*Material, error) {
	cert, err := c.source.FetchPodCertificate(ctx)
	if err != nil {
		return nil, failure.UpstreamUnavailable("pod certificate", err)
	}
	key, err := c.extractor.PublicKeyFrom(cert)
	if err != nil {
		return nil, failure.UpstreamUnavailable("pod certificate",
			fmt.Errorf("failed to extract public key from certificate: %w", err))
	}

	m := &Material{
		Key:       key,
		FetchedAt: now,
		ExpiresAt: now.Add(constants.VerificationKeyTTL),
	}

	kid, _ := key.KeyID()
	logging.FromContext(ctx).WithField("key", map[string]any{
		jwk.KeyIDKey: kid,
		"expiresAt":  m.ExpiresAt,
	}).Info("verification key refreshed")

	return m, nil
}
