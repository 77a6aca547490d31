package platform

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/matheuscscp/integration-auth/internal/config"
	"github.com/matheuscscp/integration-auth/internal/keycache"
	"github.com/matheuscscp/integration-auth/internal/pairing"
)

// SessionAuthenticator opens a platform session for an integration type.
type SessionAuthenticator interface {
	AuthenticateSession(ctx context.Context, appType string) (*oauth2.Token, error)
}

// Interface is everything the service consumes from the platform.
type Interface interface {
	keycache.CertificateSource
	pairing.AppAuthProvider
	pairing.PairingStore
	SessionAuthenticator
}

func New(conf *config.PlatformConfig, nowFunc func() time.Time) (Interface, error) {
	switch conf.Mode {
	case config.PlatformModeRemote:
		return NewClient(conf)
	case config.PlatformModeDev:
		return NewDev(conf.SessionTokenTTL, nowFunc)
	default:
		return nil, fmt.Errorf("unsupported platform mode: %s", conf.Mode)
	}
}
