package pairing

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/matheuscscp/integration-auth/internal/config"
	"github.com/matheuscscp/integration-auth/internal/failure"
	"github.com/matheuscscp/integration-auth/internal/logging"
	"github.com/matheuscscp/integration-auth/internal/metrics"
)

const applicationTokenBytes = 32

// AppToken is one side, or both sides, of an application token pair.
type AppToken struct {
	AppID            string `json:"appId"`
	ApplicationToken string `json:"appToken"`
	SymphonyToken    string `json:"symphonyToken,omitempty"`
	// ExpireAt is in milliseconds since the epoch, as the platform sends it.
	ExpireAt int64 `json:"expireAt,omitempty"`
}

type IntegrationResolver interface {
	Integration(configurationID string) (*config.IntegrationConfig, bool)
}

// AppAuthProvider exchanges an application token for the platform half of
// the pair.
type AppAuthProvider interface {
	Exchange(ctx context.Context, appID, applicationToken string) (*AppToken, error)
}

// SessionProvider returns a platform session token for an integration type.
type SessionProvider interface {
	SessionToken(ctx context.Context, appType string) (string, error)
}

// PairingStore persists confirmed pairs keyed by configuration id and
// application token. Get reports false when no record exists.
type PairingStore interface {
	Save(ctx context.Context, sessionToken, configurationID string, token *AppToken) error
	Get(ctx context.Context, sessionToken, configurationID, applicationToken string) (*AppToken, bool, error)
}

// Authenticator runs the application authentication handshake and answers
// token pair checks.
type Authenticator struct {
	integrations IntegrationResolver
	provider     AppAuthProvider
	sessions     SessionProvider
	store        PairingStore
	recorder     *metrics.Recorder
	tokenFunc    func() (string, error)
}

type Option func(*Authenticator)

// WithTokenFunc replaces the random application token generator.
func WithTokenFunc(f func() (string, error)) Option {
	return func(a *Authenticator) { a.tokenFunc = f }
}

func New(integrations IntegrationResolver, provider AppAuthProvider, sessions SessionProvider,
	store PairingStore, recorder *metrics.Recorder, opts ...Option) *Authenticator {

	a := &Authenticator{
		integrations: integrations,
		provider:     provider,
		sessions:     sessions,
		store:        store,
		recorder:     recorder,
		tokenFunc:    GenerateApplicationToken,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate mints an application token for the integration, exchanges it
// with the platform and persists the resulting pair. Only the application
// token is returned.
func (a *Authenticator) Authenticate(ctx context.Context, configurationID string) (string, error) {
	h := &handshake{
		l: logging.FromContext(ctx).WithField(logging.FieldConfigurationID, configurationID),
	}
	token, err := a.authenticate(ctx, h, configurationID)
	if err != nil {
		h.fail(err)
		a.recorder.Handshake(failure.KindOf(err).String())
		return "", err
	}
	a.recorder.Handshake(metrics.ResultSuccess)
	return token, nil
}

func (a *Authenticator) authenticate(ctx context.Context, h *handshake, configurationID string) (string, error) {
	if configurationID == "" {
		return "", failure.InvalidArgument("configurationId")
	}
	integration, ok := a.integrations.Integration(configurationID)
	if !ok {
		return "", failure.ConfigurationUnavailable(configurationID)
	}

	applicationToken, err := a.tokenFunc()
	if err != nil {
		return "", failure.Internal("generate application token", err)
	}
	h.transition(StateAppTokenGenerated)

	pair, err := a.provider.Exchange(ctx, integration.ApplicationID, applicationToken)
	if err != nil {
		return "", failure.AuthProviderUnavailable(integration.ApplicationID, err)
	}
	if err := checkExchanged(pair, applicationToken); err != nil {
		return "", failure.AuthProviderUnavailable(integration.ApplicationID, err)
	}
	h.transition(StateExchanged)

	sessionToken, err := a.sessions.SessionToken(ctx, integration.Type)
	if err != nil {
		return "", failure.UpstreamUnavailable("session token", err)
	}
	if err := a.store.Save(ctx, sessionToken, configurationID, pair); err != nil {
		return "", failure.PersistenceFailure(err)
	}
	h.transition(StatePersisted)

	return applicationToken, nil
}

func checkExchanged(pair *AppToken, applicationToken string) error {
	switch {
	case pair == nil:
		return fmt.Errorf("platform returned no token pair")
	case pair.SymphonyToken == "":
		return fmt.Errorf("platform returned an empty symphony token")
	case subtle.ConstantTimeCompare([]byte(pair.ApplicationToken), []byte(applicationToken)) != 1:
		return fmt.Errorf("platform returned a different application token")
	}
	return nil
}

// IsValidTokenPair reports whether the pair was confirmed by a previous
// handshake. Unknown pairs are not an error.
func (a *Authenticator) IsValidTokenPair(ctx context.Context, configurationID,
	applicationToken, symphonyToken string) (bool, error) {

	valid, err := a.isValidTokenPair(ctx, configurationID, applicationToken, symphonyToken)
	switch {
	case err != nil:
		a.recorder.PairCheck(failure.KindOf(err).String())
	case valid:
		a.recorder.PairCheck("valid")
	default:
		a.recorder.PairCheck("invalid")
	}
	return valid, err
}

func (a *Authenticator) isValidTokenPair(ctx context.Context, configurationID,
	applicationToken, symphonyToken string) (bool, error) {

	switch {
	case configurationID == "":
		return false, failure.InvalidArgument("configurationId")
	case applicationToken == "":
		return false, failure.InvalidArgument("applicationToken")
	case symphonyToken == "":
		return false, failure.InvalidArgument("symphonyToken")
	}

	integration, ok := a.integrations.Integration(configurationID)
	if !ok {
		return false, failure.ConfigurationUnavailable(configurationID)
	}
	sessionToken, err := a.sessions.SessionToken(ctx, integration.Type)
	if err != nil {
		return false, failure.UpstreamUnavailable("session token", err)
	}

	record, ok, err := a.store.Get(ctx, sessionToken, configurationID, applicationToken)
	if err != nil {
		return false, failure.PersistenceFailure(err)
	}
	if !ok || record == nil {
		logging.FromContext(ctx).WithField(logging.FieldConfigurationID, configurationID).
			Debug("no token pair recorded for application token")
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(record.SymphonyToken), []byte(symphonyToken)) == 1, nil
}

// GenerateApplicationToken returns 32 random bytes, base64url encoded
// without padding.
func GenerateApplicationToken() (string, error) {
	b := make([]byte, applicationTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

type handshake struct {
	l     logrus.FieldLogger
	state State
}

func (h *handshake) transition(s State) {
	h.l.WithFields(logrus.Fields{
		"from": h.state.String(),
		"to":   s.String(),
	}).Debug("handshake transition")
	h.state = s
}

func (h *handshake) fail(err error) {
	h.l.WithError(err).WithFields(logrus.Fields{
		"from":   h.state.String(),
		"to":     StateFailed.String(),
		"reason": failure.KindOf(err).String(),
	}).Error("handshake failed")
	h.state = StateFailed
}
