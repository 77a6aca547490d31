package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/matheuscscp/integration-auth/internal/constants"
	"github.com/matheuscscp/integration-auth/internal/issuer"
	"github.com/matheuscscp/integration-auth/internal/keycache"
	"github.com/matheuscscp/integration-auth/internal/pairing"
	"github.com/matheuscscp/integration-auth/internal/store"
)

const (
	devPairMaxRecords = 1000
	devPairTTL        = 24 * time.Hour
	devAppTokenTTL    = 2 * time.Hour
)

// Dev emulates the platform in process. Its pod certificate belongs to a
// development issuer, so tokens from IssueUserToken verify against it.
type Dev struct {
	issuer          *issuer.Issuer
	pairs           *store.MemoryStore
	sessionTokenTTL time.Duration
	nowFunc         func() time.Time
}

func NewDev(sessionTokenTTL time.Duration, nowFunc func() time.Time) (*Dev, error) {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	iss, err := issuer.New(nowFunc())
	if err != nil {
		return nil, fmt.Errorf("failed to create development issuer: %w", err)
	}
	return &Dev{
		issuer:          iss,
		pairs:           store.NewMemoryStore(devPairMaxRecords, devPairTTL, nowFunc),
		sessionTokenTTL: sessionTokenTTL,
		nowFunc:         nowFunc,
	}, nil
}

func (d *Dev) FetchPodCertificate(context.Context) (*keycache.Certificate, error) {
	return &keycache.Certificate{PEM: d.issuer.CertificatePEM()}, nil
}

func (d *Dev) Exchange(_ context.Context, appID, applicationToken string) (*pairing.AppToken, error) {
	if appID == "" || applicationToken == "" {
		return nil, fmt.Errorf("appId and appToken must be set")
	}
	symphonyToken, err := pairing.GenerateApplicationToken()
	if err != nil {
		return nil, err
	}
	return &pairing.AppToken{
		AppID:            appID,
		ApplicationToken: applicationToken,
		SymphonyToken:    symphonyToken,
		ExpireAt:         d.nowFunc().Add(devAppTokenTTL).UnixMilli(),
	}, nil
}

func (d *Dev) AuthenticateSession(_ context.Context, appType string) (*oauth2.Token, error) {
	if appType == "" {
		return nil, fmt.Errorf("appType must be set")
	}
	return &oauth2.Token{
		AccessToken: uuid.NewString(),
		TokenType:   constants.SessionTokenHeader,
		Expiry:      d.nowFunc().Add(d.sessionTokenTTL),
	}, nil
}

func (d *Dev) Save(ctx context.Context, sessionToken, configurationID string, token *pairing.AppToken) error {
	return d.pairs.Save(ctx, sessionToken, configurationID, token)
}

func (d *Dev) Get(ctx context.Context, sessionToken, configurationID,
	applicationToken string) (*pairing.AppToken, bool, error) {
	return d.pairs.Get(ctx, sessionToken, configurationID, applicationToken)
}

// IssueUserToken signs a user assertion the way the pod would.
func (d *Dev) IssueUserToken(claims issuer.Claims) (string, time.Time, error) {
	return d.issuer.Issue(claims, d.nowFunc())
}
