package platform

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
)

// Sessions caches one platform session token per integration type and
// renews it shortly before it expires.
type Sessions struct {
	auth SessionAuthenticator

	mu     sync.Mutex
	tokens map[string]*oauth2.Token
}

func NewSessions(auth SessionAuthenticator) *Sessions {
	return &Sessions{
		auth:   auth,
		tokens: make(map[string]*oauth2.Token),
	}
}

func (s *Sessions) SessionToken(ctx context.Context, appType string) (string, error) {
	s.mu.Lock()
	cached := s.tokens[appType]
	s.mu.Unlock()

	tok, err := oauth2.ReuseTokenSource(cached, &sessionSource{ctx, s.auth, appType}).Token()
	if err != nil {
		return "", err
	}
	if tok != cached {
		s.mu.Lock()
		s.tokens[appType] = tok
		s.mu.Unlock()
	}
	return tok.AccessToken, nil
}

// sessionSource adapts a SessionAuthenticator call to oauth2.TokenSource.
type sessionSource struct {
	ctx     context.Context
	auth    SessionAuthenticator
	appType string
}

func (s *sessionSource) Token() (*oauth2.Token, error) {
	return s.auth.AuthenticateSession(s.ctx, s.appType)
}
