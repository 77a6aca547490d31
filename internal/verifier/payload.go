package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/matheuscscp/integration-auth/internal/constants"
)

// Payload is the verified claim set of a platform token. It is never
// modified after construction.
type Payload struct {
	issuer    string
	subject   string
	audience  []string
	expiresAt time.Time
	issuedAt  time.Time
	userID    int64
	hasUserID bool
	claims    map[string]any
}

func (p *Payload) Issuer() string       { return p.issuer }
func (p *Payload) Subject() string      { return p.subject }
func (p *Payload) ExpiresAt() time.Time { return p.expiresAt }

// IssuedAt is the zero time when the token carries no iat claim.
func (p *Payload) IssuedAt() time.Time { return p.issuedAt }

func (p *Payload) Audience() []string {
	return append([]string(nil), p.audience...)
}

// UserID returns the platform user id asserted by the token, if any.
func (p *Payload) UserID() (int64, bool) {
	return p.userID, p.hasUserID
}

// Claims returns a copy of every claim in the token.
func (p *Payload) Claims() map[string]any {
	return maps.Clone(p.claims)
}

func (p *Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.claims)
}

func newPayload(tok jwt.Token) (*Payload, error) {
	b, err := json.Marshal(tok)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize claims: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var claims map[string]any
	if err := dec.Decode(&claims); err != nil {
		return nil, fmt.Errorf("failed to deserialize claims: %w", err)
	}

	p := &Payload{claims: claims}
	if p.issuer, err = requiredString(claims, constants.ClaimIssuer); err != nil {
		return nil, err
	}
	if p.subject, err = requiredString(claims, constants.ClaimSubject); err != nil {
		return nil, err
	}

	exp, ok := claims[constants.ClaimExpiresAt]
	if !ok {
		return nil, fmt.Errorf("claim '%s' is missing", constants.ClaimExpiresAt)
	}
	if p.expiresAt, err = numericDate(constants.ClaimExpiresAt, exp); err != nil {
		return nil, err
	}
	if iat, ok := claims[constants.ClaimIssuedAt]; ok {
		if p.issuedAt, err = numericDate(constants.ClaimIssuedAt, iat); err != nil {
			return nil, err
		}
	}

	switch aud := claims[constants.ClaimAudience].(type) {
	case nil:
	case string:
		p.audience = []string{aud}
	case []any:
		for _, a := range aud {
			s, ok := a.(string)
			if !ok {
				return nil, fmt.Errorf("claim '%s' must hold strings, got %T", constants.ClaimAudience, a)
			}
			p.audience = append(p.audience, s)
		}
	default:
		return nil, fmt.Errorf("claim '%s' has unexpected type %T", constants.ClaimAudience, aud)
	}

	if v, ok := claims[constants.ClaimUserID]; ok {
		n, ok := v.(json.Number)
		if !ok {
			return nil, fmt.Errorf("claim '%s' must be a number, got %T", constants.ClaimUserID, v)
		}
		id, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("claim '%s' must be an integer: %w", constants.ClaimUserID, err)
		}
		p.userID, p.hasUserID = id, true
	}

	return p, nil
}

func requiredString(claims map[string]any, name string) (string, error) {
	v, ok := claims[name]
	if !ok {
		return "", fmt.Errorf("claim '%s' is missing", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("claim '%s' must be a string, got %T", name, v)
	}
	if s == "" {
		return "", fmt.Errorf("claim '%s' is empty", name)
	}
	return s, nil
}

func numericDate(name string, v any) (time.Time, error) {
	n, ok := v.(json.Number)
	if !ok {
		return time.Time{}, fmt.Errorf("claim '%s' must be a number, got %T", name, v)
	}
	f, err := n.Float64()
	if err != nil {
		return time.Time{}, fmt.Errorf("claim '%s' is not a valid date: %w", name, err)
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}

type contextKeyPayload struct{}

func IntoContext(ctx context.Context, p *Payload) context.Context {
	return context.WithValue(ctx, contextKeyPayload{}, p)
}

// PayloadFromContext returns the payload stored by IntoContext, or nil.
func PayloadFromContext(ctx context.Context) *Payload {
	p, _ := ctx.Value(contextKeyPayload{}).(*Payload)
	return p
}
