package verifier

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/sirupsen/logrus"

	"github.com/matheuscscp/integration-auth/internal/bearer"
	"github.com/matheuscscp/integration-auth/internal/constants"
	"github.com/matheuscscp/integration-auth/internal/failure"
	"github.com/matheuscscp/integration-auth/internal/logging"
	"github.com/matheuscscp/integration-auth/internal/metrics"
)

// KeyProvider returns the key platform tokens are currently signed with.
type KeyProvider interface {
	GetVerificationKey(ctx context.Context) (jwk.Key, error)
}

// Verifier checks platform tokens and decodes their claims.
type Verifier struct {
	keys     KeyProvider
	recorder *metrics.Recorder
	nowFunc  func() time.Time
}

func New(keys KeyProvider, recorder *metrics.Recorder, nowFunc func() time.Time) *Verifier {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &Verifier{
		keys:     keys,
		recorder: recorder,
		nowFunc:  nowFunc,
	}
}

// Verify runs the token through signature, expiry, algorithm and payload
// checks, in that order, and fails with the *failure.Error of the first
// check that rejects it.
func (v *Verifier) Verify(ctx context.Context, token string) (*Payload, error) {
	p, err := v.verify(ctx, token)
	if err != nil {
		v.recorder.Verification(failure.KindOf(err).String())
		return nil, err
	}
	v.recorder.Verification(metrics.ResultSuccess)
	return p, nil
}

// UserID verifies the bearer token in an Authorization header value and
// returns its userId claim.
func (v *Verifier) UserID(ctx context.Context, authorizationHeader string) (int64, error) {
	token, ok := bearer.ExtractToken(authorizationHeader)
	if !ok {
		return 0, failure.InvalidArgument("bearer token")
	}
	p, err := v.Verify(ctx, token)
	if err != nil {
		return 0, err
	}
	id, ok := p.UserID()
	if !ok {
		return 0, failure.PayloadMalformed(fmt.Errorf("claim '%s' is missing", constants.ClaimUserID))
	}
	return id, nil
}

func (v *Verifier) verify(ctx context.Context, token string) (*Payload, error) {
	if token == "" {
		return nil, failure.InvalidArgument("token")
	}

	key, err := v.keys.GetVerificationKey(ctx)
	if err != nil {
		return nil, err
	}

	alg, err := declaredAlgorithm(token)
	if err != nil {
		return nil, failure.TokenMalformed(err)
	}
	if !verifiableWithRSA(alg) {
		return nil, v.algorithmNotAllowed(ctx, alg)
	}

	tok, err := jwt.ParseString(token,
		jwt.WithKey(alg, key),
		jwt.WithValidate(false))
	if err != nil {
		return nil, failure.TokenMalformed(err)
	}

	now := v.nowFunc()
	if exp, ok := tok.Expiration(); ok && !now.Before(exp) {
		return nil, failure.TokenExpired(exp)
	}
	if err := jwt.Validate(tok, jwt.WithClock(jwt.ClockFunc(v.nowFunc))); err != nil {
		return nil, failure.TokenMalformed(err)
	}

	if alg.String() != constants.AcceptedSigningAlgorithm {
		return nil, v.algorithmNotAllowed(ctx, alg)
	}

	p, err := newPayload(tok)
	if err != nil {
		return nil, failure.PayloadMalformed(err)
	}
	return p, nil
}

func (v *Verifier) algorithmNotAllowed(ctx context.Context, alg jwa.SignatureAlgorithm) error {
	logging.FromContext(ctx).WithFields(logrus.Fields{
		logging.FieldSecurityEvent: "algorithm_not_allowed",
		"algorithm":                alg.String(),
	}).Warn("rejected token signed with a non-accepted algorithm")
	return failure.AlgorithmNotAllowed(alg.String(), constants.AcceptedSigningAlgorithm)
}

func declaredAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	msg, err := jws.Parse([]byte(token))
	if err != nil {
		return jwa.SignatureAlgorithm{}, fmt.Errorf("failed to parse token: %w", err)
	}
	sigs := msg.Signatures()
	if len(sigs) != 1 {
		return jwa.SignatureAlgorithm{}, fmt.Errorf("expected one signature, got %d", len(sigs))
	}
	alg, ok := sigs[0].ProtectedHeaders().Algorithm()
	if !ok {
		return jwa.SignatureAlgorithm{}, fmt.Errorf("token header has no algorithm")
	}
	return alg, nil
}

func verifiableWithRSA(alg jwa.SignatureAlgorithm) bool {
	switch alg.String() {
	case jwa.RS256().String(), jwa.RS384().String(), jwa.RS512().String(),
		jwa.PS256().String(), jwa.PS384().String(), jwa.PS512().String():
		return true
	}
	return false
}
