package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/matheuscscp/integration-auth/internal/bearer"
	"github.com/matheuscscp/integration-auth/internal/failure"
	"github.com/matheuscscp/integration-auth/internal/issuer"
	"github.com/matheuscscp/integration-auth/internal/keycache"
	"github.com/matheuscscp/integration-auth/internal/logging"
	"github.com/matheuscscp/integration-auth/internal/pairing"
	"github.com/matheuscscp/integration-auth/internal/verifier"
)

const (
	pathAuthenticate    = "POST /v1/application/{configurationId}/authenticate"
	pathValidateTokens  = "POST /v1/application/{configurationId}/tokens/validate"
	pathJWT             = "GET /v1/application/{configurationId}/jwt"
	pathVerificationKey = "/v1/verification-key"

	// Only served when the platform is emulated, together with
	// "DELETE "+pathVerificationKey.
	pathDevJWT = "POST /dev/v1/jwt"
)

type tokenPairAuthenticator interface {
	Authenticate(ctx context.Context, configurationID string) (string, error)
	IsValidTokenPair(ctx context.Context, configurationID, applicationToken, symphonyToken string) (bool, error)
}

type tokenVerifier interface {
	Verify(ctx context.Context, token string) (*verifier.Payload, error)
}

type verificationKeyCache interface {
	Material() *keycache.Material
	Invalidate()
}

type userTokenIssuer interface {
	IssueUserToken(claims issuer.Claims) (string, time.Time, error)
}

func newAPI(integrations pairing.IntegrationResolver, auth tokenPairAuthenticator, v tokenVerifier,
	keys verificationKeyCache, dev userTokenIssuer) http.Handler {

	mux := http.NewServeMux()

	mux.HandleFunc(pathAuthenticate, func(w http.ResponseWriter, r *http.Request) {
		applicationToken, err := auth.Authenticate(r.Context(), configurationID(r))
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, r, http.StatusOK, map[string]any{
			"applicationToken": applicationToken,
		})
	})

	mux.HandleFunc(pathValidateTokens, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ApplicationToken string `json:"applicationToken"`
			SymphonyToken    string `json:"symphonyToken"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logging.FromRequest(r).WithError(err).Debug("failed to parse request body as JSON")
			respondJSON(w, r, http.StatusBadRequest, errorResponse{
				Error:    "failed to parse request body as JSON",
				Solution: "send a JSON object with applicationToken and symphonyToken",
			})
			return
		}

		valid, err := auth.IsValidTokenPair(r.Context(), configurationID(r),
			req.ApplicationToken, req.SymphonyToken)
		if err != nil {
			respondError(w, r, err)
			return
		}
		status := http.StatusOK
		if !valid {
			status = http.StatusUnauthorized
		}
		respondJSON(w, r, status, map[string]any{"valid": valid})
	})

	mux.Handle(pathJWT, requireBearer(v, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := configurationID(r)
		if _, ok := integrations.Integration(id); !ok {
			respondError(w, r, failure.ConfigurationUnavailable(id))
			return
		}
		respondJSON(w, r, http.StatusOK, verifier.PayloadFromContext(r.Context()))
	})))

	mux.HandleFunc("GET "+pathVerificationKey, func(w http.ResponseWriter, r *http.Request) {
		m := keys.Material()
		if m == nil {
			respondJSON(w, r, http.StatusOK, map[string]any{"cached": false})
			return
		}
		kid, _ := m.Key.KeyID()
		respondJSON(w, r, http.StatusOK, map[string]any{
			"cached":     true,
			jwk.KeyIDKey: kid,
			"fetchedAt":  m.FetchedAt,
			"expiresAt":  m.ExpiresAt,
		})
	})

	if dev != nil {
		mux.HandleFunc("DELETE "+pathVerificationKey, func(w http.ResponseWriter, r *http.Request) {
			keys.Invalidate()
			logging.FromRequest(r).Info("verification key invalidated")
			w.WriteHeader(http.StatusNoContent)
		})

		mux.HandleFunc(pathDevJWT, func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Issuer   string `json:"iss"`
				Subject  string `json:"sub"`
				Audience string `json:"aud"`
				UserID   int64  `json:"userId"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondJSON(w, r, http.StatusBadRequest, errorResponse{
					Error:    "failed to parse request body as JSON",
					Solution: "send a JSON object with sub and userId",
				})
				return
			}
			if req.Subject == "" {
				respondError(w, r, failure.InvalidArgument("sub"))
				return
			}
			if req.Issuer == "" {
				req.Issuer = "dev"
			}
			token, exp, err := dev.IssueUserToken(issuer.Claims{
				Issuer:   req.Issuer,
				Subject:  req.Subject,
				Audience: req.Audience,
				UserID:   req.UserID,
			})
			if err != nil {
				respondError(w, r, err)
				return
			}
			respondJSON(w, r, http.StatusOK, map[string]any{
				"token":     token,
				"expiresAt": exp,
			})
		})
	}

	return mux
}

// requireBearer verifies the bearer token of the request and stores its
// payload in the request context.
func requireBearer(v tokenVerifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearer.FromRequest(r)
		if !ok || token == "" {
			respondWWWAuthenticate(w, r, failure.InvalidArgument("bearer token"))
			return
		}
		p, err := v.Verify(r.Context(), token)
		if err != nil {
			switch failure.KindOf(err) {
			case failure.KindTokenExpired, failure.KindTokenMalformed,
				failure.KindPayloadMalformed, failure.KindInvalidArgument:
				respondWWWAuthenticate(w, r, err)
			default:
				respondError(w, r, err)
			}
			return
		}
		next.ServeHTTP(w, r.WithContext(verifier.IntoContext(r.Context(), p)))
	})
}
