package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/matheuscscp/integration-auth/internal/constants"
	"github.com/matheuscscp/integration-auth/internal/failure"
	"github.com/matheuscscp/integration-auth/internal/logging"
)

type errorResponse struct {
	Error    string `json:"error"`
	Solution string `json:"solution,omitempty"`
}

func configurationID(r *http.Request) string {
	return r.PathValue(constants.PathParamConfigurationID)
}

func statusFor(err error) int {
	switch failure.KindOf(err) {
	case failure.KindInvalidArgument:
		return http.StatusBadRequest
	case failure.KindTokenExpired, failure.KindTokenMalformed, failure.KindPayloadMalformed:
		return http.StatusUnauthorized
	case failure.KindAlgorithmNotAllowed:
		return http.StatusForbidden
	case failure.KindConfigurationUnavailable, failure.KindUpstreamUnavailable, failure.KindAuthProviderUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	l := logging.FromRequest(r).WithError(err).WithField("kind", failure.KindOf(err).String())
	if status >= http.StatusInternalServerError {
		l.Error("request failed")
	} else {
		l.Info("request rejected")
	}

	var fe *failure.Error
	if !errors.As(err, &fe) {
		respondJSON(w, r, status, errorResponse{Error: http.StatusText(status)})
		return
	}
	msg := fe.Message
	if msg == "" {
		msg = fe.Kind.String()
	}
	respondJSON(w, r, status, errorResponse{Error: msg, Solution: fe.Solution})
}

func respondWWWAuthenticate(w http.ResponseWriter, r *http.Request, err error) {
	challenge := fmt.Sprintf(`Bearer realm="%s"`, constants.IntegrationAuth)
	if failure.KindOf(err) != failure.KindInvalidArgument {
		challenge += `, error="invalid_token"`
	}
	w.Header().Set("WWW-Authenticate", challenge)

	logging.FromRequest(r).WithError(err).Info("bearer authentication failed")

	resp := errorResponse{Error: http.StatusText(http.StatusUnauthorized)}
	var fe *failure.Error
	if errors.As(err, &fe) {
		resp = errorResponse{Error: fe.Message, Solution: fe.Solution}
	}
	respondJSON(w, r, http.StatusUnauthorized, resp)
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromRequest(r).WithError(err).Error("failed to write response")
	}
}
