package failure

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an authentication failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfigurationUnavailable
	KindUpstreamUnavailable
	KindAuthProviderUnavailable
	KindTokenExpired
	KindTokenMalformed
	KindAlgorithmNotAllowed
	KindPayloadMalformed
	KindInvalidArgument
	KindPersistenceFailure
	KindInternal
)

var kindNames = map[Kind]string{
	KindUnknown:                  "Unknown",
	KindConfigurationUnavailable: "ConfigurationUnavailable",
	KindUpstreamUnavailable:      "UpstreamUnavailable",
	KindAuthProviderUnavailable:  "AuthProviderUnavailable",
	KindTokenExpired:             "TokenExpired",
	KindTokenMalformed:           "TokenMalformed",
	KindAlgorithmNotAllowed:      "AlgorithmNotAllowed",
	KindPayloadMalformed:         "PayloadMalformed",
	KindInvalidArgument:          "InvalidArgument",
	KindPersistenceFailure:       "PersistenceFailure",
	KindInternal:                 "Internal",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the failure type returned across the engine boundary. Message is
// meant for logs and callers, Solution is a hint for the operator.
type Error struct {
	Kind     Kind
	Message  string
	Solution string

	// ExpiresAt is set for KindTokenExpired.
	ExpiresAt time.Time
	// Algorithm is set for KindAlgorithmNotAllowed.
	Algorithm string

	Err error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrConfigurationUnavailable = &Error{Kind: KindConfigurationUnavailable}
	ErrUpstreamUnavailable      = &Error{Kind: KindUpstreamUnavailable}
	ErrAuthProviderUnavailable  = &Error{Kind: KindAuthProviderUnavailable}
	ErrTokenExpired             = &Error{Kind: KindTokenExpired}
	ErrTokenMalformed           = &Error{Kind: KindTokenMalformed}
	ErrAlgorithmNotAllowed      = &Error{Kind: KindAlgorithmNotAllowed}
	ErrPayloadMalformed         = &Error{Kind: KindPayloadMalformed}
	ErrInvalidArgument          = &Error{Kind: KindInvalidArgument}
	ErrPersistenceFailure       = &Error{Kind: KindPersistenceFailure}
	ErrInternal                 = &Error{Kind: KindInternal}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality. An auth provider outage is also an upstream outage.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return t.Kind == KindUpstreamUnavailable && e.Kind == KindAuthProviderUnavailable
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func ConfigurationUnavailable(configurationID string) *Error {
	return &Error{
		Kind:     KindConfigurationUnavailable,
		Message:  fmt.Sprintf("integration with configuration id '%s' is unavailable", configurationID),
		Solution: "check that the integration is listed in the configuration file and restart the service",
	}
}

func UpstreamUnavailable(what string, err error) *Error {
	return &Error{
		Kind:     KindUpstreamUnavailable,
		Message:  fmt.Sprintf("%s is unavailable", what),
		Solution: "check the connectivity with the platform and try again later",
		Err:      err,
	}
}

func AuthProviderUnavailable(appID string, err error) *Error {
	return &Error{
		Kind:     KindAuthProviderUnavailable,
		Message:  fmt.Sprintf("failed to authenticate application '%s' with the platform", appID),
		Solution: "check that the application is registered and enabled on the platform",
		Err:      err,
	}
}

func TokenExpired(expiresAt time.Time) *Error {
	return &Error{
		Kind:      KindTokenExpired,
		Message:   fmt.Sprintf("token expired at %s", expiresAt.UTC().Format(time.RFC3339)),
		Solution:  "authenticate again to obtain a new token",
		ExpiresAt: expiresAt,
	}
}

func TokenMalformed(err error) *Error {
	return &Error{
		Kind:     KindTokenMalformed,
		Message:  "token is malformed or its signature is invalid",
		Solution: "make sure the token was issued by the platform and was not modified",
		Err:      err,
	}
}

func AlgorithmNotAllowed(actual, expected string) *Error {
	return &Error{
		Kind:      KindAlgorithmNotAllowed,
		Message:   fmt.Sprintf("token signing algorithm '%s' is not allowed", actual),
		Solution:  fmt.Sprintf("tokens must be signed with %s", expected),
		Algorithm: actual,
	}
}

func PayloadMalformed(err error) *Error {
	return &Error{
		Kind:     KindPayloadMalformed,
		Message:  "token claims could not be decoded",
		Solution: "make sure the token carries the claims issued by the platform",
		Err:      err,
	}
}

func InvalidArgument(name string) *Error {
	return &Error{
		Kind:     KindInvalidArgument,
		Message:  fmt.Sprintf("%s must be set", name),
		Solution: fmt.Sprintf("provide a non-empty %s", name),
	}
}

func PersistenceFailure(err error) *Error {
	return &Error{
		Kind:     KindPersistenceFailure,
		Message:  "failed to access the application token pair",
		Solution: "check the connectivity with the platform and try again later",
		Err:      err,
	}
}

// Internal covers failures of the service itself, such as the random source.
func Internal(what string, err error) *Error {
	return &Error{
		Kind:     KindInternal,
		Message:  fmt.Sprintf("failed to %s", what),
		Solution: "check the service logs and try again later",
		Err:      err,
	}
}
