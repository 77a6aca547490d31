package constants

import "time"

const (
	IntegrationAuth = "integration-auth"

	AuthorizationHeader       = "Authorization"
	AuthorizationHeaderPrefix = "Bearer "
	SessionTokenHeader        = "sessionToken"

	// The pod signs user assertions with RS512 only.
	AcceptedSigningAlgorithm = "RS512"

	// Verification keys are trusted for a fixed window after they are fetched.
	VerificationKeyTTL = 60 * time.Minute

	ClaimIssuer    = "iss"
	ClaimSubject   = "sub"
	ClaimAudience  = "aud"
	ClaimExpiresAt = "exp"
	ClaimIssuedAt  = "iat"
	ClaimUserID    = "userId"

	PathParamConfigurationID = "configurationId"
)
