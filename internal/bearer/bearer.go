package bearer

import (
	"net/http"
	"strings"

	"github.com/matheuscscp/integration-auth/internal/constants"
)

// ExtractToken returns the credential of a "Bearer <token>" header value.
// The prefix is removed once; anything after it is returned verbatim.
func ExtractToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, constants.AuthorizationHeaderPrefix)
	if !ok {
		return "", false
	}
	return token, true
}

func FromRequest(r *http.Request) (string, bool) {
	return ExtractToken(r.Header.Get(constants.AuthorizationHeader))
}
