package transport

import "strings"

// authFailureMarkers are conservative keyword matches for provider
// auth failures: token expiry/revocation, invalid grant/client, and
// permission denials. "author"/"authority" must not match — every marker
// below requires more context than the bare "auth" prefix to avoid that.
var authFailureMarkers = []string{
	"unauthorized",
	"invalid_grant",
	"invalid_client",
	"token expired",
	"token has been revoked",
	"refresh token",
	"auth_error",
	"authentication",
	"insufficient permissions",
}

// IsAuthFailure reports whether an error string indicates a provider
// auth failure (expired/revoked token, invalid grant, 401/403) rather
// than a transient or permanent delivery failure. Matching is
// substring-based against the lowercased error text; "authentication"
// is included specifically (not the bare "auth") so "author"/"authority"
// never match.
func IsAuthFailure(errText string) bool {
	lower := strings.ToLower(errText)
	for _, marker := range authFailureMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
