package transport

import "testing"

func TestIsAuthFailure(t *testing.T) {
	positive := []string{
		"401 Unauthorized",
		"error: invalid_grant",
		"invalid_client supplied",
		"the token expired at 10:00",
		"token has been revoked by user",
		"please provide a refresh token",
		"auth_error: bad credentials",
		"Authentication failed",
		"insufficient permissions to send",
	}
	for _, s := range positive {
		if !IsAuthFailure(s) {
			t.Errorf("expected %q to classify as auth failure", s)
		}
	}

	negative := []string{
		"the book's author was unavailable",
		"local authority rejected the request",
		"connection reset by peer",
		"450 mailbox temporarily unavailable",
	}
	for _, s := range negative {
		if IsAuthFailure(s) {
			t.Errorf("expected %q NOT to classify as auth failure", s)
		}
	}
}
