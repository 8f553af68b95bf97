package auth

import "errors"

var (
	// ErrTokenExpired is returned for a correctly signed token past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid covers malformed, forged, or wrongly signed tokens.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenRevoked is returned for a token whose ID is on the revocation list.
	ErrTokenRevoked = errors.New("token revoked")
)
