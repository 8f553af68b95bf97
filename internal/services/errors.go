package services

import "errors"

var (
	// ErrInvalidCredentials is returned by Login for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden is returned when the caller may not act on the target resource.
	ErrForbidden = errors.New("forbidden")

	// ErrCoversDisabled is returned by cover operations when no object storage is configured.
	ErrCoversDisabled = errors.New("cover storage not configured")
)
