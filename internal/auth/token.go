package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SargisDallakyan/blogPlatform/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind int

const (
	KindAccess Kind = iota
	KindRefresh
)

func (k Kind) String() string {
	if k == KindRefresh {
		return "refresh"
	}
	return "access"
}

// Principal is the identity carried by a token.
type Principal struct {
	UserID   int
	Username string
	Role     types.Role
}

// PrincipalOf returns the token identity of a stored user.
func PrincipalOf(user types.User) Principal {
	return Principal{UserID: user.ID, Username: user.Username, Role: user.Role}
}

// Claims is the JWT payload shared by access and refresh tokens.
type Claims struct {
	UserID   int        `json:"userId"`
	Username string     `json:"username"`
	Role     types.Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal returns the identity encoded in the claims.
func (c *Claims) Principal() Principal {
	return Principal{UserID: c.UserID, Username: c.Username, Role: c.Role}
}

// Config holds the signing material. It is read once at startup.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Issuer signs and verifies tokens.
//
// Issuer is safe for concurrent use; its configuration never changes after NewIssuer.
type Issuer struct {
	cfg         Config
	now         func() time.Time
	revocations RevocationList
}

// Option customises an Issuer.
type Option func(*Issuer)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// WithRevocationList makes Verify reject tokens whose ID has been revoked.
func WithRevocationList(list RevocationList) Option {
	return func(i *Issuer) {
		i.revocations = list
	}
}

// NewIssuer validates cfg and constructs an Issuer.
func NewIssuer(cfg Config, opts ...Option) (*Issuer, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("access and refresh secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}

	// Copy the secrets so later mutation of the caller's slices has no effect.
	cfg.AccessSecret = append([]byte(nil), cfg.AccessSecret...)
	cfg.RefreshSecret = append([]byte(nil), cfg.RefreshSecret...)

	issuer := &Issuer{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer, nil
}

// IssueAccess mints a short-lived access token for p.
func (i *Issuer) IssueAccess(p Principal) (string, error) {
	return i.issue(p, KindAccess)
}

// IssueRefresh mints a long-lived refresh token for p.
func (i *Issuer) IssueRefresh(p Principal) (string, error) {
	return i.issue(p, KindRefresh)
}

// Verify checks the signature and expiry of tokenString against the secret for kind.
// It returns ErrTokenExpired, ErrTokenRevoked or an error wrapping ErrTokenInvalid.
func (i *Issuer) Verify(ctx context.Context, tokenString string, kind Kind) (*Claims, error) {
	secret, _ := i.material(kind)

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		// A forged token must never be reported as merely expired.
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.UserID < 1 || claims.Username == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing identity claims", ErrTokenInvalid)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, claims.Role)
	}

	if i.revocations != nil {
		revoked, err := i.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("checking revocation: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

// Refresh verifies a refresh token and mints a new access token with the same identity.
// The refresh token itself stays valid until it expires or is revoked.
func (i *Issuer) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := i.Verify(ctx, refreshToken, KindRefresh)
	if err != nil {
		return "", err
	}
	return i.IssueAccess(claims.Principal())
}

// Revoke records the claims' token ID until the token would have expired anyway.
func (i *Issuer) Revoke(ctx context.Context, claims *Claims) error {
	if i.revocations == nil {
		return errors.New("no revocation list configured")
	}
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return ErrTokenInvalid
	}
	if !claims.ExpiresAt.Time.After(i.now()) {
		return nil
	}
	return i.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

func (i *Issuer) issue(p Principal, kind Kind) (string, error) {
	if p.UserID < 1 || p.Username == "" || !p.Role.Valid() {
		return "", errors.New("incomplete principal")
	}

	secret, ttl := i.material(kind)
	now := i.now()
	claims := Claims{
		UserID:   p.UserID,
		Username: p.Username,
		Role:     p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(p.UserID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", kind, err)
	}
	return signed, nil
}

func (i *Issuer) material(kind Kind) ([]byte, time.Duration) {
	if kind == KindRefresh {
		return i.cfg.RefreshSecret, i.cfg.RefreshTTL
	}
	return i.cfg.AccessSecret, i.cfg.AccessTTL
}
