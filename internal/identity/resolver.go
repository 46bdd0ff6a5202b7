// Package identity resolves the acting user of a request.
//
// Two resolvers exist. HeaderResolver trusts the X-User-ID and X-User-Role
// headers sent by the client. JWTResolver reads an HS256 bearer token with
// sub and role claims. Neither checks the pair against stored users.
package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bissquit/timesheet/internal/domain"
)

// Request headers read by HeaderResolver.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// Identity errors.
var (
	ErrInvalidRole   = errors.New("invalid actor role")
	ErrMissingUserID = errors.New("actor user id is required")
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrMalformedAuth = errors.New("invalid authorization header format")
)

// HeaderResolver reads the actor from request headers.
type HeaderResolver struct{}

// ResolveActor implements httputil.ActorResolver.
func (HeaderResolver) ResolveActor(r *http.Request) (domain.Actor, bool, error) {
	id := strings.TrimSpace(r.Header.Get(HeaderUserID))
	role := domain.Role(strings.TrimSpace(r.Header.Get(HeaderUserRole)))

	if id == "" && role == "" {
		return domain.Actor{}, false, nil
	}
	if id == "" {
		return domain.Actor{}, false, ErrMissingUserID
	}
	if !role.IsValid() {
		return domain.Actor{}, false, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	return domain.Actor{ID: id, Role: role}, true, nil
}

// Claims are the JWT claims of an actor token.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTResolver reads the actor from an HS256 bearer token.
type JWTResolver struct {
	secret []byte
}

// NewJWTResolver creates a resolver verifying tokens with secret.
func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

// ResolveActor implements httputil.ActorResolver.
func (j *JWTResolver) ResolveActor(r *http.Request) (domain.Actor, bool, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return domain.Actor{}, false, nil
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return domain.Actor{}, false, ErrMalformedAuth
	}

	actor, err := j.Parse(parts[1])
	if err != nil {
		return domain.Actor{}, false, err
	}
	return actor, true, nil
}

// Parse validates a token and returns its actor.
func (j *JWTResolver) Parse(token string) (domain.Actor, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Actor{}, ErrInvalidToken
	}

	if claims.Subject == "" {
		return domain.Actor{}, ErrMissingUserID
	}
	if !claims.Role.IsValid() {
		return domain.Actor{}, fmt.Errorf("%w: %q", ErrInvalidRole, claims.Role)
	}

	return domain.Actor{ID: claims.Subject, Role: claims.Role}, nil
}

// Issue signs a token for actor valid for ttl.
func (j *JWTResolver) Issue(actor domain.Actor, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Role: actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
