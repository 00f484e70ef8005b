// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

// Package token signs and verifies the bearer tokens returned by Login.
package token

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/netserver/accounts/internal/auth"
)

// MinSecretLength is the shortest HMAC secret accepted, in bytes.
const MinSecretLength = 32

// DefaultTTL is the lifetime of an issued token.
const DefaultTTL = 30 * time.Minute

// Config configures an Issuer.
type Config struct {
	Secret   string        `koanf:"secret"`
	Issuer   string        `koanf:"issuer"`
	Audience string        `koanf:"audience"`
	TTL      time.Duration `koanf:"ttl"`

	// IssueTimeout bounds each Issue call made during login.
	IssueTimeout time.Duration `koanf:"issue_timeout"`
}

// Claims is the JWT payload. Registered claims carry the user id as subject.
type Claims struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Gender    string `json:"gender"`
	AvatarURL string `json:"avatar_url"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs HS256 tokens. It implements auth.TokenIssuer.
type Issuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, oops.Code("TOKEN_SECRET_INVALID").
			Errorf("jwt secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.Issuer == "" {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("jwt issuer is required")
	}
	if cfg.Audience == "" {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("jwt audience is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// Issue signs a token for claims.
func (i *Issuer) Issue(ctx context.Context, claims auth.Claims) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").Wrap(err)
	}

	now := i.now()
	payload := Claims{
		Username:  claims.Username,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		Email:     claims.Email,
		Phone:     claims.Phone,
		Address:   claims.Address,
		Gender:    claims.Gender,
		AvatarURL: claims.AvatarURL,
		Role:      claims.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   claims.UserID.String(),
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(i.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").With("user_id", claims.UserID.String()).Wrap(err)
	}
	return signed, nil
}

// Parse verifies a token's signature, issuer, audience and lifetime and returns
// the claims it carries.
func (i *Issuer) Parse(tokenString string) (auth.Claims, error) {
	var payload Claims
	_, err := jwt.ParseWithClaims(tokenString, &payload,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return auth.Claims{}, oops.Code("TOKEN_INVALID").Wrap(err)
	}

	userID, err := ulid.Parse(payload.Subject)
	if err != nil {
		return auth.Claims{}, oops.Code("TOKEN_INVALID").With("subject", payload.Subject).Wrap(err)
	}
	return auth.Claims{
		UserID:    userID,
		Username:  payload.Username,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Address:   payload.Address,
		Gender:    payload.Gender,
		AvatarURL: payload.AvatarURL,
		Role:      payload.Role,
	}, nil
}

var _ auth.TokenIssuer = (*Issuer)(nil)
