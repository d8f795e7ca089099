package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bellapacxx/roshambo-backend/game"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is who is on the other end of a connection.
type Identity struct {
	UserID      string
	DisplayName string
	AccountRef  string
}

type IdentityProvider interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

type playerClaims struct {
	Name    string `json:"name"`
	Account string `json:"account"`
	jwt.RegisteredClaims
}

// JWTIdentityProvider verifies HS256 bearer tokens.
type JWTIdentityProvider struct {
	secret []byte
	issuer string
}

func NewJWTIdentityProvider(secret, issuer string) *JWTIdentityProvider {
	return &JWTIdentityProvider{secret: []byte(secret), issuer: issuer}
}

func (p *JWTIdentityProvider) Authenticate(_ context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return Identity{}, game.ErrUnauthenticated
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	var claims playerClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", game.ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", game.ErrUnauthenticated)
	}

	id := Identity{UserID: claims.Subject, DisplayName: claims.Name, AccountRef: claims.Account}
	if id.AccountRef == "" {
		id.AccountRef = id.UserID
	}
	return id, nil
}

// Sign issues a token for id. Used by tooling and tests.
func (p *JWTIdentityProvider) Sign(id Identity, claims jwt.RegisteredClaims) (string, error) {
	if id.UserID == "" {
		return "", errors.New("identity has no user id")
	}
	claims.Subject = id.UserID
	if claims.Issuer == "" {
		claims.Issuer = p.issuer
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, playerClaims{
		Name:             id.DisplayName,
		Account:          id.AccountRef,
		RegisteredClaims: claims,
	})
	return t.SignedString(p.secret)
}
