// Package auth turns a bearer credential into an Identity. The core
// treats this as an external collaborator behind the Verifier port.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dkeye/Plaza/internal/domain"
)

// ErrAuthenticationFailed is terminal for the connection that sent the
// credential; the transport closes the socket on it.
var ErrAuthenticationFailed = errors.New("authentication failed")

type Verifier interface {
	Verify(credential string) (domain.Identity, error)
}

// JWTVerifier validates HMAC-signed tokens carrying identity claims:
// sub (identity id), name (display name), avatar (optional).
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(credential string) (domain.Identity, error) {
	token, err := jwt.Parse(credential, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return domain.Identity{}, ErrAuthenticationFailed
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Identity{}, ErrAuthenticationFailed
	}
	sub, _ := claims["sub"].(string)
	name, _ := claims["name"].(string)
	avatar, _ := claims["avatar"].(string)
	if sub == "" {
		return domain.Identity{}, ErrAuthenticationFailed
	}
	if name == "" {
		name = sub
	}

	identity, err := domain.NewIdentity(domain.IdentityID(sub), name, avatar)
	if err != nil {
		return domain.Identity{}, ErrAuthenticationFailed
	}
	return identity, nil
}
