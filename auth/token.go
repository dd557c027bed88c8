// Package auth verifies the signed identity credential a client
// presents when opening a relay connection. Tokens are issued by the
// identity provider after the OAuth exchange; the relay only checks
// the signature and reads the claims back out.
package auth

import (
	stderrors "errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"discord-relay/errors"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	SubscriberID string `json:"discord_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	IsBot        bool   `json:"is_bot"`
	jwt.RegisteredClaims
}

// Verifier validates identity credentials with a shared HMAC secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates the signature and expiration of a JWT
// string. Failures collapse into three distinguishable reasons, each
// surfaced to the client as a connection-refusal reason:
// ErrTokenMissing, ErrTokenExpired, ErrTokenInvalid.
func (v *Verifier) Verify(tokenString string) (*CustomClaims, error) {
	if tokenString == "" {
		return nil, errors.ErrTokenMissing
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.ErrTokenInvalid
	}

	// A credential without an identity behind it is as bad as a forged one.
	if claims.SubscriberID == "" || claims.Username == "" {
		return nil, errors.ErrTokenInvalid
	}
	return claims, nil
}

// Issue creates a signed credential for a subscriber. The relay never
// calls this in production (the identity provider owns issuance); it
// exists for tests and local tooling.
func (v *Verifier) Issue(subscriberID, username, email string, isBot bool,
	ttl time.Duration) (string, error) {
	claims := &CustomClaims{
		SubscriberID: subscriberID,
		Username:     username,
		Email:        email,
		IsBot:        isBot,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "discord-relay",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
