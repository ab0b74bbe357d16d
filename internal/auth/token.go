package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type claims struct {
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier accepts HS256 bearer tokens whose subject is the user id
// and whose "sid" claim is the session id.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier returns nil when secret is empty; a nil verifier rejects
// every token.
func NewTokenVerifier(secret string) *TokenVerifier {
	if secret == "" {
		return nil
	}
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses token and returns the session it carries.
func (v *TokenVerifier) Verify(token string) (Session, error) {
	if v == nil {
		return Session{}, errors.New("bearer tokens are not enabled")
	}
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Session{}, fmt.Errorf("verify token: %w", err)
	}
	if c.Subject == "" {
		return Session{}, errors.New("verify token: missing subject")
	}
	return Session{ID: c.SessionID, UserID: c.Subject}, nil
}

// Issue signs a token for s valid for ttl.
func (v *TokenVerifier) Issue(s Session, ttl time.Duration) (string, error) {
	if v == nil {
		return "", errors.New("bearer tokens are not enabled")
	}
	now := time.Now()
	c := claims{
		SessionID: s.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
}
