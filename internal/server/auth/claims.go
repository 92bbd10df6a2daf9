// Package auth implements the token core: claim shapes, issuing,
// per-request authentication with the revocation check, the tier gate,
// and password hashing.
package auth

import (
	"github.com/avolkov/tiergate/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// The three claim shapes are closed types decoded by their own functions.
// Required fields are pointers so that an absent claim is distinguishable
// from a zero value; presence is enforced during parsing via Validate,
// so a token that decodes successfully always has its fields set.

// AccessClaims is the payload of a short-lived access token. Tier rides
// along so handlers can authorize without a second identity lookup; it is
// not a substitute for the token-version check.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID       *int64 `json:"userId,omitempty"`
	Tier         *int64 `json:"tier,omitempty"`
	TokenVersion *int64 `json:"tokenVersion,omitempty"`
}

// Validate is called by the jwt parser after the standard checks.
func (c *AccessClaims) Validate() error {
	if c.UserID == nil || c.Tier == nil || c.TokenVersion == nil {
		return common.ErrInvalidToken
	}
	return nil
}

// RefreshClaims is the payload of a long-lived refresh token. It carries
// no tier: a refreshed access token is re-derived from current user
// state, which bounds tier staleness to the access-token lifetime.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UserID       *int64 `json:"userId,omitempty"`
	TokenVersion *int64 `json:"tokenVersion,omitempty"`
}

func (c *RefreshClaims) Validate() error {
	if c.UserID == nil || c.TokenVersion == nil {
		return common.ErrInvalidToken
	}
	return nil
}

// ResetClaims is the payload of a password-reset token. It is single
// purpose and deliberately minimal; see Issuer.IssueResetToken for its
// revocation semantics.
type ResetClaims struct {
	jwt.RegisteredClaims
	ID *int64 `json:"id,omitempty"`
}

func (c *ResetClaims) Validate() error {
	if c.ID == nil {
		return common.ErrInvalidToken
	}
	return nil
}

// parserOptions restricts accepted tokens to HS256 with a mandatory exp.
var parserOptions = []jwt.ParserOption{
	jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	jwt.WithExpirationRequired(),
}

func decode(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, parserOptions...)
	if err != nil || !token.Valid {
		return common.ErrInvalidToken
	}
	return nil
}

// DecodeAccess verifies signature, algorithm, expiry and required claims
// of an access token. Every failure collapses to common.ErrInvalidToken;
// a malformed payload is indistinguishable from a revoked one.
func DecodeAccess(tokenString string, secret []byte) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := decode(tokenString, claims, secret); err != nil {
		return nil, err
	}
	return claims, nil
}

// DecodeRefresh verifies a refresh token.
func DecodeRefresh(tokenString string, secret []byte) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := decode(tokenString, claims, secret); err != nil {
		return nil, err
	}
	return claims, nil
}

// DecodeReset verifies a password-reset token.
func DecodeReset(tokenString string, secret []byte) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := decode(tokenString, claims, secret); err != nil {
		return nil, err
	}
	return claims, nil
}
