package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is a signed token together with its expiration moment.
type TokenInfo struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	Access  TokenInfo `json:"access"`
	Refresh TokenInfo `json:"refresh"`
}

// Issuer mints the three token kinds. It does no I/O; the caller supplies
// the token version read from storage. All kinds are signed with the same
// HS256 secret.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	resetTTL   time.Duration

	// now is a seam for tests.
	now func() time.Time
}

func NewIssuer(secret []byte, accessTTL, refreshTTL, resetTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		resetTTL:   resetTTL,
		now:        time.Now,
	}
}

func (i *Issuer) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// IssueAuthTokens mints an access/refresh pair for the given user state.
// A signing error means the process is misconfigured; callers treat it as
// fatal rather than a per-request condition.
func (i *Issuer) IssueAuthTokens(userID, tier, tokenVersion int64) (*TokenPair, error) {
	now := i.now()

	accessExpires := now.Add(i.accessTTL)
	access, err := i.sign(&AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(accessExpires)},
		UserID:           &userID,
		Tier:             &tier,
		TokenVersion:     &tokenVersion,
	})
	if err != nil {
		return nil, err
	}

	refreshExpires := now.Add(i.refreshTTL)
	refresh, err := i.sign(&RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(refreshExpires)},
		UserID:           &userID,
		TokenVersion:     &tokenVersion,
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		Access:  TokenInfo{Token: access, Expires: accessExpires},
		Refresh: TokenInfo{Token: refresh, Expires: refreshExpires},
	}, nil
}

// IssueResetToken mints a short-lived password-reset token. Reset tokens
// carry no token version and are not subject to the revocation check;
// they stay valid until exp even after use. The reset flow compensates by
// revoking all auth tokens once the password change commits.
func (i *Issuer) IssueResetToken(userID int64) (string, error) {
	return i.sign(&ResetClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(i.now().Add(i.resetTTL))},
		ID:               &userID,
	})
}
