package auth

import (
	"context"

	"github.com/avolkov/tiergate/internal/common"
)

// VersionStore reads the persisted token version for a user. It is the
// only storage capability the authenticator depends on.
type VersionStore interface {
	CurrentTokenVersion(ctx context.Context, userID int64) (int64, error)
}

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID       int64
	Tier         int64
	TokenVersion int64
}

// Authenticator decides, per request, whether a bearer token is valid:
// signature, algorithm and expiry first, then the stateful revocation
// check against the version store.
type Authenticator struct {
	secret   []byte
	versions VersionStore
}

func NewAuthenticator(secret []byte, versions VersionStore) *Authenticator {
	return &Authenticator{secret: secret, versions: versions}
}

// Authenticate returns the identity carried by a valid access token, or
// common.ErrInvalidToken. Rejections are not differentiated: a bad
// signature, missing claims, an unknown user, a version mismatch and a
// store failure all look the same to the caller. A store failure in
// particular must reject; the check never fails open.
func (a *Authenticator) Authenticate(ctx context.Context, rawToken string) (*Identity, error) {
	claims, err := DecodeAccess(rawToken, a.secret)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	stored, err := a.versions.CurrentTokenVersion(ctx, *claims.UserID)
	if err != nil {
		return nil, common.ErrInvalidToken
	}
	if stored != *claims.TokenVersion {
		return nil, common.ErrInvalidToken
	}

	return &Identity{
		UserID:       *claims.UserID,
		Tier:         *claims.Tier,
		TokenVersion: *claims.TokenVersion,
	}, nil
}
