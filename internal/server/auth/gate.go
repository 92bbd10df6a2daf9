package auth

import "github.com/avolkov/tiergate/internal/common"

// Authorize allows the request iff the identity owns the resource and its
// tier is at least requiredTier. Tier 0 is a valid level: requiredTier 0
// passes for any authenticated owner. Both failure modes return the same
// common.ErrorForbidden so the response does not leak which check failed.
func Authorize(id *Identity, requiredTier int64, ownerID int64) error {
	if id == nil || id.UserID != ownerID || id.Tier < requiredTier {
		return common.ErrorForbidden
	}
	return nil
}
