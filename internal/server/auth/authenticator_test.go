package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avolkov/tiergate/internal/common"
)

type fakeVersionStore struct {
	version int64
	err     error
	calls   int
}

func (f *fakeVersionStore) CurrentTokenVersion(ctx context.Context, userID int64) (int64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.version, nil
}

func issueAccess(t *testing.T, userID, tier, version int64) string {
	t.Helper()
	pair, err := newTestIssuer().IssueAuthTokens(userID, tier, version)
	if err != nil {
		t.Fatalf("IssueAuthTokens error: %v", err)
	}
	return pair.Access.Token
}

func TestAuthenticate_Accepted(t *testing.T) {
	store := &fakeVersionStore{version: 5}
	a := NewAuthenticator(testSecret, store)

	id, err := a.Authenticate(context.Background(), issueAccess(t, 42, 3, 5))
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if id.UserID != 42 || id.Tier != 3 || id.TokenVersion != 5 {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if store.calls != 1 {
		t.Fatalf("expected exactly one store lookup, got %d", store.calls)
	}
}

// A version mismatch rejects no matter how much lifetime the token has
// left.
func TestAuthenticate_RevokedVersion(t *testing.T) {
	a := NewAuthenticator(testSecret, &fakeVersionStore{version: 6})

	_, err := a.Authenticate(context.Background(), issueAccess(t, 42, 3, 5))
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken for stale version, got %v", err)
	}
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	a := NewAuthenticator(testSecret, &fakeVersionStore{err: common.ErrorNotFound})

	_, err := a.Authenticate(context.Background(), issueAccess(t, 42, 3, 5))
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken for unknown user, got %v", err)
	}
}

// Storage failures reject, never accept.
func TestAuthenticate_StoreErrorFailsSecure(t *testing.T) {
	a := NewAuthenticator(testSecret, &fakeVersionStore{err: errors.New("connection reset")})

	_, err := a.Authenticate(context.Background(), issueAccess(t, 42, 3, 5))
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken on store failure, got %v", err)
	}
}

func TestAuthenticate_BadToken(t *testing.T) {
	store := &fakeVersionStore{version: 5}
	a := NewAuthenticator(testSecret, store)

	_, err := a.Authenticate(context.Background(), "garbage")
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
	if store.calls != 0 {
		t.Fatalf("store must not be consulted for an undecodable token")
	}
}

// Re-login after revocation issues a token with the advanced version,
// which authenticates again.
func TestAuthenticate_ReissuedAfterRevoke(t *testing.T) {
	store := &fakeVersionStore{version: 5}
	a := NewAuthenticator(testSecret, store)

	old := issueAccess(t, 1, 0, 5)
	store.version = 6

	if _, err := a.Authenticate(context.Background(), old); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("old token must fail after revoke, got %v", err)
	}
	if _, err := a.Authenticate(context.Background(), issueAccess(t, 1, 0, 6)); err != nil {
		t.Fatalf("reissued token must authenticate: %v", err)
	}
}

func TestCachedVersionStore_ServesFromCacheWithinTTL(t *testing.T) {
	backing := &fakeVersionStore{version: 3}
	c := NewCachedVersionStore(backing, time.Minute)

	for i := 0; i < 3; i++ {
		v, err := c.CurrentTokenVersion(context.Background(), 1)
		if err != nil || v != 3 {
			t.Fatalf("unexpected result: %d, %v", v, err)
		}
	}
	if backing.calls != 1 {
		t.Fatalf("expected single backing lookup, got %d", backing.calls)
	}
}

func TestCachedVersionStore_ExpiresAfterTTL(t *testing.T) {
	backing := &fakeVersionStore{version: 3}
	c := NewCachedVersionStore(backing, time.Minute)

	base := time.Now()
	c.now = func() time.Time { return base }
	if _, err := c.CurrentTokenVersion(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := c.CurrentTokenVersion(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backing.calls != 2 {
		t.Fatalf("expected refetch after TTL, got %d calls", backing.calls)
	}
}

func TestCachedVersionStore_InvalidateForcesRefetch(t *testing.T) {
	backing := &fakeVersionStore{version: 3}
	c := NewCachedVersionStore(backing, time.Minute)

	if _, err := c.CurrentTokenVersion(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	backing.version = 4
	c.Invalidate(1)

	v, err := c.CurrentTokenVersion(context.Background(), 1)
	if err != nil || v != 4 {
		t.Fatalf("expected fresh version 4, got %d, %v", v, err)
	}
}

func TestCachedVersionStore_ErrorsNotCached(t *testing.T) {
	backing := &fakeVersionStore{err: errors.New("down")}
	c := NewCachedVersionStore(backing, time.Minute)

	if _, err := c.CurrentTokenVersion(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}
	backing.err = nil
	backing.version = 9

	v, err := c.CurrentTokenVersion(context.Background(), 1)
	if err != nil || v != 9 {
		t.Fatalf("expected recovery after backing error, got %d, %v", v, err)
	}
}
