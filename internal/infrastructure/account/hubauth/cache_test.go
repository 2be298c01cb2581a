package hubauth

import (
	"testing"
	"time"

	"github.com/riskibarqy/matchday/internal/domain/user"
)

func TestPrincipalCache_SetGet(t *testing.T) {
	t.Parallel()

	cache := newPrincipalCache(200*time.Millisecond, 10)
	cache.Set("k1", user.Principal{UserID: "u-1"})

	principal, ok := cache.Get("k1")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if principal.UserID != "u-1" {
		t.Fatalf("unexpected user id: %s", principal.UserID)
	}
}

func TestPrincipalCache_Expired(t *testing.T) {
	t.Parallel()

	cache := newPrincipalCache(20*time.Millisecond, 10)
	cache.Set("k1", user.Principal{UserID: "u-1"})
	time.Sleep(40 * time.Millisecond)

	if _, ok := cache.Get("k1"); ok {
		t.Fatalf("expected cache miss after expiry")
	}
}

func TestPrincipalCache_EvictsWhenFull(t *testing.T) {
	t.Parallel()

	cache := newPrincipalCache(time.Minute, 2)
	cache.Set("k1", user.Principal{UserID: "u-1"})
	cache.Set("k2", user.Principal{UserID: "u-2"})
	cache.Set("k3", user.Principal{UserID: "u-3"})

	if _, ok := cache.Get("k3"); !ok {
		t.Fatalf("expected most recent entry to be present")
	}

	present := 0
	for _, key := range []string{"k1", "k2", "k3"} {
		if _, ok := cache.Get(key); ok {
			present++
		}
	}
	if present > 2 {
		t.Fatalf("expected eviction to cap entries at 2, got %d", present)
	}
}

func TestHashToken_DoesNotLeakToken(t *testing.T) {
	t.Parallel()

	hashed := hashToken("super-secret-token")
	if hashed == "super-secret-token" {
		t.Fatalf("expected token to be hashed")
	}
	if len(hashed) != 64 {
		t.Fatalf("unexpected digest length: %d", len(hashed))
	}
	if hashed != hashToken("super-secret-token") {
		t.Fatalf("expected deterministic digest")
	}
}
