package cache

import (
	"errors"
	"testing"
	"time"
)

func newTestStore(now *time.Time) *Store {
	store := NewStore()
	store.now = func() time.Time { return *now }
	return store
}

func TestStoreExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	store := newTestStore(&now)
	store.Set("regions", []string{"us-east-1"}, time.Minute)
	if _, ok := store.Get("regions"); !ok {
		t.Fatalf("expected cached value")
	}
	now = now.Add(2 * time.Minute)
	if _, ok := store.Get("regions"); ok {
		t.Fatalf("expected value to expire")
	}
}

func TestStoreZeroTTLKeepsValue(t *testing.T) {
	now := time.Unix(1000, 0)
	store := newTestStore(&now)
	store.Set("k", "v", 0)
	now = now.Add(24 * time.Hour)
	if value, ok := store.Get("k"); !ok || value != "v" {
		t.Fatalf("expected value without expiry, got %v %v", value, ok)
	}
	store.Delete("k")
	if _, ok := store.Get("k"); ok {
		t.Fatalf("expected deleted value to be gone")
	}
}

func TestStoreRemember(t *testing.T) {
	now := time.Unix(1000, 0)
	store := newTestStore(&now)
	loads := 0
	load := func() (any, error) {
		loads++
		return loads, nil
	}
	value, hit, err := store.Remember("k", time.Minute, load)
	if err != nil || hit || value != 1 {
		t.Fatalf("unexpected first remember: %v %v %v", value, hit, err)
	}
	value, hit, err = store.Remember("k", time.Minute, load)
	if err != nil || !hit || value != 1 {
		t.Fatalf("unexpected cached remember: %v %v %v", value, hit, err)
	}
	if _, _, err := store.Remember("bad", time.Minute, func() (any, error) { return nil, errors.New("boom") }); err == nil {
		t.Fatalf("expected load error")
	}
	if _, ok := store.Get("bad"); ok {
		t.Fatalf("errors must not be cached")
	}
}

func TestNilStore(t *testing.T) {
	var store *Store
	store.Set("k", "v", time.Minute)
	store.Delete("k")
	if _, ok := store.Get("k"); ok {
		t.Fatalf("nil store should never hit")
	}
}
