package cache_test

import (
	"testing"
	"time"

	"github.com/boddenberg/pay-selfservice-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[[]byte](time.Minute)
	defer c.Close()

	c.Set("sid-1", []byte("sealed"), 5*time.Minute)

	got, ok := c.Get("sid-1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if string(got) != "sealed" {
		t.Errorf("expected 'sealed', got '%s'", got)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](time.Minute)
	defer c.Close()

	if _, ok := c.Get("nonexistent"); ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_PerEntryTTL(t *testing.T) {
	c := cache.New[string](time.Minute)
	defer c.Close()

	c.Set("short", "a", 20*time.Millisecond)
	c.Set("long", "b", time.Minute)
	time.Sleep(50 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Error("expected short-lived entry to be expired")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("expected long-lived entry to survive")
	}
}

func TestCache_SetReplacesExpiry(t *testing.T) {
	c := cache.New[string](time.Minute)
	defer c.Close()

	c.Set("key1", "v1", 20*time.Millisecond)
	c.Set("key1", "v2", time.Minute)
	time.Sleep(50 * time.Millisecond)

	got, ok := c.Get("key1")
	if !ok || got != "v2" {
		t.Errorf("expected v2 with the later expiry, got %q ok=%v", got, ok)
	}
}

func TestCache_SweepRemovesExpired(t *testing.T) {
	c := cache.New[string](20 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1", 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	if n := c.Len(); n != 0 {
		t.Errorf("expected expired entry swept, got %d entries", n)
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](time.Minute)
	defer c.Close()

	c.Set("key1", "value1", time.Minute)
	c.Delete("key1")

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_CloseTwice(t *testing.T) {
	c := cache.New[string](time.Minute)
	c.Close()
	c.Close()

	c.Set("key1", "value1", time.Minute)
	if _, ok := c.Get("key1"); !ok {
		t.Error("expected cache usable after close")
	}
}
