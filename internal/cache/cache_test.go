package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestKey(t *testing.T) {
	a := Key("credit-score")
	if !strings.HasPrefix(a, KeyPrefix) {
		t.Errorf("expected prefix %q, got %q", KeyPrefix, a)
	}
	if a != Key("credit-score") {
		t.Error("Key must be deterministic")
	}
	if a == Key("credit-score-v2") {
		t.Error("different ids must give different keys")
	}
	if strings.ContainsAny(strings.TrimPrefix(Key("../etc/passwd"), KeyPrefix), "/.") {
		t.Error("key must be safe as a file name")
	}
}

// exercise runs the same contract against every implementation
func exercise(t *testing.T, c Cache) {
	t.Helper()

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache should miss")
	}

	if err := c.Set("b", []byte("two"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set("a", []byte("one"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	val, ok := c.Get("a")
	if !ok || string(val) != "one" {
		t.Errorf("Get(a) = %q, %t", val, ok)
	}

	keys, err := c.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}

	if err := c.Set("a", []byte("uno"), 0); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if val, _ := c.Get("a"); string(val) != "uno" {
		t.Errorf("overwrite not visible, got %q", val)
	}

	if err := c.Delete("a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.Delete("a"); err != nil {
		t.Errorf("second Delete should be a no-op, got %v", err)
	}
	if _, ok := c.Get("a"); ok {
		t.Error("deleted key still present")
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	keys, err = c.Keys()
	if err != nil {
		t.Fatalf("Keys after Clear: %v", err)
	}
	if diff := cmp.Diff([]string{}, keys, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("expected no keys after Clear (-want +got):\n%s", diff)
	}
}

func TestMemoryCache(t *testing.T) {
	exercise(t, NewMemoryCache(0, time.Minute))
}

func TestDiskCache(t *testing.T) {
	exercise(t, NewDiskCache(filepath.Join(t.TempDir(), "store"), 0))
}

func TestLayeredCache(t *testing.T) {
	exercise(t, NewLayeredCache(0, filepath.Join(t.TempDir(), "store"), 0))
}

func TestMemoryCache_Expiration(t *testing.T) {
	c := NewMemoryCache(0, time.Minute)
	if err := c.Set("short", []byte("x"), time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := c.Set("forever", []byte("y"), 0); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Error("expected short-lived entry to expire")
	}
	if _, ok := c.Get("forever"); !ok {
		t.Error("entry without ttl must not expire")
	}
}

func TestDiskCache_Expiration(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, 0)

	if err := c.Set("short", []byte("x"), time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := c.Set("forever", []byte("y"), 0); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Error("expected short-lived entry to expire")
	}
	if _, err := os.Stat(c.path("short")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed from disk")
	}
	if _, ok := c.Get("forever"); !ok {
		t.Error("entry without ttl must not expire")
	}
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, 0)
	if err := os.WriteFile(c.path("bad"), []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("corrupt entry should miss")
	}
}

func TestDiskCache_KeysMissingDir(t *testing.T) {
	c := NewDiskCache(filepath.Join(t.TempDir(), "never-created"), 0)
	keys, err := c.Keys()
	if err != nil || len(keys) != 0 {
		t.Errorf("expected no keys and no error, got %v, %v", keys, err)
	}
}

func TestLayeredCache_PromotesFromDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")

	// A previous process wrote to disk only
	if err := NewDiskCache(dir, 0).Set("persisted", []byte("doc"), 0); err != nil {
		t.Fatal(err)
	}

	c := NewLayeredCache(0, dir, 0)
	keys, err := c.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"persisted"}, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}

	val, ok := c.Get("persisted")
	if !ok || string(val) != "doc" {
		t.Fatalf("Get = %q, %t", val, ok)
	}
	if _, ok := c.memory.Get("persisted"); !ok {
		t.Error("disk hit should be promoted to memory")
	}
}
