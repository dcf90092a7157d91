package memory

import (
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func TestPutAndGet(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Put("findings", "api-shape", "REST with cursor pagination", 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entry, err := store.Get("findings", "api-shape")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry == nil {
		t.Fatal("Get returned nil for existing entry")
	}
	if entry.Value != "REST with cursor pagination" {
		t.Errorf("value = %q, want the stored value", entry.Value)
	}
	if entry.ExpiresAt != nil {
		t.Errorf("ExpiresAt = %v, want nil for ttl 0", entry.ExpiresAt)
	}
}

func TestGet_Missing(t *testing.T) {
	store := setupTestStore(t)

	entry, err := store.Get("findings", "nothing-here")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry != nil {
		t.Errorf("Get(missing) = %+v, want nil", entry)
	}
}

func TestPut_Replaces(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Put("findings", "k", "first", 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put("findings", "k", "second", 0); err != nil {
		t.Fatalf("Put (replace) failed: %v", err)
	}

	entry, err := store.Get("findings", "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.Value != "second" {
		t.Errorf("value = %q, want the replacement", entry.Value)
	}

	entries, err := store.List("findings")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("List returned %d entries, want 1", len(entries))
	}
}

func TestTTLExpiry(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Put("scratch", "ephemeral", "soon gone", 10*time.Millisecond); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put("scratch", "durable", "stays", 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	entry, err := store.Get("scratch", "ephemeral")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry != nil {
		t.Errorf("expired entry still returned: %+v", entry)
	}

	entries, err := store.List("scratch")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Key != "durable" {
		t.Errorf("List = %+v, want only the durable entry", entries)
	}
}

func TestCleanup(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Put("scratch", "a", "x", 10*time.Millisecond); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put("scratch", "b", "y", 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	count, err := store.Cleanup()
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Cleanup removed %d entries, want 1", count)
	}
}

func TestAccessCount(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Put("findings", "hot", "popular value", 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := store.Get("findings", "hot"); err != nil {
			t.Fatalf("Get %d failed: %v", i, err)
		}
	}

	entry, err := store.Get("findings", "hot")
	if err != nil {
		t.Fatalf("final Get failed: %v", err)
	}
	if entry.AccessCount != 4 {
		t.Errorf("AccessCount = %d, want 4", entry.AccessCount)
	}
}

func TestNamespaceIsolation(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Put("ns-one", "shared-key", "one", 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put("ns-two", "shared-key", "two", 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	one, err := store.Get("ns-one", "shared-key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if one.Value != "one" {
		t.Errorf("ns-one value = %q, want one", one.Value)
	}

	if err := store.Delete("ns-one", "shared-key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if entry, _ := store.Get("ns-one", "shared-key"); entry != nil {
		t.Error("deleted entry still present")
	}
	if entry, _ := store.Get("ns-two", "shared-key"); entry == nil {
		t.Error("delete crossed namespaces")
	}

	namespaces, err := store.Namespaces()
	if err != nil {
		t.Fatalf("Namespaces failed: %v", err)
	}
	if len(namespaces) != 1 || namespaces[0] != "ns-two" {
		t.Errorf("Namespaces = %v, want [ns-two]", namespaces)
	}
}
