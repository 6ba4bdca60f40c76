// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kv

import (
	"path/filepath"
	"testing"
)

func TestSQLiteKV_RoundTrip(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "dojoquest.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer store.Close()

	if _, ok, _ := store.Get("missing"); ok {
		t.Error("Get on missing key reported exists")
	}

	if err := store.Set("dojoquest::users", `[{"_id":"u1"}]`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	v, ok, err := store.Get("dojoquest::users")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || v != `[{"_id":"u1"}]` {
		t.Errorf("Get = %q, %v; want stored value", v, ok)
	}

	// Overwrite replaces, not appends
	if err := store.Set("dojoquest::users", `[]`); err != nil {
		t.Fatalf("Set overwrite failed: %v", err)
	}
	v, _, _ = store.Get("dojoquest::users")
	if v != `[]` {
		t.Errorf("after overwrite Get = %q, want []", v)
	}
}

func TestSQLiteKV_KeysAndDelete(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "dojoquest.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer store.Close()

	for _, k := range []string{"p::logs", "p::users", "other::x"} {
		if err := store.Set(k, "v"); err != nil {
			t.Fatalf("Set %q failed: %v", k, err)
		}
	}

	keys, err := store.Keys("p::")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("Keys(p::) = %v, want 2 entries", keys)
	}

	if err := store.Delete("p::logs"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := store.Get("p::logs"); ok {
		t.Error("key still present after Delete")
	}
	// Deleting a missing key is a no-op
	if err := store.Delete("p::logs"); err != nil {
		t.Errorf("Delete on missing key returned error: %v", err)
	}
}

func TestSQLiteKV_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dojoquest.db")

	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	if err := store.Set("k", "persisted"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	store.Close()

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	v, ok, _ := reopened.Get("k")
	if !ok || v != "persisted" {
		t.Errorf("value did not survive reopen: %q, %v", v, ok)
	}
}

func TestMemoryKV(t *testing.T) {
	m := NewMemory()
	m.Set("a", "1")
	m.Set("a", "2")
	if m.SetCount != 2 {
		t.Errorf("SetCount = %d, want 2", m.SetCount)
	}
	v, ok, _ := m.Get("a")
	if !ok || v != "2" {
		t.Errorf("Get = %q, %v", v, ok)
	}
}
