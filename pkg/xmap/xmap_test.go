package xmap

import (
	"strconv"
	"testing"
)

func TestSetGet(t *testing.T) {
	m := New[int]()
	m.Set("a", 1)
	m.Set("b", 2)

	if v, ok := m.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %v, %v; want 1, true", v, ok)
	}
	if v, ok := m.Get("b"); !ok || v != 2 {
		t.Fatalf("Get(b) = %v, %v; want 2, true", v, ok)
	}
	if _, ok := m.Get("c"); ok {
		t.Fatalf("Get(c) should miss")
	}
}

func TestOverwrite(t *testing.T) {
	m := New[string]()
	m.Set("k", "first")
	m.Set("k", "second")

	if v, _ := m.Get("k"); v != "second" {
		t.Fatalf("Get(k) = %q, want %q", v, "second")
	}
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
}

func TestDeleteAndTombstoneProbing(t *testing.T) {
	m := New[int]()
	// Force collisions across a small table so Delete's tombstone doesn't
	// break the probe chain for keys inserted after it.
	keys := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	for i, k := range keys {
		m.Set(k, i)
	}
	m.Delete("beta")

	if m.Has("beta") {
		t.Fatalf("beta should be deleted")
	}
	for i, k := range keys {
		if k == "beta" {
			continue
		}
		if v, ok := m.Get(k); !ok || v != i {
			t.Fatalf("Get(%q) = %v, %v; want %d, true", k, v, ok, i)
		}
	}
	if m.Len() != len(keys)-1 {
		t.Fatalf("Len() = %d, want %d", m.Len(), len(keys)-1)
	}
}

func TestGrowthPreservesEntries(t *testing.T) {
	m := New[int]()
	const n = 500
	for i := 0; i < n; i++ {
		m.Set(string(rune('a'+i%26))+strconv.Itoa(i), i)
	}
	if m.Len() != n {
		t.Fatalf("Len() = %d, want %d", m.Len(), n)
	}
	for i := 0; i < n; i++ {
		key := string(rune('a'+i%26)) + strconv.Itoa(i)
		if v, ok := m.Get(key); !ok || v != i {
			t.Fatalf("Get(%q) = %v, %v; want %d, true", key, v, ok, i)
		}
	}
}

func TestEach(t *testing.T) {
	m := New[int]()
	want := map[string]int{"x": 1, "y": 2, "z": 3}
	for k, v := range want {
		m.Set(k, v)
	}
	got := map[string]int{}
	m.Each(func(k string, v int) { got[k] = v })
	if len(got) != len(want) {
		t.Fatalf("Each visited %d entries, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("Each: got[%q] = %d, want %d", k, got[k], v)
		}
	}
}
