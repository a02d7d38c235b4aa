package transcript

import "testing"

func TestNameMap_SetGet(t *testing.T) {
	m := NewNameMap()
	m.Set("A", "Alice")

	if got := m.Get("A"); got != "Alice" {
		t.Errorf("Get(A) = %q, want Alice", got)
	}
	if got := m.Get("B"); got != "" {
		t.Errorf("Get(B) = %q, want empty", got)
	}
}

func TestNameMap_EmptyNameRemoves(t *testing.T) {
	m := NewNameMap()
	m.Set("A", "Alice")
	m.Set("A", "")

	if got := m.Get("A"); got != "" {
		t.Errorf("Get(A) = %q, want empty after clearing", got)
	}
	if n := len(m.All()); n != 0 {
		t.Errorf("All() has %d entries, want 0", n)
	}
}

func TestNameMap_Reset(t *testing.T) {
	m := NewNameMap()
	m.Set("A", "Alice")
	m.Set("B", "Bob")
	m.Reset()

	if n := len(m.All()); n != 0 {
		t.Errorf("All() has %d entries after Reset, want 0", n)
	}
}

func TestNameMap_AllIsCopy(t *testing.T) {
	m := NewNameMap()
	m.Set("A", "Alice")

	all := m.All()
	all["A"] = "Mallory"

	if got := m.Get("A"); got != "Alice" {
		t.Errorf("Get(A) = %q, mutation of All() leaked into the map", got)
	}
}
