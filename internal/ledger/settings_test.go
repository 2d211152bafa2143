package ledger

import "testing"

func TestSettings_SetGetDelete(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s := NewSettings(db)

	if _, ok := s.Get("theme"); ok {
		t.Fatal("expected unset key to be absent")
	}

	if err := s.Set("theme", "dark"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, ok := s.Get("theme")
	if !ok || val != "dark" {
		t.Fatalf("Get: got (%q, %v), want (\"dark\", true)", val, ok)
	}

	if err := s.Set("theme", "light"); err != nil {
		t.Fatalf("Set (overwrite): %v", err)
	}
	val, _ = s.Get("theme")
	if val != "light" {
		t.Fatalf("expected overwrite to take effect, got %q", val)
	}

	if err := s.Delete("theme"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := s.Get("theme"); ok {
		t.Fatal("expected key to be gone after Delete")
	}
}

func TestSettings_All(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s := NewSettings(db)

	s.Set("a", "1")
	s.Set("b", "2")

	rows, err := s.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 settings, got %d", len(rows))
	}
}
