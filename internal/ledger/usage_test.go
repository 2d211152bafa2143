package ledger

import "testing"

func TestUsageCounter_PeekWithoutIncrement(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	u := NewUsageCounter(db)

	count, _ := u.Peek("key-1")
	if count != 0 {
		t.Fatalf("expected 0 before any increment, got %d", count)
	}
}

func TestUsageCounter_IncrementAccumulates(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	u := NewUsageCounter(db)

	for i := 1; i <= 5; i++ {
		count, err := u.Increment("key-1")
		if err != nil {
			t.Fatalf("Increment: %v", err)
		}
		if count != i {
			t.Fatalf("increment %d: got count %d, want %d", i, count, i)
		}
	}
}

func TestUsageCounter_PersistsAtBatchBoundary(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	u := NewUsageCounter(db)
	u.every = 3

	for i := 0; i < 3; i++ {
		if _, err := u.Increment("key-1"); err != nil {
			t.Fatalf("Increment: %v", err)
		}
	}

	var row UsageRow
	if err := db.Where("key = ?", "key-1").First(&row).Error; err != nil {
		t.Fatalf("expected a persisted row after hitting the batch boundary: %v", err)
	}
	if row.Count != 3 {
		t.Fatalf("persisted count: got %d, want 3", row.Count)
	}
}

func TestUsageCounter_FlushPersistsUnconditionally(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	u := NewUsageCounter(db)

	if _, err := u.Increment("key-1"); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	u.Flush()

	var row UsageRow
	if err := db.Where("key = ?", "key-1").First(&row).Error; err != nil {
		t.Fatalf("expected Flush to persist even below the batch boundary: %v", err)
	}
	if row.Count != 1 {
		t.Fatalf("persisted count: got %d, want 1", row.Count)
	}
}

func TestUsageCounter_SeparateKeysAreIndependent(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	u := NewUsageCounter(db)

	u.Increment("key-1")
	u.Increment("key-1")
	u.Increment("key-2")

	c1, _ := u.Peek("key-1")
	c2, _ := u.Peek("key-2")
	if c1 != 2 {
		t.Fatalf("key-1: got %d, want 2", c1)
	}
	if c2 != 1 {
		t.Fatalf("key-2: got %d, want 1", c2)
	}
}
