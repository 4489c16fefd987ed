package measure

import "testing"

// TestCache_HitsReturnIdenticalValue checks the Measurement Cache's
// determinism clause (spec §4.2): a cached value equals what the
// underlying measurement would produce, and a repeated lookup with the
// same key returns it without recomputation.
func TestCache_HitsReturnIdenticalValue(t *testing.T) {
	c := New(4)
	key := RunKey{Text: "hello", Font: "Helvetica", Size: 12}

	if _, ok := c.GetRun(key); ok {
		t.Fatalf("expected miss on empty cache")
	}
	c.PutRun(key, 42.5)

	v, ok := c.GetRun(key)
	if !ok || v != 42.5 {
		t.Fatalf("expected cached value 42.5, got %v (ok=%v)", v, ok)
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got hits=%d misses=%d", hits, misses)
	}
}

// TestCache_EvictsLeastRecentlyUsed checks the LRU eviction policy with a
// small capacity: the entry that hasn't been touched is the one dropped
// when the cache is over capacity, never an entry that was just read.
func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	k1 := RunKey{Text: "a"}
	k2 := RunKey{Text: "b"}
	k3 := RunKey{Text: "c"}

	c.PutRun(k1, 1)
	c.PutRun(k2, 2)
	// Touch k1 so k2 becomes the least-recently-used entry.
	c.GetRun(k1)
	c.PutRun(k3, 3)

	if _, ok := c.GetRun(k2); ok {
		t.Errorf("expected k2 evicted as least-recently-used")
	}
	if v, ok := c.GetRun(k1); !ok || v != 1 {
		t.Errorf("expected k1 to survive eviction, got %v (ok=%v)", v, ok)
	}
	if v, ok := c.GetRun(k3); !ok || v != 3 {
		t.Errorf("expected k3 present, got %v (ok=%v)", v, ok)
	}
	if c.Len() != 2 {
		t.Errorf("expected cache length capped at 2, got %d", c.Len())
	}
}

// TestDigest_SameInputsSameDigest checks BoxKey digests are stable,
// satisfying the composite-measurement memoization key's determinism
// requirement.
func TestDigest_SameInputsSameDigest(t *testing.T) {
	d1 := Digest("table", "3x2", "Helvetica:12")
	d2 := Digest("table", "3x2", "Helvetica:12")
	if d1 != d2 {
		t.Fatalf("expected identical digests for identical inputs, got %q and %q", d1, d2)
	}
	d3 := Digest("table", "3x2", "Helvetica:14")
	if d1 == d3 {
		t.Errorf("expected different digests for different inputs")
	}
}
