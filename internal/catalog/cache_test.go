package catalog

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(window time.Duration) (*Cache, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	c := NewCache(window)
	c.now = clk.Now
	return c, clk
}

func TestCache_MissWhenEmpty(t *testing.T) {
	c, _ := newTestCache(time.Minute)

	if _, _, ok := c.Read(); ok {
		t.Fatalf("empty cache reported a hit")
	}
}

func TestCache_HitWithinWindow(t *testing.T) {
	c, clk := newTestCache(time.Minute)
	c.Write([]Product{{ID: "a", Name: "A"}}, SourceRemote)

	clk.Advance(59 * time.Second)
	got, src, ok := c.Read()
	if !ok {
		t.Fatalf("expected hit")
	}
	if src != SourceRemote {
		t.Fatalf("source=%s", src)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("got=%+v", got)
	}
}

func TestCache_ExpiresAtWindow(t *testing.T) {
	c, clk := newTestCache(time.Minute)
	c.Write([]Product{{ID: "a"}}, SourceStatic)

	clk.Advance(time.Minute)
	if _, _, ok := c.Read(); ok {
		t.Fatalf("entry as old as the window must miss")
	}
}

func TestCache_WriteOverwrites(t *testing.T) {
	c, clk := newTestCache(time.Minute)
	c.Write([]Product{{ID: "a"}}, SourceStatic)

	clk.Advance(50 * time.Second)
	c.Write([]Product{{ID: "b"}, {ID: "c"}}, SourceRemote)

	clk.Advance(50 * time.Second)
	got, src, ok := c.Read()
	if !ok {
		t.Fatalf("overwrite must restamp the entry")
	}
	if src != SourceRemote || len(got) != 2 || got[0].ID != "b" {
		t.Fatalf("src=%s got=%+v", src, got)
	}
}

func TestCache_InvalidateIsIdempotent(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	c.Invalidate()

	c.Write([]Product{{ID: "a"}}, SourceRemote)
	c.Invalidate()
	c.Invalidate()

	if _, _, ok := c.Read(); ok {
		t.Fatalf("invalidated cache reported a hit")
	}
}

func TestCache_ReadReturnsCopy(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	in := []Product{{ID: "a", Name: "A"}}
	c.Write(in, SourceRemote)
	in[0].Name = "changed by writer"

	got, _, _ := c.Read()
	got[0].Name = "changed by reader"

	again, _, _ := c.Read()
	if again[0].Name != "A" {
		t.Fatalf("cached entry was mutated: %+v", again[0])
	}
}
