package revision

import (
	"testing"
	"time"
)

func TestStamp_TruncatesToMinute(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	fixed := time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, loc)
	ctx := NewContext("reviewer").WithClock(func() time.Time { return fixed })

	got := ctx.Stamp()
	want := time.Date(2025, 3, 14, 14, 26, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNextIDs_SequentialAndIndependent(t *testing.T) {
	ctx := NewContext("a")
	if id := ctx.NextRevisionID(); id != 1 {
		t.Errorf("expected first revision id 1, got %d", id)
	}
	if id := ctx.NextRevisionID(); id != 2 {
		t.Errorf("expected second revision id 2, got %d", id)
	}
	if id := ctx.NextBookmarkID(); id != 1 {
		t.Errorf("expected bookmark ids independent, got %d", id)
	}
	if id := ctx.NextRelID(); id != "rId1" {
		t.Errorf("expected rId1, got %s", id)
	}
}

func TestReserve_SkipsExistingIDs(t *testing.T) {
	ctx := NewContext("a")
	ctx.ReserveRevisionID(7)
	if id := ctx.NextRevisionID(); id != 8 {
		t.Errorf("expected 8 after reserving 7, got %d", id)
	}

	ctx.ReserveRelID("rId12")
	if id := ctx.NextRelID(); id != "rId13" {
		t.Errorf("expected rId13 after reserving rId12, got %s", id)
	}

	// Non-canonical rels are ignored.
	ctx.ReserveRelID("image1")
	if id := ctx.NextRelID(); id != "rId14" {
		t.Errorf("expected rId14, got %s", id)
	}
}
