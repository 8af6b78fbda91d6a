package app

import "testing"

func TestComputeWindowClampsAndOverscans(t *testing.T) {
	got := ComputeWindow(100, 100, 250, 400, 2)
	if got.StartIndex != 0 {
		t.Fatalf("StartIndex = %d, want 0", got.StartIndex)
	}
	if got.EndIndex != 9 {
		t.Fatalf("EndIndex = %d, want 9", got.EndIndex)
	}
	if got.TotalSize != 10000 {
		t.Fatalf("TotalSize = %d, want 10000", got.TotalSize)
	}
	if len(got.Offsets) != got.Len() || got.Offsets[3] != 300 {
		t.Fatalf("unexpected offsets %v", got.Offsets)
	}
}

func TestComputeWindowMonotonicStart(t *testing.T) {
	prev := -1
	for scroll := 0; scroll <= 12000; scroll += 37 {
		got := ComputeWindow(100, 100, scroll, 400, 2)
		if got.StartIndex < prev {
			t.Fatalf("StartIndex decreased at scroll %d: %d < %d", scroll, got.StartIndex, prev)
		}
		if got.EndIndex > 100 || got.StartIndex > got.EndIndex {
			t.Fatalf("invalid range at scroll %d: %#v", scroll, got)
		}
		prev = got.StartIndex
	}
}

func TestComputeWindowEdgeInputs(t *testing.T) {
	if got := ComputeWindow(0, 4, 10, 20, 3); got.Len() != 0 || got.Offsets == nil {
		t.Fatalf("expected empty non-nil range, got %#v", got)
	}
	got := ComputeWindow(10, 0, -5, 3, -1)
	if got.StartIndex != 0 || got.EndIndex != 3 {
		t.Fatalf("unexpected clamped range %#v", got)
	}
}

func TestWindowPolicyThreshold(t *testing.T) {
	p := DefaultWindowPolicy()
	short := p.Plan(29, 40, 8)
	if p.Virtualized(29) || short.StartIndex != 0 || short.EndIndex != 29 {
		t.Fatalf("expected short column rendered whole, got %#v", short)
	}
	long := p.Plan(30, 40, 8)
	if !p.Virtualized(30) || long.StartIndex != 7 || long.EndIndex != 15 {
		t.Fatalf("expected windowed range, got %#v", long)
	}
	if got := p.ClampScroll(30, 1000, 8); got != 112 {
		t.Fatalf("ClampScroll() = %d, want 112", got)
	}
	if got := p.Reveal(10, 0, 8); got != 36 {
		t.Fatalf("Reveal() = %d, want 36", got)
	}
	if got := p.Reveal(2, 36, 8); got != 8 {
		t.Fatalf("Reveal() = %d, want 8", got)
	}
}
