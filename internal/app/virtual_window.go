package app

import "github.com/evanschultz/kanbases/internal/domain"

// Default windowing parameters.
const (
	DefaultWindowThreshold = 30
	DefaultItemSize        = 4
	DefaultOverscan        = 3
)

// ComputeWindow returns the index range to materialize for a fixed-size list.
func ComputeWindow(itemCount, itemSize, scrollOffset, viewportSize, overscan int) domain.VirtualRange {
	itemCount = max(0, itemCount)
	itemSize = max(1, itemSize)
	scrollOffset = max(0, scrollOffset)
	viewportSize = max(0, viewportSize)
	overscan = max(0, overscan)

	out := domain.VirtualRange{TotalSize: itemCount * itemSize}
	if itemCount == 0 {
		out.Offsets = []int{}
		return out
	}
	start := max(0, scrollOffset/itemSize-overscan)
	end := min(itemCount, (scrollOffset+viewportSize+itemSize-1)/itemSize+overscan)
	start = min(start, end)
	out.StartIndex = start
	out.EndIndex = end
	out.Offsets = make([]int, 0, end-start)
	for i := start; i < end; i++ {
		out.Offsets = append(out.Offsets, i*itemSize)
	}
	return out
}

// WindowPolicy decides when a column is windowed and with which parameters.
type WindowPolicy struct {
	Threshold int
	ItemSize  int
	Overscan  int
}

// DefaultWindowPolicy returns the stock windowing parameters.
func DefaultWindowPolicy() WindowPolicy {
	return WindowPolicy{
		Threshold: DefaultWindowThreshold,
		ItemSize:  DefaultItemSize,
		Overscan:  DefaultOverscan,
	}
}

// Virtualized reports whether a list of count items is windowed. A zero threshold windows every list.
func (p WindowPolicy) Virtualized(count int) bool {
	return count >= max(0, p.Threshold)
}

// Plan returns the materialized range; short lists are returned whole.
func (p WindowPolicy) Plan(count, scrollOffset, viewportSize int) domain.VirtualRange {
	if p.Virtualized(count) {
		return ComputeWindow(count, p.ItemSize, scrollOffset, viewportSize, p.Overscan)
	}
	size := max(1, p.ItemSize)
	out := domain.VirtualRange{
		EndIndex:  max(0, count),
		Offsets:   make([]int, 0, max(0, count)),
		TotalSize: max(0, count) * size,
	}
	for i := 0; i < count; i++ {
		out.Offsets = append(out.Offsets, i*size)
	}
	return out
}

// ClampScroll bounds scrollOffset to the scrollable extent of count items.
func (p WindowPolicy) ClampScroll(count, scrollOffset, viewportSize int) int {
	limit := max(0, count*max(1, p.ItemSize)-max(0, viewportSize))
	return min(max(0, scrollOffset), limit)
}

// Reveal adjusts scrollOffset so item index is fully inside the viewport.
func (p WindowPolicy) Reveal(index, scrollOffset, viewportSize int) int {
	size := max(1, p.ItemSize)
	top := index * size
	bottom := top + size
	switch {
	case top < scrollOffset:
		return max(0, top)
	case bottom > scrollOffset+viewportSize:
		return max(0, bottom-viewportSize)
	default:
		return scrollOffset
	}
}
