// Package batch packs ordered work items into bounded groups so each
// external call carries as many items as its limits allow.
package batch

// Limit bounds a single batch. Zero fields are unbounded.
type Limit struct {
	MaxUnits int // items per batch
	MaxChars int // summed item size per batch
}

// Make greedily packs items, in order, into batches. A batch is closed when
// adding the next item would exceed either limit. An item larger than
// MaxChars on its own still gets a batch of its own; nothing is dropped.
func Make[T any](items []T, size func(T) int, limit Limit) [][]T {
	var batches [][]T
	var current []T
	chars := 0

	for _, item := range items {
		n := size(item)
		full := limit.MaxUnits > 0 && len(current) >= limit.MaxUnits
		over := limit.MaxChars > 0 && chars+n > limit.MaxChars
		if len(current) > 0 && (full || over) {
			batches = append(batches, current)
			current = nil
			chars = 0
		}
		current = append(current, item)
		chars += n
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches
}

// Split halves a batch, keeping order. A batch of one item is returned as is.
func Split[T any](items []T) ([]T, []T) {
	if len(items) < 2 {
		return items, nil
	}
	mid := len(items) / 2
	return items[:mid], items[mid:]
}
