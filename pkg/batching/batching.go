// Package batching provides the slicing primitives used by the analysis
// pipelines: fixed-size chunking for batches and waves, and greedy
// cost-budget packing for token-bounded LLM context assembly.
package batching

// Chunk splits items into ordered slices of at most size elements.
// The last chunk may be shorter. Concatenating the chunks in order
// restores the original sequence. A size of less than 1 returns a
// single chunk containing all items.
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size < 1 {
		return [][]T{items}
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// ByCost packs items into ordered batches whose summed cost stays within
// budget, using a greedy single pass. Items are never split or reordered.
// An item whose own cost exceeds the budget still forms its own batch;
// that batch is over budget and callers are expected to tolerate it.
func ByCost[T any](items []T, cost func(T) int, budget int) [][]T {
	if len(items) == 0 {
		return nil
	}

	var batches [][]T
	var current []T
	currentCost := 0

	for _, item := range items {
		c := cost(item)
		if len(current) > 0 && currentCost+c > budget {
			batches = append(batches, current)
			current = nil
			currentCost = 0
		}
		current = append(current, item)
		currentCost += c
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// SumCost returns the total cost of items under the given cost function.
func SumCost[T any](items []T, cost func(T) int) int {
	total := 0
	for _, item := range items {
		total += cost(item)
	}
	return total
}
