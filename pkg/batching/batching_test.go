package batching_test

import (
	"testing"

	"github.com/klauselwerk/klausel/pkg/batching"
)

func TestChunk(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		size      int
		wantLens  []int
		wantCount int
	}{
		{"empty input", 0, 5, nil, 0},
		{"exact multiple", 10, 5, []int{5, 5}, 2},
		{"short last chunk", 87, 5, nil, 18},
		{"size larger than input", 3, 10, []int{3}, 1},
		{"size of one", 4, 1, []int{1, 1, 1, 1}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]int, tt.count)
			for i := range items {
				items[i] = i
			}

			chunks := batching.Chunk(items, tt.size)
			if len(chunks) != tt.wantCount {
				t.Fatalf("Chunk produced %d chunks, want %d", len(chunks), tt.wantCount)
			}

			if tt.wantLens != nil {
				for i, chunk := range chunks {
					if len(chunk) != tt.wantLens[i] {
						t.Errorf("chunk %d has length %d, want %d", i, len(chunk), tt.wantLens[i])
					}
				}
			}

			// concatenation restores original order
			var joined []int
			for _, chunk := range chunks {
				joined = append(joined, chunk...)
			}
			for i, v := range joined {
				if v != i {
					t.Fatalf("joined[%d] = %d, order not preserved", i, v)
				}
			}
		})
	}
}

func TestChunkLastLength(t *testing.T) {
	chunks := batching.Chunk(make([]struct{}, 87), 5)
	if got := len(chunks[len(chunks)-1]); got != 2 {
		t.Errorf("last chunk length = %d, want 2", got)
	}
	for i, chunk := range chunks {
		if len(chunk) > 5 {
			t.Errorf("chunk %d length %d exceeds size 5", i, len(chunk))
		}
	}
}

func TestByCost(t *testing.T) {
	identity := func(n int) int { return n }

	t.Run("respects budget for multi-item batches", func(t *testing.T) {
		items := []int{30, 30, 30, 30, 30}
		batches := batching.ByCost(items, identity, 70)

		for i, batch := range batches {
			if len(batch) > 1 && batching.SumCost(batch, identity) > 70 {
				t.Errorf("batch %d sums to %d, exceeds budget", i, batching.SumCost(batch, identity))
			}
		}
		if len(batches) != 3 {
			t.Errorf("got %d batches, want 3", len(batches))
		}
	})

	t.Run("oversized item forms its own batch", func(t *testing.T) {
		items := []int{10, 500, 10}
		batches := batching.ByCost(items, identity, 100)

		if len(batches) != 3 {
			t.Fatalf("got %d batches, want 3", len(batches))
		}
		if len(batches[1]) != 1 || batches[1][0] != 500 {
			t.Errorf("oversized item not isolated: %v", batches[1])
		}
	})

	t.Run("preserves order", func(t *testing.T) {
		items := []int{1, 2, 3, 4, 5, 6}
		batches := batching.ByCost(items, func(int) int { return 2 }, 4)

		var joined []int
		for _, batch := range batches {
			joined = append(joined, batch...)
		}
		for i, v := range joined {
			if v != items[i] {
				t.Fatalf("joined[%d] = %d, want %d", i, v, items[i])
			}
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if batches := batching.ByCost(nil, identity, 10); batches != nil {
			t.Errorf("expected nil, got %v", batches)
		}
	})

	t.Run("single item within budget", func(t *testing.T) {
		batches := batching.ByCost([]int{5}, identity, 10)
		if len(batches) != 1 || len(batches[0]) != 1 {
			t.Errorf("unexpected batching: %v", batches)
		}
	})
}

func TestTokenCost(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"single char", "a", 1},
		{"exact boundary", "abcd", 1},
		{"one over boundary", "abcde", 2},
		{"eight chars", "abcdefgh", 2},
		{"umlauts counted as runes", "äöüß", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := batching.TokenCost(tt.text); got != tt.want {
				t.Errorf("TokenCost(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}
