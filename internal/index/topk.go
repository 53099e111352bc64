package index

import "sort"

// topK accumulates the k best results seen so far using a bounded min-heap
// keyed on (score ascending, id descending), so the root is always the
// candidate to evict. Final extraction returns score-descending order with
// ties broken by ascending id.
type topK struct {
	k     int
	items []Result
}

func newTopK(k int) *topK {
	return &topK{k: k, items: make([]Result, 0, k)}
}

// worse reports whether a ranks below b (lower score, or equal score and
// greater id).
func worse(a, b Result) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.ID > b.ID
}

func (t *topK) push(r Result) {
	if len(t.items) < t.k {
		t.items = append(t.items, r)
		i := len(t.items) - 1
		for i > 0 {
			parent := (i - 1) / 2
			if !worse(t.items[i], t.items[parent]) {
				break
			}
			t.items[i], t.items[parent] = t.items[parent], t.items[i]
			i = parent
		}
		return
	}
	if !worse(t.items[0], r) {
		return
	}
	t.items[0] = r
	t.bubbleDown(0)
}

func (t *topK) bubbleDown(i int) {
	for {
		left := 2*i + 1
		right := 2*i + 2
		smallest := i
		if left < len(t.items) && worse(t.items[left], t.items[smallest]) {
			smallest = left
		}
		if right < len(t.items) && worse(t.items[right], t.items[smallest]) {
			smallest = right
		}
		if smallest == i {
			break
		}
		t.items[i], t.items[smallest] = t.items[smallest], t.items[i]
		i = smallest
	}
}

// results drains the heap into score-descending, id-ascending order.
func (t *topK) results() []Result {
	out := t.items
	t.items = nil
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}
