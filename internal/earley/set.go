package earley

// Set holds the items valid at one token position. Items append during
// the fixed-point pass; the index map enforces the (rule id, dot, start)
// deduplication invariant.
type Set struct {
	Position int

	items []*Item
	index map[string]*Item
}

func newSet(position int) *Set {
	return &Set{
		Position: position,
		index:    make(map[string]*Item),
	}
}

// Items returns the set's items in insertion order. Callers must not
// modify the returned slice.
func (s *Set) Items() []*Item { return s.items }

// Len returns the number of distinct items in the set.
func (s *Set) Len() int { return len(s.items) }

// lookup returns the existing item for a key, or nil.
func (s *Set) lookup(key string) *Item { return s.index[key] }

func (s *Set) insert(key string, it *Item) {
	s.items = append(s.items, it)
	s.index[key] = it
}
