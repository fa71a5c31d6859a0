package patient

// Selection tracks record keys marked for a bulk action. It is keyed by
// record identity, so filtering, sorting and paging never affect it.
type Selection struct {
	order []string
	set   KeySet
}

func NewSelection() *Selection {
	return &Selection{set: make(KeySet)}
}

// Toggle adds key when absent and removes it when present. It returns
// whether key is selected afterwards.
func (s *Selection) Toggle(key string) bool {
	if s.set.Has(key) {
		s.Remove(key)
		return false
	}
	s.set[key] = struct{}{}
	s.order = append(s.order, key)
	return true
}

func (s *Selection) Contains(key string) bool { return s.set.Has(key) }

func (s *Selection) Len() int { return len(s.order) }

// Keys returns the selected keys in the order they were selected.
func (s *Selection) Keys() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Set returns the selected keys as a KeySet.
func (s *Selection) Set() KeySet {
	return NewKeySet(s.order...)
}

// Remove unselects the given keys. Unknown keys are ignored.
func (s *Selection) Remove(keys ...string) {
	drop := NewKeySet(keys...)
	next := s.order[:0:0]
	for _, k := range s.order {
		if drop.Has(k) {
			delete(s.set, k)
			continue
		}
		next = append(next, k)
	}
	s.order = next
}

func (s *Selection) Clear() {
	s.order = nil
	s.set = make(KeySet)
}
