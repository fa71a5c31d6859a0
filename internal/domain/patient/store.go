package patient

// KeySet is a set of record keys.
type KeySet map[string]struct{}

func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Store holds records in insertion order. Every mutation publishes a fresh
// backing slice, so a slice handed out earlier never changes underneath its
// holder. Store itself is not safe for concurrent use; Session serializes it.
type Store struct {
	records []*Record
}

func NewStore(records ...*Record) *Store {
	s := &Store{}
	s.AddMany(records)
	return s
}

// AddOne appends a record. Duplicate keys are accepted.
func (s *Store) AddOne(r *Record) {
	s.AddMany([]*Record{r})
}

// AddMany appends records in their given order in a single step.
func (s *Store) AddMany(rs []*Record) {
	if len(rs) == 0 {
		return
	}
	next := make([]*Record, 0, len(s.records)+len(rs))
	next = append(next, s.records...)
	next = append(next, rs...)
	s.records = next
}

// RemoveByKeys drops every record whose key is in keys and returns how many
// were removed. Survivors keep their relative order; absent keys are ignored.
func (s *Store) RemoveByKeys(keys KeySet) int {
	if len(keys) == 0 {
		return 0
	}
	next := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		if !keys.Has(r.MBI) {
			next = append(next, r)
		}
	}
	removed := len(s.records) - len(next)
	if removed > 0 {
		s.records = next
	}
	return removed
}

// Records returns a copy of the ordered collection.
func (s *Store) Records() []*Record {
	out := make([]*Record, len(s.records))
	copy(out, s.records)
	return out
}

// snapshot returns the current backing slice without copying. Callers must
// treat it as read-only.
func (s *Store) snapshot() []*Record {
	return s.records
}

func (s *Store) Len() int { return len(s.records) }

// Find returns the first record with the given key.
func (s *Store) Find(key string) (*Record, bool) {
	for _, r := range s.records {
		if r.MBI == key {
			return r, true
		}
	}
	return nil, false
}
