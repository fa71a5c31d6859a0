package patient

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// SortConfig names the sort key and direction of a view.
type SortConfig struct {
	Key       string    `json:"key"`
	Direction Direction `json:"direction"`
}

// DefaultSort orders by first name, ascending.
func DefaultSort() SortConfig {
	return SortConfig{Key: FieldFirstName, Direction: Ascending}
}

// Toggle returns the config after a sort request on key: the same key flips
// direction, a different key starts ascending.
func (c SortConfig) Toggle(key string) SortConfig {
	if c.Key == key && c.Direction == Ascending {
		return SortConfig{Key: key, Direction: Descending}
	}
	return SortConfig{Key: key, Direction: Ascending}
}

// Validate rejects keys that are not record attributes.
func (c SortConfig) Validate() error {
	if c.Key != "" && !IsField(c.Key) {
		return fmt.Errorf("%w: %s", ErrUnknownSortKey, c.Key)
	}
	if c.Direction != Ascending && c.Direction != Descending {
		return fmt.Errorf("invalid sort direction %q", c.Direction)
	}
	return nil
}

// Query is the input of a view: department filter, search term and sort.
type Query struct {
	Departments []string
	Search      string
	Sort        SortConfig
}

// View filters records by department and search term in one pass and then
// sorts the survivors once. The input slice is not modified.
func View(records []*Record, q Query) []*Record {
	depts := NewKeySet(q.Departments...)
	fold := cases.Fold()
	term := fold.String(q.Search)

	out := make([]*Record, 0, len(records))
	for _, r := range records {
		if len(depts) > 0 && !depts.Has(r.Department) {
			continue
		}
		if term != "" && !matches(r, term, fold) {
			continue
		}
		out = append(out, r)
	}

	sortRecords(out, q.Sort)
	return out
}

func matches(r *Record, term string, fold cases.Caser) bool {
	for _, f := range r.Fields() {
		if strings.Contains(fold.String(f.Value.String()), term) {
			return true
		}
	}
	return false
}

func sortRecords(records []*Record, cfg SortConfig) {
	if cfg.Key == "" || len(records) < 2 {
		return
	}
	col := collate.New(language.English)
	sort.SliceStable(records, func(i, j int) bool {
		a, _ := records[i].Field(cfg.Key)
		b, _ := records[j].Field(cfg.Key)
		if cfg.Direction == Descending {
			return compareValues(b, a, col) < 0
		}
		return compareValues(a, b, col) < 0
	})
}

// compareValues orders two attribute values. Two strings use locale-aware
// collation; anything else compares numerically, with missing and
// non-numeric values counting as zero.
func compareValues(a, b Measure, col *collate.Collator) int {
	if a.IsText() && b.IsText() {
		return col.CompareString(a.String(), b.String())
	}
	fa, _ := a.Float()
	fb, _ := b.Float()
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}
