package patient

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/registry/pkg/pagination"
)

// CommitSource tells which ingest path a commit used.
type CommitSource string

const (
	CommitImport CommitSource = "import"
	CommitDraft  CommitSource = "draft"
)

// CommitResult describes a successful commit.
type CommitResult struct {
	Source CommitSource `json:"source"`
	Added  int          `json:"added"`
	Total  int          `json:"total"`
}

// Session owns one working set: the record store and every input of the
// view. Writers hold the write lock for the whole operation; readers get
// snapshots that later writes never modify.
type Session struct {
	id        uuid.UUID
	createdAt time.Time
	lastSeen  atomic.Int64

	mu          sync.RWMutex
	store       *Store
	departments []string
	search      string
	sort        SortConfig
	selection   *Selection
	draft       Draft
	importer    Importer
	page        int
	pageSize    int
	version     uint64

	memoMu      sync.Mutex
	memoVersion uint64
	memoView    []*Record
}

// NewSession creates a session whose store starts with seed. The seed slice
// itself is not retained.
func NewSession(seed []*Record) *Session {
	now := time.Now().UTC()
	s := &Session{
		id:        uuid.New(),
		createdAt: now,
		store:     NewStore(seed...),
		sort:      DefaultSort(),
		selection: NewSelection(),
		pageSize:  pagination.DefaultPageSize,
		version:   1,
	}
	s.lastSeen.Store(now.UnixNano())
	return s
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LastSeen is the time of the most recent operation on the session.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load()).UTC()
}

func (s *Session) touch() {
	s.lastSeen.Store(time.Now().UTC().UnixNano())
}

// changed invalidates the memoized view. Callers hold the write lock.
func (s *Session) changed() {
	s.version++
}

// -- View --

// Query returns the current view inputs.
func (s *Session) Query() Query {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryLocked()
}

func (s *Session) queryLocked() Query {
	depts := make([]string, len(s.departments))
	copy(depts, s.departments)
	return Query{Departments: depts, Search: s.search, Sort: s.sort}
}

// View returns the filtered and sorted records. The result is shared with
// other readers and must not be modified.
func (s *Session) View() []*Record {
	s.touch()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() []*Record {
	s.memoMu.Lock()
	defer s.memoMu.Unlock()
	if s.memoView != nil && s.memoVersion == s.version {
		return s.memoView
	}
	s.memoView = View(s.store.snapshot(), s.queryLocked())
	s.memoVersion = s.version
	return s.memoView
}

// Page is one window of the view plus the paging state it was cut with.
type Page struct {
	Records  []*Record
	Total    int
	Page     int
	PageSize int
}

// CurrentPage cuts the view with the session's page index and size. A page
// index past the end of the view yields an empty page.
func (s *Session) CurrentPage() Page {
	s.touch()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pageLocked()
}

func (s *Session) pageLocked() Page {
	view := s.viewLocked()
	return Page{
		Records:  pagination.Page(view, s.page, s.pageSize),
		Total:    len(view),
		Page:     s.page,
		PageSize: s.pageSize,
	}
}

// Params returns the paging state as pagination parameters.
func (p Page) Params() pagination.Params {
	return pagination.Params{Page: p.Page, PageSize: p.PageSize}
}

// SetPaging applies the page index and size that p carries and cuts the
// page in the same step. Fields p does not set are left alone.
func (s *Session) SetPaging(p pagination.Params) (Page, error) {
	if p.PageSet && p.Page < 0 {
		return Page{}, fmt.Errorf("page must not be negative, got %d", p.Page)
	}
	if p.PageSizeSet && p.PageSize <= 0 {
		return Page{}, fmt.Errorf("page size must be positive, got %d", p.PageSize)
	}
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.PageSizeSet {
		s.pageSize = p.PageSize
	}
	if p.PageSet {
		s.page = p.Page
	}
	return s.pageLocked(), nil
}

// SetPage moves to page index page.
func (s *Session) SetPage(page int) error {
	if page < 0 {
		return fmt.Errorf("page must not be negative, got %d", page)
	}
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = page
	return nil
}

// SetPageSize changes the page size. The page index is left alone.
func (s *Session) SetPageSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("page size must be positive, got %d", size)
	}
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = size
	return nil
}

// Find returns the first record with the given key, visible or not.
func (s *Session) Find(key string) (*Record, error) {
	s.touch()
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.store.Find(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, key)
	}
	return r, nil
}

// Records returns the whole store in insertion order.
func (s *Session) Records() []*Record {
	s.touch()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Records()
}

// -- Filter, search, sort --

// ToggleDepartment adds or removes one department from the filter and
// returns the resulting filter.
func (s *Session) ToggleDepartment(dept string) ([]string, error) {
	if !IsDepartment(dept) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDepartment, dept)
	}
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]string, 0, len(s.departments)+1)
	found := false
	for _, d := range s.departments {
		if d == dept {
			found = true
			continue
		}
		next = append(next, d)
	}
	if !found {
		next = append(next, dept)
	}
	s.departments = next
	s.changed()
	return s.queryLocked().Departments, nil
}

// SetDepartments replaces the filter. An empty list means no filter.
func (s *Session) SetDepartments(depts []string) error {
	next, err := departmentFilter(depts)
	if err != nil {
		return err
	}
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.departments = next
	s.changed()
	return nil
}

// SetFilter replaces the department filter and the search term together.
// Nothing changes when a department is unknown.
func (s *Session) SetFilter(depts []string, term string) (Query, error) {
	next, err := departmentFilter(depts)
	if err != nil {
		return Query{}, err
	}
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.departments = next
	s.search = term
	s.changed()
	return s.queryLocked(), nil
}

func departmentFilter(depts []string) ([]string, error) {
	seen := make(KeySet, len(depts))
	next := make([]string, 0, len(depts))
	for _, d := range depts {
		if !IsDepartment(d) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDepartment, d)
		}
		if seen.Has(d) {
			continue
		}
		seen[d] = struct{}{}
		next = append(next, d)
	}
	return next, nil
}

func (s *Session) SetSearch(term string) {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.search == term {
		return
	}
	s.search = term
	s.changed()
}

// ClearFilters drops the department filter and the search term.
func (s *Session) ClearFilters() {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.departments = nil
	s.search = ""
	s.changed()
}

// ToggleSort applies a sort request on key and returns the new config.
func (s *Session) ToggleSort(key string) (SortConfig, error) {
	if !IsField(key) {
		return SortConfig{}, fmt.Errorf("%w: %s", ErrUnknownSortKey, key)
	}
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sort = s.sort.Toggle(key)
	s.changed()
	return s.sort, nil
}

// -- Selection --

// ToggleSelect flips the selection of key and reports whether it is now
// selected. Keys need not be visible in the current view.
func (s *Session) ToggleSelect(key string) bool {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Toggle(key)
}

func (s *Session) Selected() []string {
	s.touch()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection.Keys()
}

func (s *Session) IsSelected(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection.Contains(key)
}

func (s *Session) ClearSelection() {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.Clear()
}

// DeleteSelected removes every selected record and unselects the removed
// keys. It returns the number of records removed.
func (s *Session) DeleteSelected() int {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.selection.Keys()
	return s.removeLocked(keys)
}

// RemoveByKeys removes the records with the given keys. Removed keys are
// also dropped from the selection.
func (s *Session) RemoveByKeys(keys ...string) int {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(keys)
}

func (s *Session) removeLocked(keys []string) int {
	if len(keys) == 0 {
		return 0
	}
	n := s.store.RemoveByKeys(NewKeySet(keys...))
	s.selection.Remove(keys...)
	if n > 0 {
		s.changed()
	}
	return n
}

// -- Draft --

// Draft returns a copy of the draft and its current verdict.
func (s *Session) Draft() (Draft, Result) {
	s.touch()
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := s.draft
	return d, d.Result()
}

// UpdateDraft applies field changes to the draft.
func (s *Session) UpdateDraft(changes map[string]string) (Draft, Result, error) {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.draft.Apply(changes)
	return s.draft, res, err
}

func (s *Session) ResetDraft() {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = Draft{}
}

// -- Import --

// Stage parses payload into the staged set.
func (s *Session) Stage(payload []byte) ([]*Record, error) {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.importer.Stage(payload)
}

// StageImport reads a payload from r without holding the session lock and
// then stages it. If another stage call started in the meantime, this
// result is discarded and ErrImportSuperseded is returned.
func (s *Session) StageImport(r io.Reader) ([]*Record, error) {
	s.touch()
	s.mu.Lock()
	ticket := s.importer.begin()
	s.mu.Unlock()

	payload, readErr := io.ReadAll(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.importer.complete(ticket, payload, readErr)
}

// Staged returns the staged set.
func (s *Session) Staged() []*Record {
	s.touch()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.importer.Staged()
}

func (s *Session) DiscardImport() {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.importer.Discard()
}

// Commit appends the staged set when there is one, otherwise the draft when
// it is complete. With neither it returns ErrEmptyCommit and changes
// nothing.
func (s *Session) Commit() (CommitResult, error) {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.importer.Len() > 0 {
		staged := s.importer.Take()
		s.store.AddMany(staged)
		s.changed()
		return CommitResult{Source: CommitImport, Added: len(staged), Total: s.store.Len()}, nil
	}

	rec, err := s.draft.ToRecord()
	if err != nil {
		return CommitResult{}, fmt.Errorf("%w: %w", ErrEmptyCommit, err)
	}
	s.store.AddOne(rec)
	s.draft = Draft{}
	s.changed()
	return CommitResult{Source: CommitDraft, Added: 1, Total: s.store.Len()}, nil
}

// -- Snapshot --

// Snapshot summarizes the session state.
type Snapshot struct {
	ID          uuid.UUID  `json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	LastSeen    time.Time  `json:"last_seen"`
	Records     int        `json:"records"`
	Visible     int        `json:"visible"`
	Departments []string   `json:"departments"`
	Search      string     `json:"search"`
	Sort        SortConfig `json:"sort"`
	Selected    []string   `json:"selected"`
	Staged      int        `json:"staged"`
	Draft       Result     `json:"draft"`
	Page        int        `json:"page"`
	PageSize    int        `json:"page_size"`
	CanCommit   bool       `json:"can_commit"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := s.queryLocked()
	draft := s.draft.Result()
	return Snapshot{
		ID:          s.id,
		CreatedAt:   s.createdAt,
		LastSeen:    s.LastSeen(),
		Records:     s.store.Len(),
		Visible:     len(s.viewLocked()),
		Departments: q.Departments,
		Search:      q.Search,
		Sort:        q.Sort,
		Selected:    s.selection.Keys(),
		Staged:      s.importer.Len(),
		Draft:       draft,
		Page:        s.page,
		PageSize:    s.pageSize,
		CanCommit:   s.importer.Len() > 0 || draft.Complete,
	}
}
