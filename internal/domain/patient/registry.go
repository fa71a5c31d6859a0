package patient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Recorder receives domain events for metrics. Implementations must be safe
// for concurrent use.
type Recorder interface {
	SessionOpened()
	SessionClosed(reason string)
	ImportStaged(records int, err error)
	Committed(source CommitSource, records int)
	CommitRefused()
	Deleted(records int)
}

type nopRecorder struct{}

func (nopRecorder) SessionOpened()              {}
func (nopRecorder) SessionClosed(string)        {}
func (nopRecorder) ImportStaged(int, error)     {}
func (nopRecorder) Committed(CommitSource, int) {}
func (nopRecorder) CommitRefused()              {}
func (nopRecorder) Deleted(int)                 {}

// RegistryOptions configures a Registry. Zero values disable the limit.
type RegistryOptions struct {
	MaxSessions int
	IdleTimeout time.Duration
	PageSize    int // initial page size of new sessions
	Recorder    Recorder
	Logger      zerolog.Logger
}

// Registry holds the live sessions. Each new session starts with its own
// store filled from the seed records loaded at startup.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	seed     []*Record
	opts     RegistryOptions
	now      func() time.Time
}

func NewRegistry(seed []*Record, opts RegistryOptions) *Registry {
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	return &Registry{
		sessions: make(map[uuid.UUID]*Session),
		seed:     seed,
		opts:     opts,
		now:      time.Now,
	}
}

// Recorder returns the configured event recorder.
func (r *Registry) Recorder() Recorder {
	return r.opts.Recorder
}

// SeedSize is the number of records each new session starts with.
func (r *Registry) SeedSize() int {
	return len(r.seed)
}

func (r *Registry) Create() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.opts.MaxSessions > 0 && len(r.sessions) >= r.opts.MaxSessions {
		return nil, ErrTooManySessions
	}
	s := NewSession(r.seed)
	if r.opts.PageSize > 0 {
		s.pageSize = r.opts.PageSize
	}
	r.sessions[s.ID()] = s
	r.opts.Recorder.SessionOpened()
	r.opts.Logger.Info().
		Str("session_id", s.ID().String()).
		Int("records", s.store.Len()).
		Msg("session created")
	return s, nil
}

func (r *Registry) Get(id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

func (r *Registry) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(r.sessions, id)
	r.opts.Recorder.SessionClosed("deleted")
	r.opts.Logger.Info().Str("session_id", id.String()).Msg("session deleted")
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the idle timeout and returns how
// many were dropped.
func (r *Registry) Sweep() int {
	if r.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.opts.IdleTimeout)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(r.sessions, id)
			r.opts.Recorder.SessionClosed("idle")
			r.opts.Logger.Info().Str("session_id", id.String()).Msg("idle session swept")
			n++
		}
	}
	return n
}

// Run sweeps idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || r.opts.IdleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
