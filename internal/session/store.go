// Package session keeps the signed-in user and their permission matrix current.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/plant-operations/internal/core/events"
	"github.com/frahmantamala/plant-operations/internal/user"
)

var ErrNotInitialized = errors.New("session not initialized")

// UserLoader returns the user with their permission matrix attached.
type UserLoader interface {
	GetWithPermissions(ctx context.Context, id int64) (*user.User, error)
}

type Listener func(u *user.User)

// Store holds one signed-in user. Every relevant change notification triggers a full rebuild of the matrix.
type Store struct {
	loader UserLoader
	bus    *events.EventBus
	logger *slog.Logger

	mu           sync.RWMutex
	current      *user.User
	userID       int64
	sub          *events.Subscription
	listeners    map[uint64]Listener
	nextListener uint64
	generation   uint64
	loadSeq      uint64
	appliedSeq   uint64

	refreshTimeout time.Duration
}

func NewStore(loader UserLoader, bus *events.EventBus, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		loader:         loader,
		bus:            bus,
		logger:         logger,
		listeners:      make(map[uint64]Listener),
		refreshTimeout: 10 * time.Second,
	}
}

// Init loads userID and starts listening for permission changes. A previous session is released first.
func (s *Store) Init(ctx context.Context, userID int64) (*user.User, error) {
	s.Cleanup()

	u, err := s.loader.GetWithPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	var sub *events.Subscription
	if s.bus != nil {
		sub = s.bus.Subscribe(s.handleEvent,
			events.EventTypeUserPermissionsChanged,
			events.EventTypePermissionsChanged,
			events.EventTypeUserChanged)
	}

	s.mu.Lock()
	s.generation++
	s.userID = userID
	s.current = u.Clone()
	// a concurrent Init may have subscribed since our Cleanup
	previous := s.sub
	s.sub = sub
	s.mu.Unlock()

	previous.Close()

	s.logger.Info("session initialized", "user_id", userID, "role", u.Role)
	s.notify(u)
	return u.Clone(), nil
}

// Current returns a copy of the signed-in user.
func (s *Store) Current() (*user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, false
	}
	return s.current.Clone(), true
}

// Subscribe registers fn for every user update. The returned func removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	s.nextListener++
	id := s.nextListener
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Refresh reloads the user and rebuilds the matrix from scratch.
func (s *Store) Refresh(ctx context.Context) (*user.User, error) {
	s.mu.Lock()
	userID := s.userID
	generation := s.generation
	active := s.current != nil
	s.loadSeq++
	seq := s.loadSeq
	s.mu.Unlock()

	if !active {
		return nil, ErrNotInitialized
	}

	u, err := s.loader.GetWithPermissions(ctx, userID)
	if err != nil {
		s.logger.Warn("session refresh failed", "user_id", userID, "error", err)
		return nil, err
	}

	s.mu.Lock()
	if s.generation != generation || s.current == nil {
		// the session was cleaned up or re-initialized while loading
		s.mu.Unlock()
		return nil, ErrNotInitialized
	}
	if seq < s.appliedSeq {
		// a load that started later has already been applied
		current := s.current.Clone()
		s.mu.Unlock()
		return current, nil
	}
	s.appliedSeq = seq
	s.current = u.Clone()
	s.mu.Unlock()

	s.logger.Debug("session refreshed", "user_id", userID)
	s.notify(u)
	return u.Clone(), nil
}

// Cleanup releases the realtime subscription and forgets the user. Safe to call repeatedly.
func (s *Store) Cleanup() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	hadUser := s.current != nil
	s.current = nil
	s.userID = 0
	s.generation++
	s.mu.Unlock()

	sub.Close()
	if hadUser {
		s.logger.Info("session cleaned up")
	}
}

func (s *Store) handleEvent(ctx context.Context, event events.Event) error {
	s.mu.RLock()
	userID := s.userID
	s.mu.RUnlock()

	if !affects(event, userID) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.refreshTimeout)
	defer cancel()

	_, err := s.Refresh(ctx)
	if errors.Is(err, ErrNotInitialized) {
		return nil
	}
	return err
}

// affects reports whether event can change userID's matrix. Shared permission rows can affect anyone.
func affects(event events.Event, userID int64) bool {
	switch e := event.(type) {
	case *events.UserPermissionsChangedEvent:
		return e.UserID == userID
	case *events.UserChangedEvent:
		return e.UserID == userID && e.Operation != events.OperationDelete
	case *events.PermissionsChangedEvent:
		return true
	default:
		return false
	}
}

func (s *Store) notify(u *user.User) {
	s.mu.RLock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(u.Clone())
	}
}
