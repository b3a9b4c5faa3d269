package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/backpack/internal/client/cache"
	"github.com/dmitrijs2005/backpack/internal/client/metrics"
	"github.com/dmitrijs2005/backpack/internal/common"
	"github.com/dmitrijs2005/backpack/internal/logging"
)

// persistTimeout bounds a single snapshot write.
const persistTimeout = 10 * time.Second

// Event is published to subscribers after every dispatch.
type Event struct {
	Action Action
	State  State
}

// Store owns the current State. Dispatch is serialized; snapshots are
// written to the cache by a single background writer that always writes
// the most recent state (last write wins).
type Store struct {
	mu    sync.Mutex
	state State

	cache   cache.Cache
	logger  logging.Logger
	metrics *metrics.Metrics

	pending   *State
	wake      chan struct{}
	flushReq  chan chan struct{}
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	subMu  sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// New starts a store with the given initial state. c may be nil, in which
// case nothing is persisted.
func New(initial State, c cache.Cache, logger logging.Logger, m *metrics.Metrics) *Store {
	s := &Store{
		state:    initial.normalize(),
		cache:    c,
		logger:   logging.OrNop(logger),
		metrics:  m,
		wake:     make(chan struct{}, 1),
		flushReq: make(chan chan struct{}),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		subs:     map[int]chan Event{},
	}
	go s.writer()
	return s
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies a and returns the new state. Actions are processed one
// at a time in the order Dispatch is called.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := Reduce(s.state, a)
	s.state = next
	s.pending = &next

	select {
	case s.wake <- struct{}{}:
	default:
	}

	s.metrics.SetDirty(next.ToSync)
	s.publish(Event{Action: a, State: next})
	return next
}

// Subscribe returns a channel receiving every subsequent event and a
// function that cancels the subscription. Slow subscribers miss events
// rather than block dispatch.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) publish(e Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Flush blocks until the latest snapshot has been written.
func (s *Store) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case s.flushReq <- ack:
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the writer after persisting the latest snapshot.
func (s *Store) Close(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.quit) })

	select {
	case <-s.done:
		return nil
	default:
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) writer() {
	defer close(s.done)

	for {
		select {
		case <-s.wake:
			s.flush()
		case ack := <-s.flushReq:
			s.flush()
			close(ack)
		case <-s.quit:
			s.flush()
			return
		}
	}
}

func (s *Store) flush() {
	s.mu.Lock()
	snapshot := s.pending
	s.pending = nil
	s.mu.Unlock()

	if snapshot == nil || s.cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	start := time.Now()
	err := cache.SetJSON(ctx, s.cache, common.KeyState, snapshot)
	s.metrics.ObserveCacheWrite(time.Since(start), err)
	if err != nil {
		s.logger.Error(ctx, "error caching state", "error", err)
	}
}

// LoadSnapshot reads the cached state. ok is false when nothing is cached.
func LoadSnapshot(ctx context.Context, c cache.Cache) (State, bool, error) {
	var st State
	err := cache.GetJSON(ctx, c, common.KeyState, &st)
	if errors.Is(err, common.ErrCacheMiss) {
		return NewState(), false, nil
	}
	if err != nil {
		return NewState(), false, fmt.Errorf("load cached state: %w", err)
	}
	return st.normalize(), true, nil
}
