package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Level classifies a user-facing notification emitted after a transition.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

// Notifier receives fire-and-forget user-facing notices. Delivery failures
// are the notifier's problem; the cart never depends on them.
type Notifier interface {
	Notify(level Level, message string)
}

// Persister stores cart snapshots keyed by user. Saving happens after every
// successful transition; the reducer itself never does I/O.
type Persister interface {
	Load(ctx context.Context, userID int64) (State, bool, error)
	Save(ctx context.Context, userID int64, state State) error
}

// Store holds one cart per user and applies reducer transitions to them.
// Mutations are attempted on a copy and only swapped in once the snapshot
// has been persisted, so the in-memory state and the stored one cannot
// drift apart.
type Store struct {
	mu        sync.Mutex
	carts     map[int64]State
	persister Persister
	notifier  Notifier
}

func NewStore(persister Persister, notifier Notifier) (*Store, error) {
	if persister == nil {
		return nil, fmt.Errorf("persister is nil")
	}
	if notifier == nil {
		notifier = SlogNotifier{}
	}
	return &Store{
		carts:     map[int64]State{},
		persister: persister,
		notifier:  notifier,
	}, nil
}

// Get returns the user's cart, loading the persisted snapshot on first use.
func (s *Store) Get(ctx context.Context, userID int64) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, userID)
}

func (s *Store) Add(ctx context.Context, userID int64, item LineItem) (State, error) {
	return s.mutate(ctx, userID, func(st *State) Op { return st.Add(item) })
}

func (s *Store) Increase(ctx context.Context, userID, productID int64, variantKey string) (State, error) {
	return s.mutate(ctx, userID, func(st *State) Op { return st.Increase(productID, variantKey) })
}

func (s *Store) Decrease(ctx context.Context, userID, productID int64, variantKey string) (State, error) {
	return s.mutate(ctx, userID, func(st *State) Op { return st.Decrease(productID, variantKey) })
}

func (s *Store) Remove(ctx context.Context, userID, productID int64, variantKey string) (State, error) {
	return s.mutate(ctx, userID, func(st *State) Op { return st.Remove(productID, variantKey) })
}

func (s *Store) Clear(ctx context.Context, userID int64) (State, error) {
	return s.mutate(ctx, userID, func(st *State) Op { return st.Clear() })
}

func (s *Store) mutate(ctx context.Context, userID int64, fn func(*State) Op) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx, userID)
	if err != nil {
		return State{}, err
	}

	next := current.Clone()
	op := fn(&next)
	if op == OpNone {
		return current, nil
	}

	if err := s.persister.Save(ctx, userID, next); err != nil {
		return State{}, fmt.Errorf("persisting cart: %w", err)
	}
	s.carts[userID] = next
	s.notify(op)
	return next, nil
}

func (s *Store) load(ctx context.Context, userID int64) (State, error) {
	if st, ok := s.carts[userID]; ok {
		return st, nil
	}
	st, found, err := s.persister.Load(ctx, userID)
	if err != nil {
		return State{}, fmt.Errorf("loading cart: %w", err)
	}
	if !found {
		st = NewState()
	}
	s.carts[userID] = st
	return st, nil
}

func (s *Store) notify(op Op) {
	switch op {
	case OpAdded:
		s.notifier.Notify(LevelSuccess, "Product added to cart")
	case OpMerged, OpIncreased:
		s.notifier.Notify(LevelInfo, "Product quantity updated")
	case OpDecreased:
		s.notifier.Notify(LevelInfo, "Product quantity updated")
	case OpRemoved:
		s.notifier.Notify(LevelError, "Product removed from cart")
	case OpCleared:
		s.notifier.Notify(LevelSuccess, "Cart cleared")
	}
}

// SlogNotifier logs notices instead of surfacing them; the API layer sends
// the actual toast content back to the client.
type SlogNotifier struct{}

func (SlogNotifier) Notify(level Level, message string) {
	switch level {
	case LevelError:
		slog.Error(message)
	default:
		slog.Info(message)
	}
}
