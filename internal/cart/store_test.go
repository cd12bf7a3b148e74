package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePersister struct {
	saved   map[int64]State
	loadErr error
	saveErr error
	saves   int
}

func newFakePersister() *fakePersister {
	return &fakePersister{saved: map[int64]State{}}
}

func (f *fakePersister) Load(_ context.Context, userID int64) (State, bool, error) {
	if f.loadErr != nil {
		return State{}, false, f.loadErr
	}
	st, ok := f.saved[userID]
	return st, ok, nil
}

func (f *fakePersister) Save(_ context.Context, userID int64, state State) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.saved[userID] = state
	return nil
}

type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) Notify(_ Level, message string) {
	r.messages = append(r.messages, message)
}

func TestStoreAddPersistsAndNotifies(t *testing.T) {
	persister := newFakePersister()
	notifier := &recordingNotifier{}
	store, err := NewStore(persister, notifier)
	require.NoError(t, err)

	st, err := store.Add(context.Background(), 42, redShirtM(2))
	require.NoError(t, err)

	assert.Equal(t, 1, st.LineCount)
	assert.Equal(t, 1, persister.saves)
	require.Len(t, notifier.messages, 1)
	assert.Equal(t, "Product added to cart", notifier.messages[0])

	snapshot := persister.saved[42]
	assert.True(t, snapshot.RunningTotal.Equal(price("40.00")))
}

func TestStoreNoOpSkipsPersistence(t *testing.T) {
	persister := newFakePersister()
	notifier := &recordingNotifier{}
	store, err := NewStore(persister, notifier)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = store.Add(ctx, 42, redShirtM(1))
	require.NoError(t, err)

	// Decrease at quantity 1 is a no-op; nothing is saved, nobody notified.
	st, err := store.Decrease(ctx, 42, 7, "red-M")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Items[0].Quantity)
	assert.Equal(t, 1, persister.saves)
	assert.Len(t, notifier.messages, 1)
}

func TestStorePersistFailureLeavesStateUnchanged(t *testing.T) {
	persister := newFakePersister()
	store, err := NewStore(persister, &recordingNotifier{})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = store.Add(ctx, 42, redShirtM(2))
	require.NoError(t, err)

	persister.saveErr = errors.New("connection reset")
	_, err = store.Increase(ctx, 42, 7, "red-M")
	require.Error(t, err)

	// The failed transition must not leak into the in-memory cart.
	st, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Items[0].Quantity)
	assert.True(t, st.RunningTotal.Equal(price("40.00")))
}

func TestStoreLoadsSnapshotOnFirstUse(t *testing.T) {
	persister := newFakePersister()
	seeded := NewState()
	seeded.Add(redShirtM(3))
	persister.saved[42] = seeded

	store, err := NewStore(persister, &recordingNotifier{})
	require.NoError(t, err)

	st, err := store.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Items[0].Quantity)
	assert.True(t, st.RunningTotal.Equal(price("60.00")))
}

func TestStoreUnknownUserStartsEmpty(t *testing.T) {
	store, err := NewStore(newFakePersister(), &recordingNotifier{})
	require.NoError(t, err)

	st, err := store.Get(context.Background(), 99)
	require.NoError(t, err)
	assert.Empty(t, st.Items)
	assert.Equal(t, 0, st.LineCount)
	assert.True(t, st.RunningTotal.IsZero())
}

func TestStoreRequiresPersister(t *testing.T) {
	_, err := NewStore(nil, nil)
	assert.Error(t, err)
}
