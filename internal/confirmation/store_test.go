package confirmation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"

	"github.com/arogya-path/kernel/internal/domain"
)

func TestStore_CreateThenConsumeSucceedsOnce(t *testing.T) {
	store := New(clockz.NewFakeClock(), time.Minute)
	defer store.Close()

	state := domain.PipelineState{SessionID: "sess-1"}
	token := store.Create("sess-1", state, nil)

	assert.True(t, store.IsPending("sess-1"))

	entry, err := store.Consume(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", entry.SessionID)
	assert.False(t, store.IsPending("sess-1"))

	_, err = store.Consume(token)
	assert.ErrorIs(t, err, ErrAlreadyConsumed)
}

func TestStore_ConsumeUnknownTokenFails(t *testing.T) {
	store := New(clockz.NewFakeClock(), time.Minute)
	defer store.Close()

	_, err := store.Consume("does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ExpiredTokenCannotBeConsumed(t *testing.T) {
	clock := clockz.NewFakeClock()
	store := New(clock, 5*time.Minute)
	defer store.Close()

	token := store.Create("sess-2", domain.PipelineState{SessionID: "sess-2"}, nil)

	clock.Advance(6 * time.Minute)
	clock.BlockUntilReady()

	_, err := store.Consume(token)
	assert.ErrorIs(t, err, ErrExpired)
	assert.False(t, store.IsPending("sess-2"))
}

func TestStore_CreateReplacesPriorPendingForSameSession(t *testing.T) {
	store := New(clockz.NewFakeClock(), time.Minute)
	defer store.Close()

	firstToken := store.Create("sess-3", domain.PipelineState{SessionID: "sess-3"}, nil)
	secondToken := store.Create("sess-3", domain.PipelineState{SessionID: "sess-3"}, nil)

	_, err := store.Consume(firstToken)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Consume(secondToken)
	require.NoError(t, err)
}

func TestStore_CancelRemovesPendingEntry(t *testing.T) {
	store := New(clockz.NewFakeClock(), time.Minute)
	defer store.Close()

	token := store.Create("sess-4", domain.PipelineState{SessionID: "sess-4"}, nil)
	store.Cancel("sess-4")

	assert.False(t, store.IsPending("sess-4"))
	_, err := store.Consume(token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SweeperEvictsExpiredEntries(t *testing.T) {
	clock := clockz.NewFakeClock()
	store := New(clock, 50*time.Millisecond)
	store.StartSweeper(10 * time.Millisecond)
	defer store.Close()

	store.Create("sess-5", domain.PipelineState{SessionID: "sess-5"}, nil)

	clock.Advance(200 * time.Millisecond)
	clock.BlockUntilReady()
	time.Sleep(20 * time.Millisecond)

	assert.False(t, store.IsPending("sess-5"))
}
