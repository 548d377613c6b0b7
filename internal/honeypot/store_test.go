package honeypot

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionStoreGetOrCreate(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	first := store.GetOrCreate(ctx, "s-1")
	require.NotNil(t, first)
	assert.Zero(t, first.TotalMessageCount)
	assert.False(t, first.ScamDetected)
	assert.Empty(t, first.ConversationHistory)

	first.TotalMessageCount = 4
	again := store.GetOrCreate(ctx, "s-1")
	assert.Same(t, first, again)
	assert.Equal(t, 4, again.TotalMessageCount)
	assert.Equal(t, 1, store.Len())

	store.GetOrCreate(ctx, "s-2")
	assert.Equal(t, 2, store.Len())
}

func TestMemorySessionStoreSaveReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()
	original := store.GetOrCreate(ctx, "s-1")

	next := original.Clone()
	next.TotalMessageCount = 7
	store.Save(ctx, "s-1", next)

	assert.Same(t, next, store.GetOrCreate(ctx, "s-1"))
	assert.Zero(t, original.TotalMessageCount)
}

func TestMemorySessionStoreConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	var wg sync.WaitGroup
	states := make([]*SessionState, 32)
	for i := range states {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			states[i] = store.GetOrCreate(ctx, "shared")
		}(i)
	}
	wg.Wait()

	for _, s := range states {
		assert.Same(t, states[0], s)
	}
	assert.Equal(t, 1, store.Len())
}

func TestMemorySessionStoreLockSerializes(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := store.Lock("s-1")
			defer unlock()
			state := store.GetOrCreate(ctx, "s-1").Clone()
			state.TotalMessageCount++
			store.Save(ctx, "s-1", state)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, store.GetOrCreate(ctx, "s-1").TotalMessageCount)
}

func TestMemorySessionStoreLocksDistinctIDs(t *testing.T) {
	store := NewMemorySessionStore()
	for i := range 10 {
		unlock := store.Lock(fmt.Sprintf("s-%d", i))
		unlock()
	}
}

func TestIsTerminal(t *testing.T) {
	limits := DefaultLimits()
	tests := []struct {
		name     string
		messages int
		stale    int
		want     bool
	}{
		{"fresh", 0, 0, false},
		{"below both", 14, 2, false},
		{"message limit", 15, 0, true},
		{"past message limit", 20, 0, true},
		{"stagnation", 4, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewSessionState()
			state.TotalMessageCount = tt.messages
			state.ConsecutiveNoNewIntel = tt.stale
			assert.Equal(t, tt.want, IsTerminal(state, limits))
		})
	}
	assert.False(t, IsTerminal(nil, limits))
}

func TestSessionStateCloneIsDeep(t *testing.T) {
	state := stateWithLastMessage("hello")
	state.ExtractedIntelligence.URLs = append(state.ExtractedIntelligence.URLs, "http://a.example")

	clone := state.Clone()
	clone.ConversationHistory[0].Text = "changed"
	clone.ExtractedIntelligence.URLs[0] = "http://b.example"

	assert.Equal(t, "hello", state.LastMessageText())
	assert.Equal(t, "http://a.example", state.ExtractedIntelligence.URLs[0])
}
