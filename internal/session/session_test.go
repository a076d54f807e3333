package session

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag/internal/domain"
)

func turn(role domain.Role, content string) domain.Turn {
	return domain.Turn{Role: role, Content: content}
}

func testStoreContract(t *testing.T, store domain.SessionStore) {
	ctx := context.Background()

	t.Run("empty session", func(t *testing.T) {
		turns, err := store.Turns(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, turns)
	})

	t.Run("append preserves order", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, "s1",
			turn(domain.RoleUser, "q1"),
			turn(domain.RoleAssistant, "a1"),
		))
		require.NoError(t, store.Append(ctx, "s1",
			turn(domain.RoleUser, "q2"),
			turn(domain.RoleAssistant, "a2"),
		))

		turns, err := store.Turns(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, turns, 4)
		assert.Equal(t, "q1", turns[0].Content)
		assert.Equal(t, domain.RoleUser, turns[0].Role)
		assert.Equal(t, "a1", turns[1].Content)
		assert.Equal(t, domain.RoleAssistant, turns[1].Role)
		assert.Equal(t, "q2", turns[2].Content)
		assert.Equal(t, "a2", turns[3].Content)
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, "other", turn(domain.RoleUser, "elsewhere")))
		turns, err := store.Turns(ctx, "s1")
		require.NoError(t, err)
		for _, tr := range turns {
			assert.NotEqual(t, "elsewhere", tr.Content)
		}
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx, "s1"))
		turns, err := store.Turns(ctx, "s1")
		require.NoError(t, err)
		assert.Empty(t, turns)

		// Other sessions survive.
		turns, err = store.Turns(ctx, "other")
		require.NoError(t, err)
		assert.Len(t, turns, 1)
	})
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	testStoreContract(t, store)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, "s1", turn(domain.RoleUser, "persisted")))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	turns, err := store.Turns(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "persisted", turns[0].Content)
}

func TestMemoryStore_ConcurrentAppends(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			// Each pair lands atomically even under contention.
			_ = store.Append(ctx, "shared",
				turn(domain.RoleUser, fmt.Sprintf("q%d", n)),
				turn(domain.RoleAssistant, fmt.Sprintf("a%d", n)),
			)
		}(i)
	}
	wg.Wait()

	turns, err := store.Turns(ctx, "shared")
	require.NoError(t, err)
	require.Len(t, turns, 20)
	for i := 0; i < len(turns); i += 2 {
		assert.Equal(t, domain.RoleUser, turns[i].Role)
		assert.Equal(t, domain.RoleAssistant, turns[i+1].Role)
	}
}

func TestMemoryStore_TurnsReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "s", turn(domain.RoleUser, "original")))

	turns, err := store.Turns(ctx, "s")
	require.NoError(t, err)
	turns[0].Content = "mutated"

	again, err := store.Turns(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Content)
}
