package ledger

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/ai-friend/backend/internal/model/chat"
	"github.com/zhouzirui/ai-friend/backend/internal/model/emotion"
)

var base = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newExchange(user, message string, offset time.Duration) *chat.Exchange {
	return &chat.Exchange{
		User:      user,
		Message:   message,
		Response:  "I'm here for you. " + message,
		Emotion:   emotion.Sadness,
		Activity:  "Try journaling your thoughts and feelings to process them.",
		CreatedAt: base.Add(offset),
	}
}

func backends(t *testing.T) map[string]Ledger {
	t.Helper()

	sqlite, err := NewSQLiteLedger(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return map[string]Ledger{
		"memory": NewMemoryLedger(),
		"sqlite": sqlite,
		"redis":  NewRedisLedger(rdb),
	}
}

func TestLedgerAppendThenQuery(t *testing.T) {
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first := newExchange("alice", "I lost my job today", 0)
			second := newExchange("alice", "I can't sleep", time.Second)
			other := newExchange("bob", "Great day!", 2*time.Second)

			require.NoError(t, l.Append(ctx, first))
			require.NoError(t, l.Append(ctx, second))
			require.NoError(t, l.Append(ctx, other))
			assert.NotZero(t, first.ID)
			assert.Greater(t, second.ID, first.ID)

			history, err := l.QueryByUser(ctx, "alice")
			require.NoError(t, err)
			require.Len(t, history, 2)

			assert.Equal(t, *second, history[0])
			assert.Equal(t, *first, history[1])

			n, err := l.Count(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, 2, n)
		})
	}
}

func TestLedgerQueryUnknownUser(t *testing.T) {
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			history, err := l.QueryByUser(context.Background(), "nobody")
			require.NoError(t, err)
			assert.Empty(t, history)
		})
	}
}

func TestLedgerOrdersByTimestampThenID(t *testing.T) {
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			late := newExchange("carol", "later", time.Minute)
			early := newExchange("carol", "earlier", 0)
			tie := newExchange("carol", "same instant", time.Minute)

			require.NoError(t, l.Append(ctx, late))
			require.NoError(t, l.Append(ctx, early))
			require.NoError(t, l.Append(ctx, tie))

			history, err := l.QueryByUser(ctx, "carol")
			require.NoError(t, err)
			require.Len(t, history, 3)
			assert.Equal(t, "same instant", history[0].Message)
			assert.Equal(t, "later", history[1].Message)
			assert.Equal(t, "earlier", history[2].Message)
		})
	}
}

func TestLedgerRejectsInvalidExchange(t *testing.T) {
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			assert.ErrorIs(t, l.Append(ctx, nil), ErrInvalidExchange)
			assert.ErrorIs(t, l.Append(ctx, &chat.Exchange{User: "dave", CreatedAt: base}), ErrInvalidExchange)
			assert.ErrorIs(t, l.Append(ctx, &chat.Exchange{User: "dave", Message: "hi"}), ErrInvalidExchange)

			n, err := l.Count(ctx, "dave")
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestLedgerConcurrentAppends(t *testing.T) {
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const writers, perWriter = 8, 20

			var wg sync.WaitGroup
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWriter; i++ {
						ex := newExchange("erin", fmt.Sprintf("w%d-%d", w, i), time.Duration(i)*time.Millisecond)
						assert.NoError(t, l.Append(ctx, ex))
					}
				}(w)
			}
			wg.Wait()

			history, err := l.QueryByUser(ctx, "erin")
			require.NoError(t, err)
			require.Len(t, history, writers*perWriter)

			ids := make(map[int64]struct{}, len(history))
			for _, ex := range history {
				ids[ex.ID] = struct{}{}
				assert.NotEmpty(t, ex.Response)
			}
			assert.Len(t, ids, writers*perWriter)
		})
	}
}

func TestSQLiteLedgerSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "chat_history.db")

	l, err := NewSQLiteLedger(ctx, path)
	require.NoError(t, err)
	ex := newExchange("frank", "remember me", 0)
	require.NoError(t, l.Append(ctx, ex))
	require.NoError(t, l.Close())

	reopened, err := NewSQLiteLedger(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	history, err := reopened.QueryByUser(ctx, "frank")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, *ex, history[0])
}

func TestRedisLedgerUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	l := NewRedisLedger(rdb)

	mr.Close()

	err := l.Append(context.Background(), newExchange("gina", "hello", 0))
	require.ErrorIs(t, err, ErrUnavailable)
	_, err = l.QueryByUser(context.Background(), "gina")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestRedisLedgerTracksUsers(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	l := NewRedisLedger(rdb)
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, newExchange("hana", "one", 0)))
	require.NoError(t, l.Append(ctx, newExchange("ivan", "two", 0)))

	users, err := l.Users(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hana", "ivan"}, users)
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	memory, err := Open(ctx, Config{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryLedger{}, memory)

	sqlite, err := Open(ctx, Config{Driver: "SQLite", SQLitePath: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteLedger{}, sqlite)
	require.NoError(t, sqlite.Close())

	rl, err := Open(ctx, Config{Driver: "redis", Redis: RedisConfig{URL: "redis://" + mr.Addr(), DialTimeout: 1}})
	require.NoError(t, err)
	assert.IsType(t, &RedisLedger{}, rl)
	require.NoError(t, rl.Close())

	_, err = Open(ctx, Config{Driver: "redis"})
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = Open(ctx, Config{Driver: "cassandra"})
	require.Error(t, err)
}
