// Package ledger stores exchanges in an append-only, per-user queryable log.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zhouzirui/ai-friend/backend/internal/model/chat"
)

var (
	// ErrUnavailable wraps every backend failure.
	ErrUnavailable = errors.New("ledger unavailable")
	// ErrInvalidExchange rejects records missing required fields.
	ErrInvalidExchange = errors.New("invalid exchange")
)

// Ledger is an append-only exchange log. Append assigns Exchange.ID; once it
// returns nil the record is visible to QueryByUser.
type Ledger interface {
	Append(ctx context.Context, exchange *chat.Exchange) error
	QueryByUser(ctx context.Context, user string) ([]chat.Exchange, error)
	Count(ctx context.Context, user string) (int, error)
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver     string
	SQLitePath string
	Redis      RedisConfig
}

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Open creates the configured backend, creating storage if it is absent.
func Open(ctx context.Context, cfg Config) (Ledger, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverMemory:
		return NewMemoryLedger(), nil
	case DriverSQLite, "":
		return NewSQLiteLedger(ctx, cfg.SQLitePath)
	case DriverRedis:
		client, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return NewRedisLedger(client), nil
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.Driver)
	}
}

func validate(exchange *chat.Exchange) error {
	if exchange == nil {
		return fmt.Errorf("%w: nil exchange", ErrInvalidExchange)
	}
	if strings.TrimSpace(exchange.Message) == "" {
		return fmt.Errorf("%w: message is empty", ErrInvalidExchange)
	}
	if exchange.CreatedAt.IsZero() {
		return fmt.Errorf("%w: timestamp is missing", ErrInvalidExchange)
	}
	return nil
}

// sortNewestFirst orders by timestamp descending, newer ids first on ties.
func sortNewestFirst(exchanges []chat.Exchange) {
	sort.SliceStable(exchanges, func(i, j int) bool {
		if exchanges[i].CreatedAt.Equal(exchanges[j].CreatedAt) {
			return exchanges[i].ID > exchanges[j].ID
		}
		return exchanges[i].CreatedAt.After(exchanges[j].CreatedAt)
	})
}
