package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/ai-friend/backend/internal/model/chat"
	logx "github.com/zhouzirui/ai-friend/backend/pkg/logger"
)

const (
	redisSeqKey   = "ledger:seq"
	redisUsersKey = "ledger:users"
)

// RedisConfig describes the Redis connection used by RedisLedger.
type RedisConfig struct {
	URL          string
	ReadTimeout  int
	WriteTimeout int
	DialTimeout  int
}

// New parses the URL, applies timeouts in seconds and pings the server.
func (c RedisConfig) New(ctx context.Context) (*redis.Client, error) {
	if c.URL == "" {
		return nil, errors.New("redis url is required")
	}

	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, err
	}

	if c.ReadTimeout > 0 {
		opts.ReadTimeout = time.Duration(c.ReadTimeout) * time.Second
	}
	if c.WriteTimeout > 0 {
		opts.WriteTimeout = time.Duration(c.WriteTimeout) * time.Second
	}
	if c.DialTimeout > 0 {
		opts.DialTimeout = time.Duration(c.DialTimeout) * time.Second
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// RedisLedger keeps one list of JSON records per user.
type RedisLedger struct {
	rdb redis.Cmdable
}

func NewRedisLedger(rdb redis.Cmdable) *RedisLedger {
	return &RedisLedger{rdb: rdb}
}

func (r *RedisLedger) userKey(user string) string {
	return fmt.Sprintf("ledger:user:%s:exchanges", user)
}

// Append assigns a sequence id and pushes the record in a MULTI/EXEC block.
func (r *RedisLedger) Append(ctx context.Context, exchange *chat.Exchange) error {
	if err := validate(exchange); err != nil {
		return err
	}

	id, err := r.rdb.Incr(ctx, redisSeqKey).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", redisSeqKey).Msg("failed to allocate exchange id")
		return wrapRedis(err)
	}

	record := *exchange
	record.ID = id
	record.CreatedAt = record.CreatedAt.UTC()
	b, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal exchange: %w", err)
	}

	key := r.userKey(exchange.User)
	if _, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, b)
		pipe.SAdd(ctx, redisUsersKey, exchange.User)
		return nil
	}); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push exchange to redis")
		return wrapRedis(err)
	}

	exchange.ID = id
	return nil
}

// QueryByUser returns the user's exchanges, newest first.
func (r *RedisLedger) QueryByUser(ctx context.Context, user string) ([]chat.Exchange, error) {
	key := r.userKey(user)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logx.Error().Err(err).Str("key", key).Msg("failed to load exchanges from redis")
		return nil, wrapRedis(err)
	}

	exchanges := make([]chat.Exchange, 0, len(rows))
	for i, s := range rows {
		var exchange chat.Exchange
		if err := json.Unmarshal([]byte(s), &exchange); err != nil {
			logx.Error().Err(err).Str("user", user).Int("index", i).Msg("failed to unmarshal exchange")
			return nil, fmt.Errorf("unmarshal exchange at index %d: %w", i, err)
		}
		exchanges = append(exchanges, exchange)
	}

	sortNewestFirst(exchanges)
	return exchanges, nil
}

// Count returns how many exchanges are stored for user.
func (r *RedisLedger) Count(ctx context.Context, user string) (int, error) {
	n, err := r.rdb.LLen(ctx, r.userKey(user)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, wrapRedis(err)
	}
	return int(n), nil
}

// Users lists every user that has at least one exchange.
func (r *RedisLedger) Users(ctx context.Context) ([]string, error) {
	users, err := r.rdb.SMembers(ctx, redisUsersKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, wrapRedis(err)
	}
	return users, nil
}

func (r *RedisLedger) Close() error {
	if closer, ok := r.rdb.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func wrapRedis(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: redis: %v", ErrUnavailable, err)
}

var _ Ledger = (*RedisLedger)(nil)
