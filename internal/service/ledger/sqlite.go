package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zhouzirui/ai-friend/backend/internal/model/chat"
	"github.com/zhouzirui/ai-friend/backend/internal/model/emotion"
	logx "github.com/zhouzirui/ai-friend/backend/pkg/logger"
)

// DefaultSQLitePath is used when no path is configured.
const DefaultSQLitePath = "chat_history.db"

// timestampLayout is fixed-width so lexical order matches time order.
const timestampLayout = "2006-01-02 15:04:05.000000000"

// SQLiteLedger persists exchanges to a SQLite database.
type SQLiteLedger struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteLedger opens dbPath, creating the parent directory and the chats
// table when they do not exist.
func NewSQLiteLedger(ctx context.Context, dbPath string) (*SQLiteLedger, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = DefaultSQLitePath
	}

	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("%w: create database directory: %v", ErrUnavailable, err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrUnavailable, err)
	}
	// One connection serialises writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %v", ErrUnavailable, err)
	}

	store := &SQLiteLedger{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate database: %v", ErrUnavailable, err)
	}

	logx.Debug().Str("path", dbPath).Msg("sqlite ledger ready")
	return store, nil
}

func (s *SQLiteLedger) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user TEXT NOT NULL,
		message TEXT NOT NULL,
		response TEXT NOT NULL,
		emotion TEXT NOT NULL,
		activity TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chats_user_timestamp ON chats(user, timestamp DESC);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Append inserts exchange and assigns its id.
func (s *SQLiteLedger) Append(ctx context.Context, exchange *chat.Exchange) error {
	if err := validate(exchange); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
	INSERT INTO chats (user, message, response, emotion, activity, timestamp)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		exchange.User,
		exchange.Message,
		exchange.Response,
		string(exchange.Emotion),
		exchange.Activity,
		exchange.CreatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("%w: insert exchange: %v", ErrUnavailable, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: read exchange id: %v", ErrUnavailable, err)
	}
	exchange.ID = id
	return nil
}

// QueryByUser returns the user's exchanges, newest first.
func (s *SQLiteLedger) QueryByUser(ctx context.Context, user string) ([]chat.Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
	SELECT id, user, message, response, emotion, activity, timestamp
	FROM chats
	WHERE user = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := s.db.QueryContext(ctx, query, user)
	if err != nil {
		return nil, fmt.Errorf("%w: query exchanges: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	exchanges := make([]chat.Exchange, 0)
	for rows.Next() {
		var (
			exchange  chat.Exchange
			label     string
			timestamp string
		)
		if err := rows.Scan(
			&exchange.ID,
			&exchange.User,
			&exchange.Message,
			&exchange.Response,
			&label,
			&exchange.Activity,
			&timestamp,
		); err != nil {
			return nil, fmt.Errorf("%w: scan exchange: %v", ErrUnavailable, err)
		}

		exchange.Emotion = emotion.Label(label)
		exchange.CreatedAt, err = time.ParseInLocation(timestampLayout, timestamp, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp of exchange %d: %w", exchange.ID, err)
		}
		exchanges = append(exchanges, exchange)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate exchanges: %v", ErrUnavailable, err)
	}

	return exchanges, nil
}

// Count returns how many exchanges are stored for user.
func (s *SQLiteLedger) Count(ctx context.Context, user string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats WHERE user = ?`, user).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count exchanges: %v", ErrUnavailable, err)
	}
	return n, nil
}

// Close releases the database handle.
func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}

var _ Ledger = (*SQLiteLedger)(nil)
