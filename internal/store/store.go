package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/model"
)

// ErrSessionExists is returned when saving a session whose ID is taken.
// Sessions are immutable once written.
var ErrSessionExists = errors.New("session already exists")

// SessionFilter specifies criteria for listing sessions.
type SessionFilter struct {
	GoldFile string    `json:"gold_file,omitempty"`
	Since    time.Time `json:"since,omitempty"`
	Limit    int       `json:"limit,omitempty"`
	Offset   int       `json:"offset,omitempty"`
}

// Store defines the persistence interface for validation sessions.
type Store interface {
	// Sessions
	SaveSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]model.SessionInfo, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, ttl time.Duration) (int, error)

	// Cached summarizer output
	GetInsight(ctx context.Context, id string) (string, error)
	SetInsight(ctx context.Context, id, text string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and tunes a backend.
type Config struct {
	Driver      string
	DatabaseURL string
	MaxConns    int32
}

// Open connects to the configured backend and applies migrations.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "recon.db"
		}
		st, err = NewSQLite(dsn)
	case "postgres":
		st, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns})
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}

func notFound(id string) error {
	return fmt.Errorf("store: session %s: %w", id, model.ErrSessionNotFound)
}
