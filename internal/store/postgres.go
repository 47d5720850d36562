package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/db"
	"github.com/sells-group/recon-cli/internal/export"
	"github.com/sells-group/recon-cli/internal/model"
)

// PostgresStore implements Store using pgxpool. Besides the session body it
// writes one session_lines row per compared metric so results can be
// queried with SQL.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var lineColumns = []string{
	"session_id", "segment", "group_key", "metric", "growth_value", "gold_value",
	"diff", "diff_pct", "match", "compared", "one_sided",
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id                 TEXT PRIMARY KEY,
	gold_file          TEXT NOT NULL,
	growth_file        TEXT NOT NULL,
	overall_match_rate DOUBLE PRECISION NOT NULL,
	findings           INTEGER NOT NULL,
	body               JSONB NOT NULL,
	insight            TEXT,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS session_lines (
	session_id   TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	segment      TEXT NOT NULL,
	group_key    TEXT NOT NULL,
	metric       TEXT NOT NULL,
	growth_value DOUBLE PRECISION NOT NULL,
	gold_value   DOUBLE PRECISION NOT NULL,
	diff         DOUBLE PRECISION NOT NULL,
	diff_pct     DOUBLE PRECISION,
	match        BOOLEAN NOT NULL,
	compared     BOOLEAN NOT NULL,
	one_sided    BOOLEAN NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at);
CREATE INDEX IF NOT EXISTS idx_sessions_gold_file ON sessions(gold_file);
CREATE INDEX IF NOT EXISTS idx_session_lines_session ON session_lines(session_id, segment);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveSession(ctx context.Context, sess *model.Session) error {
	body, err := json.Marshal(sess)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal session")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`INSERT INTO sessions (id, gold_file, growth_file, overall_match_rate, findings, body, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
		sess.ID, sess.GoldFile, sess.GrowthFile, sess.Summary.OverallMatchRate,
		len(sess.Findings), body, sess.CreatedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert session %s", sess.ID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: session %s: %w", sess.ID, ErrSessionExists)
	}

	lines := export.Lines(sess)
	rows := make([][]any, len(lines))
	for i, l := range lines {
		rows[i] = []any{sess.ID, l.Segment, l.Key, l.Metric, l.Growth, l.Gold,
			l.Diff, l.DiffPct, l.Match, l.Compared, l.OneSided}
	}
	if _, err := db.CopyFrom(ctx, tx, "session_lines", lineColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: copy lines for %s", sess.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit")
	}
	zap.L().Debug("postgres: session saved",
		zap.String("session_id", sess.ID),
		zap.Int("lines", len(rows)),
	)
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM sessions WHERE id = $1`, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get session %s", id)
	}

	var sess model.Session
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal session %s", id)
	}
	return &sess, nil
}

func (s *PostgresStore) ListSessions(ctx context.Context, filter SessionFilter) ([]model.SessionInfo, error) {
	query := `SELECT id, gold_file, growth_file, overall_match_rate, findings, created_at FROM sessions WHERE true`
	args := []any{}
	argIdx := 1

	if filter.GoldFile != "" {
		query += fmt.Sprintf(` AND gold_file = $%d`, argIdx)
		args = append(args, filter.GoldFile)
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.Since.UTC())
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, limitOrDefault(filter.Limit), filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sessions")
	}
	defer rows.Close()

	var out []model.SessionInfo
	for rows.Next() {
		var info model.SessionInfo
		if err := rows.Scan(&info.ID, &info.GoldFile, &info.GrowthFile,
			&info.OverallMatchRate, &info.Findings, &info.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan session")
		}
		out = append(out, info)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate sessions")
}

func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete session %s", id)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, ttl time.Duration) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE created_at < $1`, time.Now().UTC().Add(-ttl))
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired sessions")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) GetInsight(ctx context.Context, id string) (string, error) {
	var insight string
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(insight, '') FROM sessions WHERE id = $1`, id).Scan(&insight)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", notFound(id)
	}
	if err != nil {
		return "", eris.Wrapf(err, "postgres: get insight %s", id)
	}
	return insight, nil
}

func (s *PostgresStore) SetInsight(ctx context.Context, id, text string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE sessions SET insight = $1 WHERE id = $2`, text, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: set insight %s", id)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}
