package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/recon-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id                 TEXT PRIMARY KEY,
	gold_file          TEXT NOT NULL,
	growth_file        TEXT NOT NULL,
	overall_match_rate REAL NOT NULL,
	findings           INTEGER NOT NULL,
	body               TEXT NOT NULL,
	insight            TEXT,
	created_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at);
CREATE INDEX IF NOT EXISTS idx_sessions_gold_file ON sessions(gold_file);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveSession(ctx context.Context, sess *model.Session) error {
	body, err := json.Marshal(sess)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal session")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, gold_file, growth_file, overall_match_rate, findings, body, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		sess.ID, sess.GoldFile, sess.GrowthFile, sess.Summary.OverallMatchRate,
		len(sess.Findings), string(body), sess.CreatedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert session %s", sess.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return fmt.Errorf("sqlite: session %s: %w", sess.ID, ErrSessionExists)
	}
	zap.L().Debug("sqlite: session saved", zap.String("session_id", sess.ID), zap.Int("bytes", len(body)))
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM sessions WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get session %s", id)
	}

	var sess model.Session
	if err := json.Unmarshal([]byte(body), &sess); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal session %s", id)
	}
	return &sess, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, filter SessionFilter) ([]model.SessionInfo, error) {
	query := `SELECT id, gold_file, growth_file, overall_match_rate, findings, created_at FROM sessions WHERE 1=1`
	var args []any

	if filter.GoldFile != "" {
		query += ` AND gold_file = ?`
		args = append(args, filter.GoldFile)
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, limitOrDefault(filter.Limit), filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sessions")
	}
	defer rows.Close()

	var out []model.SessionInfo
	for rows.Next() {
		var info model.SessionInfo
		if err := rows.Scan(&info.ID, &info.GoldFile, &info.GrowthFile,
			&info.OverallMatchRate, &info.Findings, &info.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan session")
		}
		out = append(out, info)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate sessions")
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete session %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-ttl)
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired sessions")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

func (s *SQLiteStore) GetInsight(ctx context.Context, id string) (string, error) {
	var insight sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT insight FROM sessions WHERE id = ?`, id).Scan(&insight)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound(id)
	}
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: get insight %s", id)
	}
	return insight.String, nil
}

func (s *SQLiteStore) SetInsight(ctx context.Context, id, text string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET insight = ? WHERE id = ?`, text, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set insight %s", id)
	}
	return checkRowsAffected(res, id)
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}
