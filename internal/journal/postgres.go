package journal

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresSink appends journal entries to a `transfer_events` table. Sessions
// never wait on it beyond the insert itself; a failing database degrades to
// logged append errors.
type PostgresSink struct {
	db *sql.DB
}

var _ Sink = (*PostgresSink)(nil)

// NewPostgresSink opens the database behind dsn and ensures the schema.
func NewPostgresSink(dsn string) (*PostgresSink, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &PostgresSink{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresSink) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS transfer_events (
    id BIGSERIAL PRIMARY KEY,
    time TIMESTAMPTZ NOT NULL,
    session_id TEXT NOT NULL,
    type TEXT NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    error_code TEXT NOT NULL DEFAULT '',
    "offset" BIGINT NOT NULL DEFAULT 0,
    total BIGINT NOT NULL DEFAULT 0
);
`)
	return err
}

func (s *PostgresSink) Append(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transfer_events (time, session_id, type, detail, error_code, "offset", total) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.Time, e.SessionID, string(e.Type), e.Detail, string(e.ErrorCode), e.Offset, e.Total)
	return err
}

func (s *PostgresSink) Close() error { return s.db.Close() }
