package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of *pgxpool.Pool used by PostgresStore. It is
// satisfied by pgxmock in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements ClientActivityStore using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
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
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS client_activity (
	id        TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	client_id TEXT NOT NULL,
	seen_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_client_activity_client_seen ON client_activity(client_id, seen_at DESC);
CREATE INDEX IF NOT EXISTS idx_client_activity_seen ON client_activity(seen_at);
`

// Migrate creates the activity table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, clientID string, ts time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO client_activity (id, client_id, seen_at) VALUES ($1, $2, $3)`,
		uuid.New().String(), clientID, ts.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: record activity %s", clientID)
	}
	return nil
}

func (s *PostgresStore) CountSince(ctx context.Context, clientID string, since time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM client_activity WHERE client_id = $1 AND seen_at > $2`,
		clientID, since.UTC(),
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: count activity %s", clientID)
	}
	return n, nil
}

func (s *PostgresStore) Admit(ctx context.Context, clientID string, ts time.Time, windows []Window) (Admission, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Admission{}, eris.Wrap(err, "postgres: begin admit")
	}

	a, err := admitTx(ctx, tx, clientID, ts, windows)
	if err != nil {
		_ = tx.Rollback(ctx)
		return Admission{}, err
	}
	if !a.Admitted() {
		_ = tx.Rollback(ctx)
		return a, nil
	}
	if err := tx.Commit(ctx); err != nil {
		return Admission{}, eris.Wrap(err, "postgres: commit admit")
	}
	return a, nil
}

// admitTx takes a per-client advisory lock for the rest of the transaction,
// which serializes admissions across every instance sharing the database.
func admitTx(ctx context.Context, tx pgx.Tx, clientID string, ts time.Time, windows []Window) (Admission, error) {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, clientID); err != nil {
		return Admission{}, eris.Wrapf(err, "postgres: lock activity %s", clientID)
	}

	counts := make([]int, len(windows))
	for i, w := range windows {
		err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM client_activity WHERE client_id = $1 AND seen_at > $2`,
			clientID, w.Since.UTC(),
		).Scan(&counts[i])
		if err != nil {
			return Admission{}, eris.Wrapf(err, "postgres: count activity %s", clientID)
		}
	}

	a := decide(windows, counts)
	if !a.Admitted() {
		return a, nil
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO client_activity (id, client_id, seen_at) VALUES ($1, $2, $3)`,
		uuid.New().String(), clientID, ts.UTC(),
	); err != nil {
		return Admission{}, eris.Wrapf(err, "postgres: admit activity %s", clientID)
	}
	return a, nil
}

func (s *PostgresStore) Purge(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM client_activity WHERE seen_at < $1`, before.UTC())
	if err != nil {
		return 0, eris.Wrap(err, "postgres: purge activity")
	}
	return int(tag.RowsAffected()), nil
}
