package store

import (
	"context"
	"database/sql"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements ClientActivityStore using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// sqlitePragmas are applied to every pooled connection through the DSN.
var sqlitePragmas = []string{"busy_timeout(5000)", "journal_mode(WAL)", "synchronous(NORMAL)"}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	if err := db.Ping(); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "sqlite: ping")
	}
	return &SQLiteStore{db: db}, nil
}

func withPragmas(dsn string) string {
	q := url.Values{}
	for _, p := range sqlitePragmas {
		q.Add("_pragma", p)
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + q.Encode()
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS client_activity (
	id        TEXT PRIMARY KEY,
	client_id TEXT NOT NULL,
	seen_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_client_activity_client_seen ON client_activity(client_id, seen_at);
CREATE INDEX IF NOT EXISTS idx_client_activity_seen ON client_activity(seen_at);
`

// Migrate creates the activity table if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Record(ctx context.Context, clientID string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO client_activity (id, client_id, seen_at) VALUES (?, ?, ?)`,
		uuid.New().String(), clientID, ts.UTC().UnixNano(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: record activity %s", clientID)
	}
	return nil
}

func (s *SQLiteStore) CountSince(ctx context.Context, clientID string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM client_activity WHERE client_id = ? AND seen_at > ?`,
		clientID, since.UTC().UnixNano(),
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: count activity %s", clientID)
	}
	return n, nil
}

// Admit inserts first so the transaction holds the write lock while it
// counts; a rejected request rolls its row back.
func (s *SQLiteStore) Admit(ctx context.Context, clientID string, ts time.Time, windows []Window) (Admission, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Admission{}, eris.Wrap(err, "sqlite: begin admit")
	}
	defer tx.Rollback() //nolint:errcheck

	id := uuid.New().String()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO client_activity (id, client_id, seen_at) VALUES (?, ?, ?)`,
		id, clientID, ts.UTC().UnixNano(),
	); err != nil {
		return Admission{}, eris.Wrapf(err, "sqlite: admit activity %s", clientID)
	}

	counts := make([]int, len(windows))
	for i, w := range windows {
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM client_activity WHERE client_id = ? AND seen_at > ? AND id <> ?`,
			clientID, w.Since.UTC().UnixNano(), id,
		).Scan(&counts[i])
		if err != nil {
			return Admission{}, eris.Wrapf(err, "sqlite: count activity %s", clientID)
		}
	}

	a := decide(windows, counts)
	if !a.Admitted() {
		return a, nil
	}
	if err := tx.Commit(); err != nil {
		return Admission{}, eris.Wrap(err, "sqlite: commit admit")
	}
	return a, nil
}

func (s *SQLiteStore) Purge(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM client_activity WHERE seen_at < ?`,
		before.UTC().UnixNano(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: purge activity")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: purge rows affected")
	}
	return int(n), nil
}
