package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	// Register modernc SQLite driver with database/sql.
	_ "modernc.org/sqlite"

	"askme/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var gooseMu sync.Mutex

// SQLite keeps the exchange in a single-row table.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// embedded migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: creating dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: set busy timeout: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	gooseMu.Lock()
	defer func() {
		goose.SetBaseFS(nil)
		gooseMu.Unlock()
	}()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("sqlite: set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("sqlite: apply migrations: %w", err)
	}
	return nil
}

func (s *SQLite) Save(ctx context.Context, exchange domain.Exchange) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exchange (id, question, answer, recorded_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			question = excluded.question,
			answer = excluded.answer,
			recorded_at = excluded.recorded_at`,
		exchange.Question, exchange.Answer, exchange.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving exchange: %w", err)
	}
	return nil
}

func (s *SQLite) Latest(ctx context.Context) (domain.Exchange, bool, error) {
	var (
		exchange   domain.Exchange
		recordedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT question, answer, recorded_at FROM exchange WHERE id = 1`,
	).Scan(&exchange.Question, &exchange.Answer, &recordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Exchange{}, false, nil
	}
	if err != nil {
		return domain.Exchange{}, false, fmt.Errorf("sqlite: loading exchange: %w", err)
	}

	exchange.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return domain.Exchange{}, false, fmt.Errorf("sqlite: parsing recorded_at: %w", err)
	}
	return exchange, true, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
