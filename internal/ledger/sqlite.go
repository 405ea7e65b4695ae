package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/GoSim-25-26J-441/garden-backend/internal/projects/domain"
)

type migration struct {
	version int
	stmts   []string
}

var sqliteMigrations = []migration{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS garden_projects (
				id         BLOB PRIMARY KEY,
				record     BLOB NOT NULL,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			// uint64 does not fit SQLite's signed INTEGER, so amounts are decimal text.
			`CREATE TABLE IF NOT EXISTS garden_balances (
				account BLOB PRIMARY KEY,
				amount  TEXT NOT NULL
			)`,
		},
	},
}

// SQLiteStore keeps records and balances in a local SQLite database. The pool holds a
// single connection, so every Update runs alone.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies pending migrations.
// Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) runMigrations() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var current int
	if err := s.db.Get(&current, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range sqliteMigrations {
		if m.version <= current {
			continue
		}
		tx, err := s.db.Beginx()
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", m.version, err)
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("applying migration %d: %w", m.version, err)
			}
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Insert(ctx context.Context, p *domain.Project) error {
	data, err := encodeRecord(p)
	if err != nil {
		return err
	}
	id := p.ID()

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO garden_projects (id, record) VALUES (?, ?)`, id[:], data)
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}
	if n == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id domain.Pubkey) (*domain.Project, error) {
	return getRecord(ctx, s.db, id)
}

func (s *SQLiteStore) Update(ctx context.Context, id domain.Pubkey, fn func(tx Tx) error) (*domain.Project, error) {
	stx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning update: %w", err)
	}
	defer stx.Rollback()

	p, err := getRecord(ctx, stx, id)
	if err != nil {
		return nil, err
	}

	utx := newTx(p, func(account domain.Pubkey) (uint64, error) {
		return sqliteBalance(ctx, stx, account)
	})
	if err := fn(utx); err != nil {
		return nil, err
	}

	encoded, err := encodeRecord(utx.project)
	if err != nil {
		return nil, err
	}
	if _, err := stx.ExecContext(ctx,
		`UPDATE garden_projects SET record = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		encoded, id[:]); err != nil {
		return nil, fmt.Errorf("updating project: %w", err)
	}
	for _, c := range utx.book.changes() {
		if err := sqliteWriteBalance(ctx, stx, c.account, c.amount); err != nil {
			return nil, err
		}
	}

	if err := stx.Commit(); err != nil {
		return nil, fmt.Errorf("committing update: %w", err)
	}
	return utx.project, nil
}

func (s *SQLiteStore) Balance(ctx context.Context, account domain.Pubkey) (uint64, error) {
	return sqliteBalance(ctx, s.db, account)
}

func (s *SQLiteStore) Mint(ctx context.Context, account domain.Pubkey, amount uint64) error {
	stx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning mint: %w", err)
	}
	defer stx.Rollback()

	cur, err := sqliteBalance(ctx, stx, account)
	if err != nil {
		return err
	}
	next, err := addBalance(cur, amount)
	if err != nil {
		return err
	}
	if err := sqliteWriteBalance(ctx, stx, account, next); err != nil {
		return err
	}
	return stx.Commit()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func getRecord(ctx context.Context, q sqlx.QueryerContext, id domain.Pubkey) (*domain.Project, error) {
	var data []byte
	err := sqlx.GetContext(ctx, q, &data, `SELECT record FROM garden_projects WHERE id = ?`, id[:])
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return decodeRecord(data)
}

func sqliteBalance(ctx context.Context, q sqlx.QueryerContext, account domain.Pubkey) (uint64, error) {
	var v string
	err := sqlx.GetContext(ctx, q, &v, `SELECT amount FROM garden_balances WHERE account = ?`, account[:])
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting balance: %w", err)
	}
	return strconv.ParseUint(v, 10, 64)
}

func sqliteWriteBalance(ctx context.Context, e sqlx.ExecerContext, account domain.Pubkey, amount uint64) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO garden_balances (account, amount) VALUES (?, ?)
		ON CONFLICT(account) DO UPDATE SET amount = excluded.amount`,
		account[:], strconv.FormatUint(amount, 10))
	if err != nil {
		return fmt.Errorf("writing balance: %w", err)
	}
	return nil
}
