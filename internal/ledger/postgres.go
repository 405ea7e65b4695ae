package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GoSim-25-26J-441/garden-backend/internal/projects/domain"
)

const postgresSchema = `
create table if not exists garden_projects (
	id         bytea primary key,
	record     bytea not null,
	created_at timestamptz not null default now(),
	updated_at timestamptz not null default now()
);

create table if not exists garden_balances (
	account bytea primary key,
	amount  numeric(20, 0) not null default 0 check (amount >= 0)
);
`

// PostgresStore keeps records and balances in Postgres. Updates lock the record row and
// every balance row they read, so writers to the same record serialize.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wraps an open pool. Call Migrate before first use.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, p *domain.Project) error {
	data, err := encodeRecord(p)
	if err != nil {
		return err
	}
	id := p.ID()

	const q = `insert into garden_projects (id, record) values ($1, $2);`
	_, err = s.db.Exec(ctx, q, id[:], data)

	// unique violation on id → the identifier is occupied
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.Pubkey) (*domain.Project, error) {
	const q = `select record from garden_projects where id = $1;`
	var data []byte
	err := s.db.QueryRow(ctx, q, id[:]).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return decodeRecord(data)
}

// Update retries when Postgres aborts the transaction for a deadlock or a
// serialization failure. Balance rows are locked in first-touched order, so two
// updates crediting each other's holding accounts can form a lock cycle.
func (s *PostgresStore) Update(ctx context.Context, id domain.Pubkey, fn func(tx Tx) error) (*domain.Project, error) {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		p, err := s.update(ctx, id, fn)
		if isTxAborted(err) {
			continue
		}
		return p, err
	}
	return nil, domain.ErrConflict
}

func (s *PostgresStore) update(ctx context.Context, id domain.Pubkey, fn func(tx Tx) error) (*domain.Project, error) {
	var committed *domain.Project

	err := pgx.BeginFunc(ctx, s.db, func(ptx pgx.Tx) error {
		const sel = `select record from garden_projects where id = $1 for update;`
		var data []byte
		err := ptx.QueryRow(ctx, sel, id[:]).Scan(&data)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock project: %w", err)
		}
		p, err := decodeRecord(data)
		if err != nil {
			return err
		}

		utx := newTx(p, func(account domain.Pubkey) (uint64, error) {
			return lockBalance(ctx, ptx, account)
		})
		if err := fn(utx); err != nil {
			return err
		}

		encoded, err := encodeRecord(utx.project)
		if err != nil {
			return err
		}
		const upd = `update garden_projects set record = $2, updated_at = now() where id = $1;`
		if _, err := ptx.Exec(ctx, upd, id[:], encoded); err != nil {
			return fmt.Errorf("update project: %w", err)
		}
		for _, c := range utx.book.changes() {
			if err := writeBalance(ctx, ptx, c.account, c.amount); err != nil {
				return err
			}
		}
		committed = utx.project
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// isTxAborted reports a deadlock_detected or serialization_failure abort.
func isTxAborted(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40P01" || pgErr.Code == "40001"
}

func (s *PostgresStore) Balance(ctx context.Context, account domain.Pubkey) (uint64, error) {
	const q = `select amount::text from garden_balances where account = $1;`
	var v string
	err := s.db.QueryRow(ctx, q, account[:]).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return strconv.ParseUint(v, 10, 64)
}

func (s *PostgresStore) Mint(ctx context.Context, account domain.Pubkey, amount uint64) error {
	return pgx.BeginFunc(ctx, s.db, func(ptx pgx.Tx) error {
		cur, err := lockBalance(ctx, ptx, account)
		if err != nil {
			return err
		}
		next, err := addBalance(cur, amount)
		if err != nil {
			return err
		}
		return writeBalance(ctx, ptx, account, next)
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

// lockBalance materializes the balance row so it can be locked even on first credit.
func lockBalance(ctx context.Context, ptx pgx.Tx, account domain.Pubkey) (uint64, error) {
	const ensure = `insert into garden_balances (account, amount) values ($1, 0) on conflict (account) do nothing;`
	if _, err := ptx.Exec(ctx, ensure, account[:]); err != nil {
		return 0, fmt.Errorf("ensure balance: %w", err)
	}

	const sel = `select amount::text from garden_balances where account = $1 for update;`
	var v string
	if err := ptx.QueryRow(ctx, sel, account[:]).Scan(&v); err != nil {
		return 0, fmt.Errorf("lock balance: %w", err)
	}
	return strconv.ParseUint(v, 10, 64)
}

func writeBalance(ctx context.Context, ptx pgx.Tx, account domain.Pubkey, amount uint64) error {
	const q = `update garden_balances set amount = $2::numeric where account = $1;`
	if _, err := ptx.Exec(ctx, q, account[:], strconv.FormatUint(amount, 10)); err != nil {
		return fmt.Errorf("write balance: %w", err)
	}
	return nil
}
