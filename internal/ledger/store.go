// Package ledger is the record store and funds pool the project core runs against.
//
// Every mutation goes through Store.Update, a unit of work over exactly one project
// record plus the funds-pool balances it moves: either the record and all staged
// transfers commit together or nothing is written.
package ledger

import (
	"context"
	"fmt"

	"github.com/GoSim-25-26J-441/garden-backend/internal/projects/domain"
)

// Store persists project records and external funds-pool balances.
type Store interface {
	// Insert writes p at p.ID() if nothing occupies it, else fails domain.ErrAlreadyExists.
	Insert(ctx context.Context, p *domain.Project) error
	// Get fails domain.ErrNotFound when no record exists at id.
	Get(ctx context.Context, id domain.Pubkey) (*domain.Project, error)
	// Update runs fn against a working copy of the record at id and commits the copy and
	// the staged transfers atomically when fn returns nil. It returns the committed record.
	Update(ctx context.Context, id domain.Pubkey, fn func(tx Tx) error) (*domain.Project, error)
	// Balance returns the funds-pool balance of account, zero when it was never credited.
	Balance(ctx context.Context, account domain.Pubkey) (uint64, error)
	// Mint credits account with new external funds.
	Mint(ctx context.Context, account domain.Pubkey, amount uint64) error
	Ping(ctx context.Context) error
	Close() error
}

// Tx is the handle an Update callback works through.
type Tx interface {
	// Project is the mutable working copy of the record.
	Project() *domain.Project
	// Transfer stages a funds-pool movement. It fails domain.ErrInsufficientFunds when from
	// holds less than amount and domain.ErrBalanceOverflow when to cannot absorb it.
	Transfer(from, to domain.Pubkey, amount uint64) error
}

// recordDiscriminant prefixes every persisted project value and identifies its layout.
const recordDiscriminant byte = 0x01

func encodeRecord(p *domain.Project) ([]byte, error) {
	body, err := p.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append([]byte{recordDiscriminant}, body...), nil
}

func decodeRecord(raw []byte) (*domain.Project, error) {
	if len(raw) == 0 || raw[0] != recordDiscriminant {
		return nil, fmt.Errorf("unknown record layout")
	}
	var p domain.Project
	if err := p.UnmarshalBinary(raw[1:]); err != nil {
		return nil, err
	}
	return &p, nil
}

// tx is the Tx shared by every backend; balances are read through the backend's
// transactional reader.
type tx struct {
	project *domain.Project
	book    *book
}

func newTx(p *domain.Project, read balanceReader) *tx {
	return &tx{project: p, book: newBook(read)}
}

func (t *tx) Project() *domain.Project { return t.project }

func (t *tx) Transfer(from, to domain.Pubkey, amount uint64) error {
	return t.book.transfer(from, to, amount)
}
