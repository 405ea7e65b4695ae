package ledger

import (
	"math/bits"

	"github.com/GoSim-25-26J-441/garden-backend/internal/projects/domain"
)

type balanceReader func(account domain.Pubkey) (uint64, error)

// book stages balance changes on top of committed balances. Reads go to the backend
// once per account; later reads see staged values.
type book struct {
	read     balanceReader
	balances map[domain.Pubkey]uint64
	touched  []domain.Pubkey
}

func newBook(read balanceReader) *book {
	return &book{read: read, balances: make(map[domain.Pubkey]uint64)}
}

func (b *book) balance(account domain.Pubkey) (uint64, error) {
	if v, ok := b.balances[account]; ok {
		return v, nil
	}
	v, err := b.read(account)
	if err != nil {
		return 0, err
	}
	b.balances[account] = v
	return v, nil
}

func (b *book) set(account domain.Pubkey, v uint64) {
	for _, t := range b.touched {
		if t == account {
			b.balances[account] = v
			return
		}
	}
	b.touched = append(b.touched, account)
	b.balances[account] = v
}

// transfer stages both sides only after every check passes, so a rejected
// transfer leaves the book untouched.
func (b *book) transfer(from, to domain.Pubkey, amount uint64) error {
	src, err := b.balance(from)
	if err != nil {
		return err
	}
	if src < amount {
		return domain.ErrInsufficientFunds
	}
	if from == to {
		return nil
	}

	dst, err := b.balance(to)
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(dst, amount, 0)
	if carry != 0 {
		return domain.ErrBalanceOverflow
	}
	b.set(from, src-amount)
	b.set(to, sum)
	return nil
}

// changes lists the staged balances in first-touched order.
func (b *book) changes() []balanceChange {
	out := make([]balanceChange, 0, len(b.touched))
	for _, acct := range b.touched {
		out = append(out, balanceChange{account: acct, amount: b.balances[acct]})
	}
	return out
}

type balanceChange struct {
	account domain.Pubkey
	amount  uint64
}

// addBalance is the overflow-checked credit used by Mint.
func addBalance(cur, amount uint64) (uint64, error) {
	sum, carry := bits.Add64(cur, amount, 0)
	if carry != 0 {
		return 0, domain.ErrBalanceOverflow
	}
	return sum, nil
}
