package service

import (
	"context"
	"math/bits"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/garden-backend/internal/ledger"
	"github.com/GoSim-25-26J-441/garden-backend/internal/logging"
	"github.com/GoSim-25-26J-441/garden-backend/internal/metrics"
	"github.com/GoSim-25-26J-441/garden-backend/internal/projects/domain"
)

// Engine applies authorized mutations to existing projects. Each call is one
// ledger.Store.Update, so a rejected call leaves no trace.
type Engine struct {
	store   ledger.Store
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewEngine creates an Engine. A nil logger or metrics disables them.
func NewEngine(store ledger.Store, log *zap.Logger, m *metrics.Metrics) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, log: log, metrics: m}
}

// UpdateTaskCompletion overwrites the progress counter. Progress may move in either
// direction; only the creator or an admin may set it.
func (e *Engine) UpdateTaskCompletion(ctx context.Context, id domain.Pubkey, tasksCompleted int, requester domain.Pubkey) (*domain.Project, error) {
	p, err := e.store.Update(ctx, id, func(tx ledger.Tx) error {
		p := tx.Project()
		if !p.IsAuthority(requester) {
			return domain.ErrUnauthorized
		}
		if tasksCompleted < 0 || tasksCompleted > int(p.TotalTasks) {
			return domain.ErrInvalidTaskCount
		}
		p.TasksCompleted = uint8(tasksCompleted)
		return nil
	})

	e.record(ctx, "update_task_completion", id, requester, err,
		zap.Int("tasks_completed", tasksCompleted))
	return p, err
}

// FundTreasury moves amount from the funder's external balance into the project's
// treasury holding and adds it to the tracked treasury balance. Anyone may fund.
func (e *Engine) FundTreasury(ctx context.Context, id domain.Pubkey, amount uint64, funder domain.Pubkey) (*domain.Project, error) {
	p, err := e.store.Update(ctx, id, func(tx ledger.Tx) error {
		if amount == 0 {
			return domain.ErrInvalidFundingAmount
		}
		if err := tx.Transfer(funder, id, amount); err != nil {
			if isOverflow(err) {
				return domain.ErrInvalidFundingAmount.Wrap(err)
			}
			return err
		}

		p := tx.Project()
		sum, carry := bits.Add64(p.TreasuryBalance, amount, 0)
		if carry != 0 {
			return domain.ErrInvalidFundingAmount.Wrap(domain.ErrBalanceOverflow)
		}
		p.TreasuryBalance = sum
		return nil
	})

	if err == nil && e.metrics != nil {
		e.metrics.Funded.Add(float64(amount))
	}
	e.record(ctx, "fund_treasury", id, funder, err, zap.Uint64("amount", amount))
	return p, err
}

// WithdrawFunds moves amount out of the project's treasury holding to recipient and
// subtracts it from the tracked treasury balance. Only the creator or an admin may
// withdraw; recipient is not checked against either list.
func (e *Engine) WithdrawFunds(ctx context.Context, id domain.Pubkey, amount uint64, requester, recipient domain.Pubkey) (*domain.Project, error) {
	p, err := e.store.Update(ctx, id, func(tx ledger.Tx) error {
		p := tx.Project()
		if !p.IsAuthority(requester) {
			return domain.ErrUnauthorizedWithdrawal
		}
		if amount == 0 {
			return domain.ErrInvalidFundingAmount
		}
		if amount > p.TreasuryBalance {
			return domain.ErrWithdrawalExceedsBalance
		}

		if err := tx.Transfer(id, recipient, amount); err != nil {
			return err
		}

		diff, borrow := bits.Sub64(p.TreasuryBalance, amount, 0)
		if borrow != 0 {
			return domain.ErrWithdrawalExceedsBalance
		}
		p.TreasuryBalance = diff
		return nil
	})

	if err == nil && e.metrics != nil {
		e.metrics.Withdrawn.Add(float64(amount))
	}
	e.record(ctx, "withdraw_funds", id, requester, err,
		zap.Uint64("amount", amount), zap.Stringer("recipient", recipient))
	return p, err
}

func (e *Engine) record(ctx context.Context, op string, id, caller domain.Pubkey, err error, fields ...zap.Field) {
	e.metrics.Observe(op, err)

	log := logging.For(ctx, e.log).With(
		zap.String("op", op),
		zap.Stringer("project", id),
		zap.Stringer("caller", caller),
	)
	if err != nil {
		log.Debug("operation rejected", append(fields, zap.String("code", string(domain.CodeOf(err))), zap.Error(err))...)
		return
	}
	log.Info("operation committed", fields...)
}

func isOverflow(err error) bool {
	return domain.CodeOf(err) == domain.CodeBalanceOverflow
}
