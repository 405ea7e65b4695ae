package service_test

import (
	"context"
	"math"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GoSim-25-26J-441/garden-backend/internal/ledger"
	"github.com/GoSim-25-26J-441/garden-backend/internal/metrics"
	"github.com/GoSim-25-26J-441/garden-backend/internal/projects/domain"
	"github.com/GoSim-25-26J-441/garden-backend/internal/projects/service"
)

var (
	alice   = key(1) // creator and admin
	bob     = key(2) // second admin
	carol   = key(3) // member only
	mallory = key(4) // outsider
	rita    = key(5) // withdrawal recipient
)

func key(b byte) domain.Pubkey {
	var k domain.Pubkey
	for i := range k {
		k[i] = b
	}
	return k
}

type fixture struct {
	store    ledger.Store
	registry *service.Registry
	engine   *service.Engine
	metrics  *metrics.Metrics
	logs     *observer.ObservedLogs
}

func setup(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, client.Ping(context.Background()).Err())

	store := ledger.NewRedisStore(client)
	t.Cleanup(func() { store.Close() })

	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)
	m := metrics.New(prometheus.NewRegistry())

	return &fixture{
		store:    store,
		registry: service.NewRegistry(store, log, m),
		engine:   service.NewEngine(store, log, m),
		metrics:  m,
		logs:     logs,
	}
}

func (f *fixture) garden(t *testing.T) *domain.Project {
	t.Helper()
	p, err := f.registry.Create(context.Background(), domain.CreateParams{
		Name:    "Garden",
		Admins:  []domain.Pubkey{alice, bob},
		Members: []domain.Pubkey{carol},
	}, alice)
	require.NoError(t, err)
	return p
}

func (f *fixture) balance(t *testing.T, account domain.Pubkey) uint64 {
	t.Helper()
	v, err := f.store.Balance(context.Background(), account)
	require.NoError(t, err)
	return v
}

func (f *fixture) stored(t *testing.T, id domain.Pubkey) *domain.Project {
	t.Helper()
	p, err := f.registry.Get(context.Background(), id)
	require.NoError(t, err)
	return p
}

func TestRegistry_Create(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	t.Run("initializes a project", func(t *testing.T) {
		p, err := f.registry.Create(ctx, domain.CreateParams{
			Name:   "Garden",
			Admins: []domain.Pubkey{alice},
		}, alice)
		require.NoError(t, err)

		assert.Equal(t, "Garden", p.Name)
		assert.Equal(t, alice, p.Creator)
		assert.Equal(t, uint8(0), p.TasksCompleted)
		assert.Equal(t, uint8(100), p.TotalTasks)
		assert.Equal(t, uint64(0), p.TreasuryBalance)
		assert.False(t, p.CreatedAt.IsZero())
		assert.False(t, p.GithubEnabled)
		assert.False(t, p.JiraEnabled)

		stored := f.stored(t, domain.DeriveProjectID("Garden", alice))
		assert.Equal(t, p.Name, stored.Name)
		assert.True(t, p.CreatedAt.Equal(stored.CreatedAt))
	})

	t.Run("second create with same name and creator fails", func(t *testing.T) {
		_, err := f.registry.Create(ctx, domain.CreateParams{
			Name:          "Garden",
			Admins:        []domain.Pubkey{alice, bob},
			GithubEnabled: true,
		}, alice)
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)

		stored := f.stored(t, domain.DeriveProjectID("Garden", alice))
		assert.Equal(t, []domain.Pubkey{alice}, stored.Admins, "first state unaffected")
		assert.False(t, stored.GithubEnabled)
	})

	t.Run("same name under another creator is a distinct project", func(t *testing.T) {
		p, err := f.registry.Create(ctx, domain.CreateParams{
			Name:   "Garden",
			Admins: []domain.Pubkey{bob},
		}, bob)
		require.NoError(t, err)
		assert.NotEqual(t, domain.DeriveProjectID("Garden", alice), p.ID())
	})

	t.Run("duplicate admins rejected before any write", func(t *testing.T) {
		_, err := f.registry.Create(ctx, domain.CreateParams{
			Name:   "Orchard",
			Admins: []domain.Pubkey{alice, alice},
		}, alice)
		assert.ErrorIs(t, err, domain.ErrDuplicateAddress)

		_, err = f.registry.Lookup(ctx, "Orchard", alice)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("requester must be an admin", func(t *testing.T) {
		_, err := f.registry.Create(ctx, domain.CreateParams{
			Name:   "Orchard",
			Admins: []domain.Pubkey{bob},
		}, alice)
		assert.ErrorIs(t, err, domain.ErrCreatorNotInAdmins)
	})
}

func TestRegistry_Lookup(t *testing.T) {
	f := setup(t)
	p := f.garden(t)

	got, err := f.registry.Lookup(context.Background(), "Garden", alice)
	require.NoError(t, err)
	assert.Equal(t, p.ID(), got.ID())

	_, err = f.registry.Lookup(context.Background(), "Garden", bob)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEngine_UpdateTaskCompletion(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.garden(t)

	t.Run("outsider is unauthorized regardless of value", func(t *testing.T) {
		for _, n := range []int{50, 150, -1} {
			_, err := f.engine.UpdateTaskCompletion(ctx, p.ID(), n, mallory)
			assert.ErrorIs(t, err, domain.ErrUnauthorized, "tasks=%d", n)
		}
	})

	t.Run("members are not authorities", func(t *testing.T) {
		_, err := f.engine.UpdateTaskCompletion(ctx, p.ID(), 10, carol)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := f.engine.UpdateTaskCompletion(ctx, p.ID(), 150, alice)
		assert.ErrorIs(t, err, domain.ErrInvalidTaskCount)
		_, err = f.engine.UpdateTaskCompletion(ctx, p.ID(), -1, alice)
		assert.ErrorIs(t, err, domain.ErrInvalidTaskCount)
		assert.Equal(t, uint8(0), f.stored(t, p.ID()).TasksCompleted)
	})

	t.Run("creator sets progress", func(t *testing.T) {
		got, err := f.engine.UpdateTaskCompletion(ctx, p.ID(), 50, alice)
		require.NoError(t, err)
		assert.Equal(t, uint8(50), got.TasksCompleted)
		assert.Equal(t, uint8(50), f.stored(t, p.ID()).TasksCompleted)
	})

	t.Run("admin may move progress backwards and to the bounds", func(t *testing.T) {
		for _, n := range []int{20, 100, 0} {
			got, err := f.engine.UpdateTaskCompletion(ctx, p.ID(), n, bob)
			require.NoError(t, err)
			assert.Equal(t, uint8(n), got.TasksCompleted)
		}
	})

	t.Run("only progress changes", func(t *testing.T) {
		before := f.stored(t, p.ID())
		_, err := f.engine.UpdateTaskCompletion(ctx, p.ID(), 33, alice)
		require.NoError(t, err)
		after := f.stored(t, p.ID())
		before.TasksCompleted = 33
		assert.Equal(t, before, after)
	})

	t.Run("missing project", func(t *testing.T) {
		_, err := f.engine.UpdateTaskCompletion(ctx, key(99), 1, alice)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestEngine_FundAndWithdraw(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.garden(t)
	require.NoError(t, f.store.Mint(ctx, alice, 5000))

	// Scenario B
	got, err := f.engine.FundTreasury(ctx, p.ID(), 1000, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), got.TreasuryBalance)
	assert.Equal(t, uint64(4000), f.balance(t, alice))
	assert.Equal(t, uint64(1000), f.balance(t, p.ID()))

	_, err = f.engine.FundTreasury(ctx, p.ID(), 0, alice)
	assert.ErrorIs(t, err, domain.ErrInvalidFundingAmount)
	assert.Equal(t, uint64(1000), f.stored(t, p.ID()).TreasuryBalance)

	// Scenario C
	_, err = f.engine.WithdrawFunds(ctx, p.ID(), 1500, alice, rita)
	assert.ErrorIs(t, err, domain.ErrWithdrawalExceedsBalance)
	assert.Equal(t, uint64(1000), f.stored(t, p.ID()).TreasuryBalance)

	got, err = f.engine.WithdrawFunds(ctx, p.ID(), 600, alice, rita)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), got.TreasuryBalance)
	assert.Equal(t, uint64(600), f.balance(t, rita))
	assert.Equal(t, uint64(400), f.balance(t, p.ID()))

	assert.Equal(t, 1000.0, testutil.ToFloat64(f.metrics.Funded))
	assert.Equal(t, 600.0, testutil.ToFloat64(f.metrics.Withdrawn))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Operations.WithLabelValues("withdraw_funds", "WithdrawalExceedsBalance")))
}

func TestEngine_FundTreasury(t *testing.T) {
	ctx := context.Background()

	t.Run("anyone may fund", func(t *testing.T) {
		f := setup(t)
		p := f.garden(t)
		require.NoError(t, f.store.Mint(ctx, mallory, 10))

		got, err := f.engine.FundTreasury(ctx, p.ID(), 10, mallory)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), got.TreasuryBalance)
	})

	t.Run("funder without funds", func(t *testing.T) {
		f := setup(t)
		p := f.garden(t)
		require.NoError(t, f.store.Mint(ctx, carol, 5))

		_, err := f.engine.FundTreasury(ctx, p.ID(), 6, carol)
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
		assert.Equal(t, uint64(5), f.balance(t, carol))
		assert.Equal(t, uint64(0), f.stored(t, p.ID()).TreasuryBalance)
	})

	t.Run("overflow rolls back the transfer", func(t *testing.T) {
		f := setup(t)
		p := f.garden(t)
		require.NoError(t, f.store.Mint(ctx, alice, math.MaxUint64))
		require.NoError(t, f.store.Mint(ctx, bob, 1))

		_, err := f.engine.FundTreasury(ctx, p.ID(), math.MaxUint64, alice)
		require.NoError(t, err)

		_, err = f.engine.FundTreasury(ctx, p.ID(), 1, bob)
		assert.ErrorIs(t, err, domain.ErrInvalidFundingAmount)
		assert.Equal(t, uint64(1), f.balance(t, bob))
		assert.Equal(t, uint64(math.MaxUint64), f.balance(t, p.ID()))
		assert.Equal(t, uint64(math.MaxUint64), f.stored(t, p.ID()).TreasuryBalance)
	})

	t.Run("missing project", func(t *testing.T) {
		f := setup(t)
		require.NoError(t, f.store.Mint(ctx, alice, 10))
		_, err := f.engine.FundTreasury(ctx, key(99), 10, alice)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, uint64(10), f.balance(t, alice))
	})
}

func TestEngine_WithdrawFunds(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.garden(t)
	require.NoError(t, f.store.Mint(ctx, alice, 1000))
	_, err := f.engine.FundTreasury(ctx, p.ID(), 1000, alice)
	require.NoError(t, err)

	t.Run("members and outsiders cannot withdraw", func(t *testing.T) {
		for _, caller := range []domain.Pubkey{carol, mallory} {
			_, err := f.engine.WithdrawFunds(ctx, p.ID(), 1, caller, caller)
			assert.ErrorIs(t, err, domain.ErrUnauthorizedWithdrawal)
		}
	})

	t.Run("authorization checked before amount", func(t *testing.T) {
		_, err := f.engine.WithdrawFunds(ctx, p.ID(), 0, mallory, mallory)
		assert.ErrorIs(t, err, domain.ErrUnauthorizedWithdrawal)
	})

	t.Run("zero amount", func(t *testing.T) {
		_, err := f.engine.WithdrawFunds(ctx, p.ID(), 0, alice, rita)
		assert.ErrorIs(t, err, domain.ErrInvalidFundingAmount)
	})

	t.Run("admin withdraws to an arbitrary recipient", func(t *testing.T) {
		got, err := f.engine.WithdrawFunds(ctx, p.ID(), 250, bob, mallory)
		require.NoError(t, err)
		assert.Equal(t, uint64(750), got.TreasuryBalance)
		assert.Equal(t, uint64(250), f.balance(t, mallory))
	})

	t.Run("withdraw entire balance", func(t *testing.T) {
		got, err := f.engine.WithdrawFunds(ctx, p.ID(), 750, alice, rita)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), got.TreasuryBalance)

		_, err = f.engine.WithdrawFunds(ctx, p.ID(), 1, alice, rita)
		assert.ErrorIs(t, err, domain.ErrWithdrawalExceedsBalance)
	})
}

func TestEngine_TreasuryConservation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.garden(t)
	require.NoError(t, f.store.Mint(ctx, alice, 10_000))
	require.NoError(t, f.store.Mint(ctx, mallory, 10_000))

	type step struct {
		fund     bool
		amount   uint64
		caller   domain.Pubkey
		succeeds bool
	}
	steps := []step{
		{true, 700, alice, true},
		{true, 300, mallory, true},
		{false, 200, alice, true},
		{false, 900, bob, false},
		{false, 100, mallory, false},
		{true, 0, alice, false},
		{false, 800, bob, true},
		{true, 20_000, mallory, false},
		{true, 50, mallory, true},
	}

	var funded, withdrawn uint64
	for i, s := range steps {
		var err error
		if s.fund {
			_, err = f.engine.FundTreasury(ctx, p.ID(), s.amount, s.caller)
		} else {
			_, err = f.engine.WithdrawFunds(ctx, p.ID(), s.amount, s.caller, rita)
		}
		if !s.succeeds {
			assert.Error(t, err, "step %d", i)
			continue
		}
		require.NoError(t, err, "step %d", i)
		if s.fund {
			funded += s.amount
		} else {
			withdrawn += s.amount
		}
	}

	assert.Equal(t, funded-withdrawn, f.stored(t, p.ID()).TreasuryBalance)
	assert.Equal(t, funded-withdrawn, f.balance(t, p.ID()))
	assert.Equal(t, withdrawn, f.balance(t, rita))
	assert.Equal(t, uint64(20_000)-funded, f.balance(t, alice)+f.balance(t, mallory))
}

func TestEngine_LogsOutcomes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.garden(t)

	_, err := f.engine.UpdateTaskCompletion(ctx, p.ID(), 5, alice)
	require.NoError(t, err)
	_, err = f.engine.UpdateTaskCompletion(ctx, p.ID(), 5, mallory)
	require.Error(t, err)

	committed := f.logs.FilterMessage("operation committed").All()
	require.Len(t, committed, 1)
	assert.Equal(t, "update_task_completion", committed[0].ContextMap()["op"])

	rejected := f.logs.FilterMessage("operation rejected").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, "Unauthorized", rejected[0].ContextMap()["code"])
}
