package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/garden-backend/internal/ledger"
	"github.com/GoSim-25-26J-441/garden-backend/internal/logging"
	"github.com/GoSim-25-26J-441/garden-backend/internal/metrics"
	"github.com/GoSim-25-26J-441/garden-backend/internal/projects/domain"
)

// Registry creates and reads project records.
type Registry struct {
	store   ledger.Store
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewRegistry creates a Registry. A nil logger or metrics disables them.
func NewRegistry(store ledger.Store, log *zap.Logger, m *metrics.Metrics) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{store: store, log: log, metrics: m, now: time.Now}
}

// Create validates params and writes a new record at the identifier derived from
// (params.Name, requester). The requester becomes the creator.
func (r *Registry) Create(ctx context.Context, params domain.CreateParams, requester domain.Pubkey) (*domain.Project, error) {
	p, err := r.create(ctx, params, requester)
	r.metrics.Observe("create", err)
	log := logging.For(ctx, r.log).With(zap.Stringer("creator", requester), zap.String("name", params.Name))
	if err != nil {
		log.Debug("project creation rejected", zap.Error(err))
		return nil, err
	}
	log.Info("project created", zap.Stringer("project", p.ID()))
	return p, nil
}

func (r *Registry) create(ctx context.Context, params domain.CreateParams, requester domain.Pubkey) (*domain.Project, error) {
	if err := params.Validate(requester); err != nil {
		return nil, err
	}

	p := &domain.Project{
		Name:            params.Name,
		Creator:         requester,
		Admins:          append([]domain.Pubkey(nil), params.Admins...),
		Members:         append([]domain.Pubkey{}, params.Members...),
		GithubEnabled:   params.GithubEnabled,
		JiraEnabled:     params.JiraEnabled,
		CreatedAt:       r.now().UTC().Truncate(time.Second),
		TasksCompleted:  0,
		TotalTasks:      domain.TotalTasks,
		TreasuryBalance: 0,
	}
	if err := r.store.Insert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns the record at id.
func (r *Registry) Get(ctx context.Context, id domain.Pubkey) (*domain.Project, error) {
	return r.store.Get(ctx, id)
}

// Lookup returns the record created by creator under name.
func (r *Registry) Lookup(ctx context.Context, name string, creator domain.Pubkey) (*domain.Project, error) {
	return r.store.Get(ctx, domain.DeriveProjectID(name, creator))
}
