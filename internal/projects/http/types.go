package http

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/garden-backend/internal/api/http/middleware"
	"github.com/GoSim-25-26J-441/garden-backend/internal/auth"
	"github.com/GoSim-25-26J-441/garden-backend/internal/ledger"
	"github.com/GoSim-25-26J-441/garden-backend/internal/projects/domain"
	"github.com/GoSim-25-26J-441/garden-backend/internal/projects/service"
)

// Handler bundles the dependencies for projects HTTP endpoints.
type Handler struct {
	registry *service.Registry
	engine   *service.Engine
	store    ledger.Store
	verifier *auth.Verifier
	limiter  *middleware.RateLimiter
	airdrop  bool
	log      *zap.Logger
}

// Options configures the boundary around the project operations.
type Options struct {
	Verifier *auth.Verifier
	Limiter  *middleware.RateLimiter // nil disables rate limiting
	Airdrop  bool                    // expose the development faucet
	Log      *zap.Logger
}

func New(registry *service.Registry, engine *service.Engine, store ledger.Store, opts Options) *Handler {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Verifier == nil {
		opts.Verifier = auth.NewVerifier(auth.ModeSignature, auth.DefaultMaxAge, opts.Log)
	}
	return &Handler{
		registry: registry,
		engine:   engine,
		store:    store,
		verifier: opts.Verifier,
		limiter:  opts.Limiter,
		airdrop:  opts.Airdrop,
		log:      opts.Log,
	}
}

type createReq struct {
	Name          string          `json:"name"`
	Admins        []domain.Pubkey `json:"admins"`
	Members       []domain.Pubkey `json:"members"`
	GithubEnabled bool            `json:"github_enabled"`
	JiraEnabled   bool            `json:"jira_enabled"`
}

type tasksReq struct {
	TasksCompleted *int `json:"tasks_completed"`
}

type fundReq struct {
	Amount uint64 `json:"amount"`
}

type withdrawReq struct {
	Amount    uint64         `json:"amount"`
	Recipient *domain.Pubkey `json:"recipient"`
}

// signedData is the Data a wallet signs for each guarded request. Keys follow
// the JSON body; address lists are comma-joined in request order.
func (r createReq) signedData() map[string]string {
	return map[string]string{
		"name":           r.Name,
		"admins":         joinKeys(r.Admins),
		"members":        joinKeys(r.Members),
		"github_enabled": strconv.FormatBool(r.GithubEnabled),
		"jira_enabled":   strconv.FormatBool(r.JiraEnabled),
	}
}

func (r tasksReq) signedData() map[string]string {
	return map[string]string{"tasks_completed": strconv.Itoa(*r.TasksCompleted)}
}

func (r fundReq) signedData() map[string]string {
	return map[string]string{"amount": strconv.FormatUint(r.Amount, 10)}
}

func (r withdrawReq) signedData() map[string]string {
	return map[string]string{
		"amount":    strconv.FormatUint(r.Amount, 10),
		"recipient": r.Recipient.String(),
	}
}

func joinKeys(keys []domain.Pubkey) string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return strings.Join(out, ",")
}

type airdropReq struct {
	Account *domain.Pubkey `json:"account"`
	Amount  uint64         `json:"amount"`
}

type projectView struct {
	ID domain.Pubkey `json:"id"`
	*domain.Project
}

func viewOf(p *domain.Project) projectView {
	return projectView{ID: p.ID(), Project: p}
}
