package bootstrap

import (
	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/garden-backend/config"
	"github.com/GoSim-25-26J-441/garden-backend/internal/auth"
	"github.com/GoSim-25-26J-441/garden-backend/internal/ledger"
)

// NewVerifier builds the wallet verifier. With the Redis store, consumed
// signatures are recorded in Redis; otherwise they are kept in process.
func NewVerifier(cfg config.AuthConfig, store ledger.Store, log *zap.Logger) *auth.Verifier {
	v := auth.NewVerifier(auth.Mode(cfg.Mode), cfg.SignatureMaxAge, log)
	if rs, ok := store.(*ledger.RedisStore); ok {
		v.WithReplayGuard(auth.NewRedisReplayGuard(rs.Client()))
	}
	return v
}
