package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpapi "github.com/GoSim-25-26J-441/garden-backend/internal/api/http"
	"github.com/GoSim-25-26J-441/garden-backend/internal/api/http/middleware"
	"github.com/GoSim-25-26J-441/garden-backend/internal/auth"
	"github.com/GoSim-25-26J-441/garden-backend/internal/ledger"
	"github.com/GoSim-25-26J-441/garden-backend/internal/metrics"
	projectshttp "github.com/GoSim-25-26J-441/garden-backend/internal/projects/http"
	"github.com/GoSim-25-26J-441/garden-backend/internal/projects/service"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	Backend     string
	Store       ledger.Store
	Log         *zap.Logger

	Verifier       *auth.Verifier
	Limiter        *middleware.RateLimiter // nil disables rate limiting
	AirdropEnabled bool
	CORSOrigins    []string

	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // defaults to the global registry
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	if dep.Log == nil {
		dep.Log = zap.NewNop()
	}
	if dep.Gatherer == nil {
		dep.Gatherer = prometheus.DefaultGatherer
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(dep.Log))
	r.Use(cors.New(cors.Config{
		AllowOrigins: dep.CORSOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type",
			middleware.HeaderRequestID,
			auth.HeaderPubkey, auth.HeaderSignature, auth.HeaderMessage,
		},
		ExposeHeaders: []string{middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Backend, dep.Store)
	healthHandler.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(dep.Gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api/v1")

	registry := service.NewRegistry(dep.Store, dep.Log, dep.Metrics)
	engine := service.NewEngine(dep.Store, dep.Log, dep.Metrics)

	projectsHandler := projectshttp.New(registry, engine, dep.Store, projectshttp.Options{
		Verifier: dep.Verifier,
		Limiter:  dep.Limiter,
		Airdrop:  dep.AirdropEnabled,
		Log:      dep.Log,
	})
	projectsHandler.Register(api)

	return r
}
