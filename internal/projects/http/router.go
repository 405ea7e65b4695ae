package http

import (
	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/garden-backend/internal/auth"
)

// Register attaches project, account and faucet routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	projects := rg.Group("/projects")
	projects.POST("", h.guarded(auth.ActionCreateProject, auth.NewProject, h.create)...)
	projects.GET("/lookup", h.lookup)
	projects.GET("/:id", h.get)
	projects.PUT("/:id/tasks", h.guarded(auth.ActionUpdateTasks, auth.ProjectParam, h.updateTasks)...)
	projects.POST("/:id/fund", h.guarded(auth.ActionFundTreasury, auth.ProjectParam, h.fund)...)
	projects.POST("/:id/withdraw", h.guarded(auth.ActionWithdrawFunds, auth.ProjectParam, h.withdraw)...)

	rg.GET("/accounts/:account/balance", h.balance)

	if h.airdrop {
		rg.POST("/airdrop", h.airdropFunds)
	}
}

func (h *Handler) guarded(action auth.Action, resource auth.ResourceFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		h.verifier.Require(action, resource),
		h.limiter.Limit(action),
		handler,
	}
}
