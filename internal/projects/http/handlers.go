package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/garden-backend/internal/auth"
	"github.com/GoSim-25-26J-441/garden-backend/internal/projects/domain"
)

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	if !h.confirm(c, req.signedData()) {
		return
	}

	caller, _ := auth.Caller(c)
	p, err := h.registry.Create(c.Request.Context(), domain.CreateParams{
		Name:          req.Name,
		Admins:        req.Admins,
		Members:       req.Members,
		GithubEnabled: req.GithubEnabled,
		JiraEnabled:   req.JiraEnabled,
	}, caller)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": viewOf(p)})
}

func (h *Handler) get(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	p, err := h.registry.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": viewOf(p)})
}

func (h *Handler) lookup(c *gin.Context) {
	name := c.Query("name")
	creator, err := domain.ParsePubkey(c.Query("creator"))
	if name == "" || err != nil {
		badRequest(c, "name and creator are required")
		return
	}

	p, err := h.registry.Lookup(c.Request.Context(), name, creator)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": viewOf(p)})
}

func (h *Handler) updateTasks(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	var req tasksReq
	if err := c.ShouldBindJSON(&req); err != nil || req.TasksCompleted == nil {
		badRequest(c, "invalid body")
		return
	}
	if !h.confirm(c, req.signedData()) {
		return
	}

	caller, _ := auth.Caller(c)
	p, err := h.engine.UpdateTaskCompletion(c.Request.Context(), id, *req.TasksCompleted, caller)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": viewOf(p)})
}

func (h *Handler) fund(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	var req fundReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	if !h.confirm(c, req.signedData()) {
		return
	}

	caller, _ := auth.Caller(c)
	p, err := h.engine.FundTreasury(c.Request.Context(), id, req.Amount, caller)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": viewOf(p)})
}

func (h *Handler) withdraw(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	var req withdrawReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Recipient == nil {
		badRequest(c, "invalid body")
		return
	}
	if !h.confirm(c, req.signedData()) {
		return
	}

	caller, _ := auth.Caller(c)
	p, err := h.engine.WithdrawFunds(c.Request.Context(), id, req.Amount, caller, *req.Recipient)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": viewOf(p)})
}

func (h *Handler) balance(c *gin.Context) {
	account, err := domain.ParsePubkey(c.Param("account"))
	if err != nil {
		badRequest(c, "invalid account")
		return
	}

	amount, err := h.store.Balance(c.Request.Context(), account)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "account": account, "balance": amount})
}

func (h *Handler) airdropFunds(c *gin.Context) {
	var req airdropReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Account == nil || req.Amount == 0 {
		badRequest(c, "invalid body")
		return
	}

	ctx := c.Request.Context()
	if err := h.store.Mint(ctx, *req.Account, req.Amount); err != nil {
		h.writeError(c, err)
		return
	}
	amount, err := h.store.Balance(ctx, *req.Account)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "account": *req.Account, "balance": amount})
}

func projectID(c *gin.Context) (domain.Pubkey, bool) {
	id, err := domain.ParsePubkey(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid project id")
		return domain.Pubkey{}, false
	}
	return id, true
}
