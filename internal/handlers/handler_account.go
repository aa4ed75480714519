package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sulimanbank/bankcore/internal/core/domain"
	portssvc "github.com/sulimanbank/bankcore/internal/core/ports/services"
	"github.com/sulimanbank/bankcore/internal/dto"
	"github.com/sulimanbank/bankcore/internal/middleware"
)

// accountHandler handles HTTP requests related to accounts.
type accountHandler struct {
	accountService portssvc.AccountSvcFacade
	ledgerService  portssvc.LedgerSvcFacade
}

// registerAccountRoutes registers routes related to accounts.
func registerAccountRoutes(rg *gin.RouterGroup, accountService portssvc.AccountSvcFacade, ledgerService portssvc.LedgerSvcFacade) {
	h := &accountHandler{accountService: accountService, ledgerService: ledgerService}

	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.createAccount)
		accounts.GET("", h.listAccounts)
		accounts.GET("/:id", h.getAccount)
		accounts.GET("/:id/history", h.getHistory)
		accounts.POST("/:id/suspend", h.suspendAccount)
		accounts.POST("/:id/reactivate", h.reactivateAccount)
		accounts.POST("/:id/close", h.closeAccount)
		accounts.POST("/:id/reconcile", h.reconcile)
	}
}

func (h *accountHandler) createAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateAccount", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	callerID, ok := middleware.GetCallerIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing caller identity"})
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), req, callerID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to create account")
		return
	}
	c.JSON(http.StatusCreated, dto.ToAccountResponse(account))
}

func (h *accountHandler) getAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	account, err := h.accountService.GetAccountByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, logger, err, "Failed to fetch account")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

func (h *accountHandler) listAccounts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	accounts, err := h.accountService.ListAccounts(c.Request.Context(), limit, offset)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to list accounts")
		return
	}
	resp := make([]dto.AccountResponse, 0, len(accounts))
	for i := range accounts {
		resp = append(resp, dto.ToAccountResponse(&accounts[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *accountHandler) getHistory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.HistoryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	history, err := h.ledgerService.GetHistory(c.Request.Context(), c.Param("id"), params)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to fetch account history")
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *accountHandler) suspendAccount(c *gin.Context) {
	h.transition(c, h.accountService.SuspendAccount, "Failed to suspend account")
}

func (h *accountHandler) reactivateAccount(c *gin.Context) {
	h.transition(c, h.accountService.ReactivateAccount, "Failed to reactivate account")
}

func (h *accountHandler) closeAccount(c *gin.Context) {
	h.transition(c, h.accountService.CloseAccount, "Failed to close account")
}

func (h *accountHandler) transition(c *gin.Context, fn func(ctx context.Context, accountID string, callerID string) (*domain.Account, error), fallback string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	callerID, ok := middleware.GetCallerIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing caller identity"})
		return
	}

	account, err := fn(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		respondServiceError(c, logger, err, fallback)
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

func (h *accountHandler) reconcile(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("id")

	if err := h.ledgerService.Reconcile(c.Request.Context(), accountID); err != nil {
		respondServiceError(c, logger, err, "Failed to reconcile account")
		return
	}
	c.JSON(http.StatusOK, gin.H{"accountID": accountID, "reconciled": true})
}
