package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	portssvc "github.com/sulimanbank/bankcore/internal/core/ports/services"
	"github.com/sulimanbank/bankcore/internal/dto"
	"github.com/sulimanbank/bankcore/internal/middleware"
)

// loanHandler handles HTTP requests related to loans.
type loanHandler struct {
	loanService portssvc.LoanSvcFacade
}

// registerLoanRoutes registers routes related to loans.
func registerLoanRoutes(rg *gin.RouterGroup, loanService portssvc.LoanSvcFacade) {
	h := &loanHandler{loanService: loanService}

	loans := rg.Group("/loans")
	{
		loans.POST("", h.originateLoan)
		loans.GET("/:id", h.getLoan)
		loans.GET("/:id/outstanding", h.getOutstanding)
		loans.POST("/:id/repay", h.repayLoan)
		loans.POST("/delinquency-sweep", h.delinquencySweep)
	}
}

func (h *loanHandler) originateLoan(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.OriginateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for OriginateLoan", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	callerID, ok := middleware.GetCallerIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing caller identity"})
		return
	}

	loan, err := h.loanService.OriginateLoan(c.Request.Context(), req, callerID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to originate loan")
		return
	}
	c.JSON(http.StatusCreated, dto.ToLoanResponse(loan))
}

func (h *loanHandler) getLoan(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	loan, err := h.loanService.GetLoanByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, logger, err, "Failed to fetch loan")
		return
	}
	c.JSON(http.StatusOK, dto.ToLoanResponse(loan))
}

func (h *loanHandler) getOutstanding(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	loanID := c.Param("id")

	outstanding, err := h.loanService.GetOutstanding(c.Request.Context(), loanID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to fetch outstanding balance")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"loanID":       loanID,
		"outstanding":  outstanding.Amount,
		"currencyCode": outstanding.CurrencyCode,
	})
}

func (h *loanHandler) repayLoan(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RepayLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RepayLoan", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	req.LoanID = c.Param("id")

	callerID, ok := middleware.GetCallerIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing caller identity"})
		return
	}

	loan, err := h.loanService.RepayLoan(c.Request.Context(), req, callerID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to repay loan")
		return
	}
	c.JSON(http.StatusOK, dto.ToLoanResponse(loan))
}

// delinquencySweep triggers one overdue/default detection pass. The scheduler
// binary calls the same service method on a timer; this endpoint exists for
// operators and tests.
func (h *loanHandler) delinquencySweep(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	result, err := h.loanService.MarkOverdueAndDefaults(c.Request.Context(), time.Now().UTC())
	if err != nil {
		respondServiceError(c, logger, err, "Failed to run delinquency sweep")
		return
	}
	c.JSON(http.StatusOK, result)
}
