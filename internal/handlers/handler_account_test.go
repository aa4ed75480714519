package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sulimanbank/bankcore/internal/core/services"
	"github.com/sulimanbank/bankcore/internal/dto"
	"github.com/sulimanbank/bankcore/internal/handlers"
	"github.com/sulimanbank/bankcore/internal/middleware"
	"github.com/sulimanbank/bankcore/internal/platform/config"
	"github.com/sulimanbank/bankcore/internal/repositories/memory"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		LockWaitTimeout: time.Second,
		TransferFeeRate: decimal.Zero,
	}
	container := services.NewServiceContainer(cfg, memory.NewRepositoryProvider(), nil)

	r := gin.New()
	handlers.RegisterRoutes(r, cfg, container)
	return r
}

func TestHealthRoute(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestCreateAccount_RequiresCallerHeader(t *testing.T) {
	r := newTestRouter(t)

	body, err := json.Marshal(dto.CreateAccountRequest{OwnerID: "owner-1", Name: "Checking", CurrencyCode: "USD"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateAccountAndDeposit(t *testing.T) {
	r := newTestRouter(t)

	body, err := json.Marshal(dto.CreateAccountRequest{OwnerID: "owner-1", Name: "Checking", CurrencyCode: "USD"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.CallerHeader, "tester")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created dto.AccountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "ACTIVE", created.Status)
	assert.Equal(t, int64(0), created.Balance)

	depositBody, err := json.Marshal(dto.DepositRequest{
		AccountID:      created.AccountID,
		Amount:         10000,
		CurrencyCode:   "USD",
		IdempotencyKey: "dep-1",
	})
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/operations/deposit", bytes.NewReader(depositBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.CallerHeader, "tester")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var op dto.OperationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &op))
	assert.Equal(t, int64(10000), op.Balances[created.AccountID])
	assert.False(t, op.Replayed)

	// Same idempotency key replays with 200, not a second effect.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/operations/deposit", bytes.NewReader(depositBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.CallerHeader, "tester")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &op))
	assert.True(t, op.Replayed)
	assert.Equal(t, int64(10000), op.Balances[created.AccountID])
}

func TestWithdraw_InsufficientFundsReturns422(t *testing.T) {
	r := newTestRouter(t)

	body, err := json.Marshal(dto.CreateAccountRequest{OwnerID: "owner-2", Name: "Savings", CurrencyCode: "USD"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.CallerHeader, "tester")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created dto.AccountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	withdrawBody, err := json.Marshal(dto.WithdrawRequest{
		AccountID:      created.AccountID,
		Amount:         500,
		CurrencyCode:   "USD",
		IdempotencyKey: "wd-1",
	})
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/operations/withdraw", bytes.NewReader(withdrawBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.CallerHeader, "tester")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
