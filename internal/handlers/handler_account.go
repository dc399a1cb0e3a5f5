package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	portssvc "github.com/SscSPs/bank_ledger/internal/core/ports/services"
	"github.com/SscSPs/bank_ledger/internal/dto"
	"github.com/SscSPs/bank_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// accountHandler handles HTTP requests related to accounts.
type accountHandler struct {
	accountService portssvc.AccountSvc
	ledgerService  portssvc.LedgerSvc
	queryService   portssvc.LedgerQuerySvc
}

// newAccountHandler creates a new accountHandler.
func newAccountHandler(as portssvc.AccountSvc, ls portssvc.LedgerSvc, qs portssvc.LedgerQuerySvc) *accountHandler {
	return &accountHandler{
		accountService: as,
		ledgerService:  ls,
		queryService:   qs,
	}
}

// RegisterAccountRoutes registers routes related to accounts.
func RegisterAccountRoutes(rg *gin.RouterGroup, as portssvc.AccountSvc, ls portssvc.LedgerSvc, qs portssvc.LedgerQuerySvc) {
	h := newAccountHandler(as, ls, qs)

	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.createAccount)
		accounts.GET("", h.listAccounts)
		accounts.GET("/:accountID", h.getAccount)
		accounts.GET("/number/:accountNumber", h.getAccountByNumber)
		accounts.PATCH("/:accountID/status", middleware.RequireRole(middleware.RoleAdmin), h.updateAccountStatus)
		accounts.PATCH("/:accountID/interest-rate", middleware.RequireRole(middleware.RoleAdmin), h.updateInterestRate)
		accounts.GET("/:accountID/balance", h.getBalance)
		accounts.GET("/:accountID/history", h.getHistory)
		accounts.POST("/:accountID/interest", middleware.RequireRole(middleware.RoleAdmin), h.applyInterest)
	}
}

// createAccount godoc
// @Summary Open a new account
// @Description Opens an active account with a zero balance. The owner defaults to the caller; only administrators may name another owner.
// @Tags accounts
// @Accept  json
// @Produce  json
// @Param   account body dto.CreateAccountRequest true "Account details"
// @Success 201 {object} dto.AccountResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Opening an account for another user"
// @Failure 500 {object} map[string]string "Failed to create account"
// @Security BearerAuth
// @Router /accounts [post]
func (h *accountHandler) createAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateAccount", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := callerID(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("creator_user_id", creatorUserID))
	if req.UserID != "" && req.UserID != creatorUserID && !isAdmin(c) {
		logger.Warn("Non-admin tried to open an account for another user", slog.String("owner_user_id", req.UserID))
		c.JSON(http.StatusForbidden, gin.H{"error": "only administrators can open accounts for other users"})
		return
	}
	logger.Info("Received request to open account", slog.String("account_type", string(req.AccountType)), slog.String("currency_code", req.CurrencyCode))

	account, err := h.accountService.OpenAccount(c.Request.Context(), req, creatorUserID)
	if err != nil {
		respondError(c, logger, err, "Failed to create account")
		return
	}

	logger.Info("Account opened successfully", slog.String("account_id", account.AccountID))
	c.JSON(http.StatusCreated, dto.ToAccountResponse(account))
}

// listAccounts godoc
// @Summary List the caller's accounts
// @Tags accounts
// @Produce  json
// @Success 200 {object} dto.ListAccountsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list accounts"
// @Security BearerAuth
// @Router /accounts [get]
func (h *accountHandler) listAccounts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := callerID(c, logger)
	if !ok {
		return
	}

	accounts, err := h.accountService.ListAccountsByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, logger, err, "Failed to list accounts")
		return
	}

	logger.Info("Accounts listed successfully", slog.Int("count", len(accounts)))
	c.JSON(http.StatusOK, dto.ToListAccountsResponse(accounts))
}

// getAccount godoc
// @Summary Get an account by ID
// @Tags accounts
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Success 200 {object} dto.AccountResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 500 {object} map[string]string "Failed to retrieve account"
// @Security BearerAuth
// @Router /accounts/{accountID} [get]
func (h *accountHandler) getAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("accountID")
	logger = logger.With(slog.String("target_account_id", accountID))

	account, err := h.accountService.GetAccountByID(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve account")
		return
	}
	if !ownsAccount(c, account) {
		respondError(c, logger, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID), "Failed to retrieve account")
		return
	}

	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// getAccountByNumber godoc
// @Summary Get an account by its account number
// @Tags accounts
// @Produce  json
// @Param   accountNumber path string true "Account number"
// @Success 200 {object} dto.AccountResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 500 {object} map[string]string "Failed to retrieve account"
// @Security BearerAuth
// @Router /accounts/number/{accountNumber} [get]
func (h *accountHandler) getAccountByNumber(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountNumber := c.Param("accountNumber")

	logger = logger.With(slog.String("account_number", accountNumber))

	account, err := h.accountService.GetAccountByNumber(c.Request.Context(), accountNumber)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve account")
		return
	}
	if !ownsAccount(c, account) {
		respondError(c, logger, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountNumber), "Failed to retrieve account")
		return
	}

	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// updateAccountStatus godoc
// @Summary Change an account's status
// @Description Administrative. Closed accounts cannot be reopened, and an account must be emptied before it is closed.
// @Tags accounts
// @Accept  json
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Param   status body dto.UpdateAccountStatusRequest true "New status"
// @Success 200 {object} dto.AccountResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 409 {object} map[string]string "Status change not allowed"
// @Failure 500 {object} map[string]string "Failed to update account"
// @Security BearerAuth
// @Router /accounts/{accountID}/status [patch]
func (h *accountHandler) updateAccountStatus(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("accountID")

	var req dto.UpdateAccountStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateAccountStatus", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actorID, ok := callerID(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("target_account_id", accountID), slog.String("updater_user_id", actorID))
	logger.Info("Received request to update account status", slog.String("status", string(req.Status)))

	account, err := h.accountService.UpdateAccountStatus(c.Request.Context(), accountID, req.Status, actorID)
	if err != nil {
		respondError(c, logger, err, "Failed to update account")
		return
	}

	logger.Info("Account status updated successfully")
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// updateInterestRate godoc
// @Summary Change an account's interest rate
// @Description Administrative. The rate is an annual percentage between 0 and 100.
// @Tags accounts
// @Accept  json
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Param   rate body dto.UpdateInterestRateRequest true "New rate"
// @Success 200 {object} dto.AccountResponse
// @Failure 400 {object} map[string]string "Invalid rate"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 409 {object} map[string]string "Account is closed"
// @Failure 500 {object} map[string]string "Failed to update account"
// @Security BearerAuth
// @Router /accounts/{accountID}/interest-rate [patch]
func (h *accountHandler) updateInterestRate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("accountID")

	var req dto.UpdateInterestRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateInterestRate", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actorID, ok := callerID(c, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("target_account_id", accountID), slog.String("updater_user_id", actorID))

	account, err := h.accountService.UpdateInterestRate(c.Request.Context(), accountID, *req.InterestRate, actorID)
	if err != nil {
		respondError(c, logger, err, "Failed to update account")
		return
	}

	logger.Info("Interest rate updated successfully")
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// getBalance godoc
// @Summary Get an account's balance
// @Description Returns the balance together with the most recent entries, newest first.
// @Tags accounts
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Param   recent query int false "Number of recent entries" default(5)
// @Success 200 {object} dto.AccountBalanceResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 500 {object} map[string]string "Failed to retrieve balance"
// @Security BearerAuth
// @Router /accounts/{accountID}/balance [get]
func (h *accountHandler) getBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("accountID")

	var params dto.BalanceParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for GetBalance", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}
	if !authorizeAccount(c, logger, h.accountService, accountID) {
		return
	}

	snapshot, err := h.queryService.GetBalance(c.Request.Context(), accountID, params.Recent)
	if err != nil {
		respondError(c, logger.With(slog.String("target_account_id", accountID)), err, "Failed to retrieve balance")
		return
	}

	c.JSON(http.StatusOK, dto.ToAccountBalanceResponse(snapshot))
}

// getHistory godoc
// @Summary Get an account's transaction history
// @Description Filtered, paginated history, newest first, with a summary over the whole filtered set.
// @Tags accounts
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Param   page query int false "Page number" default(1)
// @Param   pageSize query int false "Page size" default(20)
// @Param   type query string false "Transaction type"
// @Param   status query string false "Transaction status"
// @Param   dateFrom query string false "Inclusive lower bound (RFC 3339)"
// @Param   dateTo query string false "Inclusive upper bound (RFC 3339)"
// @Param   amountMin query string false "Inclusive minimum amount"
// @Param   amountMax query string false "Inclusive maximum amount"
// @Success 200 {object} dto.HistoryResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 500 {object} map[string]string "Failed to retrieve history"
// @Security BearerAuth
// @Router /accounts/{accountID}/history [get]
func (h *accountHandler) getHistory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("accountID")

	var params dto.HistoryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for GetHistory", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}
	filter, err := params.Filter()
	if err != nil {
		respondError(c, logger, err, "Invalid query parameters")
		return
	}
	if !authorizeAccount(c, logger, h.accountService, accountID) {
		return
	}

	history, err := h.queryService.GetHistory(c.Request.Context(), accountID, filter, params.Page, params.PageSize)
	if err != nil {
		respondError(c, logger.With(slog.String("target_account_id", accountID)), err, "Failed to retrieve history")
		return
	}

	c.JSON(http.StatusOK, dto.ToHistoryResponse(history))
}

// applyInterest godoc
// @Summary Post one month of interest
// @Description Administrative. Only savings and investment accounts earn interest.
// @Tags accounts
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Success 201 {object} dto.MovementResponse
// @Failure 400 {object} map[string]string "Account not eligible"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 409 {object} map[string]string "Account not active"
// @Failure 500 {object} map[string]string "Failed to apply interest"
// @Security BearerAuth
// @Router /accounts/{accountID}/interest [post]
func (h *accountHandler) applyInterest(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("accountID")

	initiator, ok := callerID(c, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("target_account_id", accountID))

	result, err := h.ledgerService.ApplyInterest(c.Request.Context(), accountID, initiator)
	if err != nil {
		respondError(c, logger, err, "Failed to apply interest")
		return
	}

	logger.Info("Interest applied", slog.String("transaction_id", result.Transaction.TransactionID))
	c.JSON(http.StatusCreated, dto.ToMovementResponse(result))
}
