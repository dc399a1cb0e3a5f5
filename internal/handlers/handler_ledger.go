package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/bank_ledger/internal/core/ports/services"
	"github.com/SscSPs/bank_ledger/internal/dto"
	"github.com/SscSPs/bank_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ledgerHandler handles money movement and transaction lookups.
type ledgerHandler struct {
	ledgerService portssvc.LedgerSvc
	queryService  portssvc.LedgerQuerySvc
	authorizer    portssvc.AccountAuthorizerSvc
}

// RegisterLedgerRoutes registers routes under /transactions. Deposits may target
// any account; every debit and lookup requires the caller to own the account.
func RegisterLedgerRoutes(rg *gin.RouterGroup, ls portssvc.LedgerSvc, qs portssvc.LedgerQuerySvc, authz portssvc.AccountAuthorizerSvc) {
	h := &ledgerHandler{ledgerService: ls, queryService: qs, authorizer: authz}

	txns := rg.Group("/transactions")
	{
		txns.POST("/deposit", h.deposit)
		txns.POST("/withdraw", h.withdraw)
		txns.POST("/transfer", h.transfer)
		txns.POST("/transfer/by-number", h.transferByNumber)
		txns.GET("/:transactionID", h.getTransaction)
		txns.POST("/:transactionID/cancel", middleware.RequireRole(middleware.RoleAdmin), h.cancel)
		txns.POST("/:transactionID/reverse", middleware.RequireRole(middleware.RoleAdmin), h.reverse)
	}
}

// deposit godoc
// @Summary Deposit into an account
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   deposit body dto.DepositRequest true "Deposit details"
// @Success 201 {object} dto.MovementResponse
// @Failure 400 {object} map[string]string "Invalid amount"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 409 {object} map[string]string "Account not active"
// @Failure 500 {object} map[string]string "Deposit failed"
// @Security BearerAuth
// @Router /transactions/deposit [post]
func (h *ledgerHandler) deposit(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Deposit", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	logger = logger.With(slog.String("account_id", req.AccountID))

	result, err := h.ledgerService.Deposit(c.Request.Context(), req.AccountID, req.Amount, req.Description, requestMetadata(c, req.Metadata))
	if err != nil {
		respondError(c, logger, err, "Deposit failed")
		return
	}

	logger.Info("Deposit completed", slog.String("transaction_id", result.Transaction.TransactionID))
	c.JSON(http.StatusCreated, dto.ToMovementResponse(result))
}

// withdraw godoc
// @Summary Withdraw from an account
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   withdrawal body dto.WithdrawRequest true "Withdrawal details"
// @Success 201 {object} dto.MovementResponse
// @Failure 400 {object} map[string]string "Invalid amount"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 409 {object} map[string]string "Account not active"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Failure 500 {object} map[string]string "Withdrawal failed"
// @Security BearerAuth
// @Router /transactions/withdraw [post]
func (h *ledgerHandler) withdraw(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Withdraw", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	logger = logger.With(slog.String("account_id", req.AccountID))
	if !authorizeAccount(c, logger, h.authorizer, req.AccountID) {
		return
	}

	result, err := h.ledgerService.Withdraw(c.Request.Context(), req.AccountID, req.Amount, req.Description, requestMetadata(c, req.Metadata))
	if err != nil {
		respondError(c, logger, err, "Withdrawal failed")
		return
	}

	logger.Info("Withdrawal completed", slog.String("transaction_id", result.Transaction.TransactionID))
	c.JSON(http.StatusCreated, dto.ToMovementResponse(result))
}

// transfer godoc
// @Summary Transfer between two accounts
// @Description Moves money between accounts of the same currency. A fee may be charged to the source.
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   transfer body dto.TransferRequest true "Transfer details"
// @Success 201 {object} dto.TransferResponse
// @Failure 400 {object} map[string]string "Invalid amount, same account or currency mismatch"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 409 {object} map[string]string "Account not active"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Failure 500 {object} map[string]string "Transfer failed"
// @Security BearerAuth
// @Router /transactions/transfer [post]
func (h *ledgerHandler) transfer(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Transfer", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	logger = logger.With(slog.String("from_account_id", req.FromAccountID), slog.String("to_account_id", req.ToAccountID))
	if !authorizeAccount(c, logger, h.authorizer, req.FromAccountID) {
		return
	}

	result, err := h.ledgerService.Transfer(c.Request.Context(), req.FromAccountID, req.ToAccountID, req.Amount, req.Description, requestMetadata(c, req.Metadata))
	if err != nil {
		respondError(c, logger, err, "Transfer failed")
		return
	}

	logger.Info("Transfer completed", slog.String("transaction_id", result.Transaction.TransactionID))
	c.JSON(http.StatusCreated, dto.ToTransferResponse(result))
}

// transferByNumber godoc
// @Summary Transfer to an account identified by its number
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   transfer body dto.TransferByNumberRequest true "Transfer details"
// @Success 201 {object} dto.TransferResponse
// @Failure 400 {object} map[string]string "Invalid amount, same account or currency mismatch"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Failure 500 {object} map[string]string "Transfer failed"
// @Security BearerAuth
// @Router /transactions/transfer/by-number [post]
func (h *ledgerHandler) transferByNumber(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.TransferByNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for TransferByNumber", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	logger = logger.With(slog.String("from_account_id", req.FromAccountID), slog.String("to_account_number", req.ToAccountNumber))
	if !authorizeAccount(c, logger, h.authorizer, req.FromAccountID) {
		return
	}

	result, err := h.ledgerService.TransferByAccountNumber(c.Request.Context(), req.FromAccountID, req.ToAccountNumber, req.Amount, req.Description, requestMetadata(c, req.Metadata))
	if err != nil {
		respondError(c, logger, err, "Transfer failed")
		return
	}

	c.JSON(http.StatusCreated, dto.ToTransferResponse(result))
}

// getTransaction godoc
// @Summary Get a transaction by ID
// @Tags transactions
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller owns neither side"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 500 {object} map[string]string "Failed to retrieve transaction"
// @Security BearerAuth
// @Router /transactions/{transactionID} [get]
func (h *ledgerHandler) getTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("transactionID")

	logger = logger.With(slog.String("transaction_id", transactionID))

	txn, err := h.queryService.GetTransaction(c.Request.Context(), transactionID)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve transaction")
		return
	}
	if !isAdmin(c) && !h.ownsEitherSide(c, txn) {
		respondError(c, logger, fmt.Errorf("%w: transaction %s", apperrors.ErrForbidden, transactionID), "Failed to retrieve transaction")
		return
	}

	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// cancel godoc
// @Summary Cancel a pending transaction
// @Description Administrative. Only pending entries can be cancelled.
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Param   reason body dto.ReasonRequest false "Cancellation reason"
// @Success 200 {object} dto.TransactionResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Transaction is not pending"
// @Failure 500 {object} map[string]string "Cancellation failed"
// @Security BearerAuth
// @Router /transactions/{transactionID}/cancel [post]
func (h *ledgerHandler) cancel(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("transactionID")
	req, ok := bindReason(c, logger)
	if !ok {
		return
	}
	initiator, ok := callerID(c, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("transaction_id", transactionID))

	txn, err := h.ledgerService.CancelTransaction(c.Request.Context(), transactionID, req.Reason, initiator)
	if err != nil {
		respondError(c, logger, err, "Cancellation failed")
		return
	}

	logger.Info("Transaction cancelled")
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// reverse godoc
// @Summary Reverse a completed transaction
// @Description Administrative. Books a counter-entry; an entry can be reversed only once.
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Param   reason body dto.ReasonRequest false "Reversal reason"
// @Success 201 {object} dto.ReversalResponse
// @Failure 400 {object} map[string]string "Entry cannot be reversed"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Already reversed or not completed"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Failure 500 {object} map[string]string "Reversal failed"
// @Security BearerAuth
// @Router /transactions/{transactionID}/reverse [post]
func (h *ledgerHandler) reverse(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("transactionID")
	req, ok := bindReason(c, logger)
	if !ok {
		return
	}
	initiator, ok := callerID(c, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("transaction_id", transactionID))

	result, err := h.ledgerService.ReverseTransaction(c.Request.Context(), transactionID, req.Reason, initiator)
	if err != nil {
		respondError(c, logger, err, "Reversal failed")
		return
	}

	logger.Info("Transaction reversed", slog.String("reversal_id", result.Reversal.TransactionID))
	c.JSON(http.StatusCreated, dto.ToReversalResponse(result))
}

// ownsEitherSide reports whether the caller owns the source or the destination of txn.
func (h *ledgerHandler) ownsEitherSide(c *gin.Context, txn *domain.Transaction) bool {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return false
	}
	for _, side := range []*string{txn.FromAccountID, txn.ToAccountID} {
		if side != nil && h.authorizer.AuthorizeAccountAccess(c.Request.Context(), userID, *side) == nil {
			return true
		}
	}
	return false
}

// bindReason reads an optional reason body. An empty body is allowed.
func bindReason(c *gin.Context, logger *slog.Logger) (dto.ReasonRequest, bool) {
	var req dto.ReasonRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind reason", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return req, false
	}
	return req, true
}
