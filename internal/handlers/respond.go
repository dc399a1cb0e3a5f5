package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/bank_ledger/internal/core/ports/services"
	"github.com/SscSPs/bank_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// respondError maps a service error onto a status code and writes it.
// Server-side failures are logged in full but answered with fallback only.
func respondError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	status := apperrors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(status, gin.H{"error": fallback})
		return
	}
	logger.Warn(fallback, slog.String("error", err.Error()), slog.Int("status", status))
	c.JSON(status, gin.H{"error": err.Error()})
}

// requestMetadata builds entry metadata from free-form request fields, stamping
// the caller as initiator.
func requestMetadata(c *gin.Context, extra map[string]string) domain.TransactionMetadata {
	initiator, _ := middleware.GetUserIDFromContext(c)
	return domain.TransactionMetadata{
		Initiator: initiator,
		Channel:   "api",
		Extra:     extra,
	}
}

// callerID returns the authenticated user or answers 401.
func callerID(c *gin.Context, logger *slog.Logger) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return userID, ok
}

func isAdmin(c *gin.Context) bool {
	role, _ := middleware.GetRoleFromContext(c)
	return role == middleware.RoleAdmin
}

// authorizeAccount lets admins through and otherwise requires the caller to own
// accountID. Foreign accounts are answered as missing.
func authorizeAccount(c *gin.Context, logger *slog.Logger, authz portssvc.AccountAuthorizerSvc, accountID string) bool {
	if isAdmin(c) {
		return true
	}
	userID, ok := callerID(c, logger)
	if !ok {
		return false
	}
	if err := authz.AuthorizeAccountAccess(c.Request.Context(), userID, accountID); err != nil {
		respondError(c, logger.With(slog.String("target_account_id", accountID)), err, "Failed to authorize account access")
		return false
	}
	return true
}

// ownsAccount reports whether the caller may see an account that is already loaded.
func ownsAccount(c *gin.Context, account *domain.Account) bool {
	if isAdmin(c) {
		return true
	}
	userID, _ := middleware.GetUserIDFromContext(c)
	return userID != "" && account.UserID == userID
}
