package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	authservice "github.com/papertrade/funds/internal/application/auth"
	"github.com/papertrade/funds/internal/application/fundsservice"
	"github.com/papertrade/funds/internal/domain"
)

type AccountHandler struct {
	fundsService fundsservice.IFundsService
	authService  authservice.IAuthService
	logger       zerolog.Logger
}

func NewAccountHandler(fundsService fundsservice.IFundsService, authService authservice.IAuthService, logger zerolog.Logger) *AccountHandler {
	return &AccountHandler{
		fundsService: fundsService,
		authService:  authService,
		logger:       logger,
	}
}

// CreateAccount opens a zero-balance account and issues its first token.
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	account, err := h.fundsService.CreateAccount(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create account")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	accountUUID, err := uuid.Parse(account.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("account_id", account.ID).Msg("Account id is not a valid uuid")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	token, err := h.authService.GenerateToken(c.Request.Context(), accountUUID)
	if err != nil {
		h.logger.Error().Err(err).Str("account_id", account.ID).Msg("Failed to issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"account": account,
		"token":   token,
	})
}

// DeleteAccount erases the caller's account and its ledger. The OTP
// challenge that gates this in the full product happens upstream.
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	accountID := c.GetString("account_id")

	if err := h.fundsService.DeleteAccount(c.Request.Context(), accountID); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Account not found"})
			return
		}
		h.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to delete account")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}

func (h *AccountHandler) Logout(c *gin.Context) {
	claimsValue, ok := c.Get("claims")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
		return
	}
	claims, ok := claimsValue.(*domain.Claim)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
		return
	}

	if err := h.authService.RevokeToken(c.Request.Context(), claims); err != nil {
		h.logger.Error().Err(err).Str("user_id", claims.UserID.String()).Msg("Failed to revoke token")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
