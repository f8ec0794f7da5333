package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/papertrade/funds/internal/application/fundsservice"
	"github.com/papertrade/funds/internal/domain"
	"github.com/papertrade/funds/pkg/currency"
)

type FundsHandler struct {
	fundsService fundsservice.IFundsService
	logger       zerolog.Logger
}

func NewFundsHandler(fundsService fundsservice.IFundsService, logger zerolog.Logger) *FundsHandler {
	return &FundsHandler{
		fundsService: fundsService,
		logger:       logger,
	}
}

type fundsRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
}

type transactionView struct {
	Type        domain.EntryType `json:"type"`
	Amount      decimal.Decimal  `json:"amount"`
	Description string           `json:"description"`
	Timestamp   string           `json:"timestamp"`
}

func (h *FundsHandler) AddFunds(c *gin.Context) {
	h.mutate(c, "Funds added successfully", h.fundsService.AddFunds)
}

func (h *FundsHandler) WithdrawFunds(c *gin.Context) {
	h.mutate(c, "Funds withdrawn successfully", h.fundsService.WithdrawFunds)
}

func (h *FundsHandler) mutate(
	c *gin.Context,
	successMessage string,
	op func(ctx context.Context, req fundsservice.FundsRequest) (*domain.Mutation, error),
) {
	accountID := c.GetString("account_id")

	var req fundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	mutation, err := op(c.Request.Context(), fundsservice.FundsRequest{
		AccountID:      accountID,
		Amount:         req.Amount,
		Method:         req.Method,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		h.writeError(c, accountID, err)
		return
	}

	entry := mutation.Entry
	c.JSON(http.StatusOK, gin.H{
		"message": successMessage,
		"balance": currency.FromCents(mutation.BalanceCents),
		"transaction": transactionView{
			Type:        entry.EntryType,
			Amount:      currency.FromCents(entry.AmountCents),
			Description: entry.Description,
			Timestamp:   entry.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		},
	})
}

func (h *FundsHandler) GetBalance(c *gin.Context) {
	accountID := c.GetString("account_id")

	balance, err := h.fundsService.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		h.writeError(c, accountID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":       currency.FromCents(balance),
		"balance_cents": balance,
	})
}

func (h *FundsHandler) GetTransactions(c *gin.Context) {
	accountID := c.GetString("account_id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	history, err := h.fundsService.GetHistory(c.Request.Context(), accountID, page, pageSize)
	if err != nil {
		h.writeError(c, accountID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": history.Entries,
		"currentPage":  history.Page,
		"totalPages":   history.TotalPages,
		"total":        history.TotalCount,
	})
}

func (h *FundsHandler) Reconcile(c *gin.Context) {
	accountID := c.GetString("account_id")

	result, err := h.fundsService.Reconcile(c.Request.Context(), accountID)
	if err != nil {
		h.writeError(c, accountID, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *FundsHandler) writeError(c *gin.Context, accountID string, err error) {
	if ife, ok := domain.IsInsufficientFunds(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Insufficient balance",
			"balance": currency.FromCents(ife.BalanceCents),
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid amount"})
	case errors.Is(err, domain.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Account not found"})
	case errors.Is(err, domain.ErrIdempotencyConflict):
		c.JSON(http.StatusConflict, gin.H{"message": "Idempotency key already used with a different request"})
	default:
		h.logger.Error().Err(err).Str("account_id", accountID).Msg("Funds operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
	}
}
