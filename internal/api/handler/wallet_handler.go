package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tdnguyen-dev/recognition-be/internal/api/dto"
	"github.com/tdnguyen-dev/recognition-be/internal/domain"
)

const defaultLedgerLimit = 50

// WalletHandler handles credit-related HTTP requests
type WalletHandler struct {
	logger  *slog.Logger
	wallets WalletStore
}

// NewWalletHandler creates a new WalletHandler instance
func NewWalletHandler(deps *Dependencies) *WalletHandler {
	return &WalletHandler{
		logger:  deps.Logger,
		wallets: deps.Wallets,
	}
}

// GetWallet handles GET /api/v1/wallet
// Returns the caller's current credit balance.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID := CurrentUserID(c)

	wallet, err := h.wallets.GetWallet(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to get wallet", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get wallet"})
		return
	}

	c.JSON(http.StatusOK, dto.NewWalletDTO(wallet))
}

// TopUp handles POST /api/v1/wallet/topup
// Credits the caller's wallet.
func (h *WalletHandler) TopUp(c *gin.Context) {
	userID := CurrentUserID(c)

	var req dto.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	description := req.Description
	if description == "" {
		description = "Credit top-up"
	}

	entry, err := h.wallets.TopUp(c.Request.Context(), userID, req.Amount, description)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to top up wallet", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to top up wallet"})
		return
	}

	c.JSON(http.StatusCreated, dto.NewLedgerEntryDTO(entry))
}

// ListTransactions handles GET /api/v1/wallet/transactions
// Lists the caller's most recent ledger entries, newest first.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID := CurrentUserID(c)

	limit := defaultLedgerLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	entries, err := h.wallets.ListLedgerEntries(c.Request.Context(), userID, limit)
	if err != nil {
		h.logger.Error("Failed to list ledger entries", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
		return
	}

	response := make([]dto.LedgerEntryDTO, len(entries))
	for i := range entries {
		response[i] = dto.NewLedgerEntryDTO(&entries[i])
	}

	c.JSON(http.StatusOK, gin.H{"transactions": response})
}
