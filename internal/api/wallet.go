package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"social_network/internal/domain" // Importing domain models
	"social_network/internal/ledger" // Wallet ledger
	"social_network/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Decimal amounts
	"github.com/sirupsen/logrus"    // Logging library
)

// CreateWalletRequest represents a wallet creation request
type CreateWalletRequest struct {
	UserID uint `json:"userId"` // Owner of the wallet
}

// AddBalanceRequest represents a top-up request
type AddBalanceRequest struct {
	WalletID string          `json:"walletId"` // Wallet to credit
	Amount   decimal.Decimal `json:"amount"`   // Amount to add
}

// TransferRequest represents a transfer request
type TransferRequest struct {
	FromWalletID string          `json:"fromWalletId"` // Sender wallet
	ToWalletID   string          `json:"toWalletId"`   // Receiver wallet
	Amount       decimal.Decimal `json:"amount"`       // Transfer amount
}

// CreateWalletHandler returns the user's wallet, creating it on first call
func CreateWalletHandler(svc *ledger.Service, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateWalletRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request")
			return
		}
		wallet, created, err := svc.GetOrCreateWallet(c.Request.Context(), req.UserID)
		if err != nil {
			ledgerError(c, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
			invalidateWallets(cache, wallet.WalletID) // admin user lists embed wallets
		}
		c.JSON(status, gin.H{"success": true, "wallet": wallet})
	}
}

// GetUserWalletHandler returns the wallet owned by user :id
func GetUserWalletHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := paramID(c, "id")
		if !ok {
			return
		}
		wallet, err := svc.WalletByUser(c.Request.Context(), userID)
		if err != nil {
			ledgerError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "wallet": wallet})
	}
}

// AddBalanceHandler credits a wallet and records a top-up
func AddBalanceHandler(svc *ledger.Service, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddBalanceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request")
			return
		}
		wallet, err := svc.AddBalance(c.Request.Context(), req.WalletID, req.Amount)
		if err != nil {
			ledgerError(c, err)
			return
		}
		invalidateWallets(cache, wallet.WalletID)
		c.JSON(http.StatusOK, gin.H{"success": true, "wallet": wallet})
	}
}

// TransferHandler moves funds between two wallets
func TransferHandler(svc *ledger.Service, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TransferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request")
			return
		}
		res, err := svc.Transfer(c.Request.Context(), req.FromWalletID, req.ToWalletID, req.Amount)
		if err != nil {
			ledgerError(c, err)
			return
		}
		invalidateWallets(cache, res.Sender.WalletID, res.Receiver.WalletID)
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"sender":   res.Sender,   // Sender wallet after the debit
			"receiver": res.Receiver, // Receiver wallet after the credit
		})
	}
}

// WalletStatsHandler returns balance, totals and entry count of a wallet
func WalletStatsHandler(svc *ledger.Service, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		walletID := c.Param("walletId")
		// Resolve the key before reading the ledger so a concurrent
		// invalidation retires whatever this request computes
		cacheKey, keyErr := cache.Key(ctx, utils.WalletKeyPrefix(walletID), "stats")
		var cached ledger.Stats
		if found, err := cache.Get(ctx, cacheKey, &cached); keyErr == nil && err == nil && found {
			c.JSON(http.StatusOK, gin.H{"success": true, "stats": cached, "cached": true})
			return
		}
		stats, err := svc.Stats(ctx, walletID)
		if err != nil {
			ledgerError(c, err)
			return
		}
		if keyErr == nil {
			_ = cache.Set(ctx, cacheKey, stats) // Cache the stats for future requests
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats, "cached": false})
	}
}

// WalletTransactionsHandler returns the newest ledger entries of a wallet
func WalletTransactionsHandler(svc *ledger.Service, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		walletID := c.Param("walletId")
		limit := 0
		if l := c.Query("limit"); l != "" {
			v, err := strconv.Atoi(l)
			if err != nil {
				fail(c, http.StatusBadRequest, "Invalid limit")
				return
			}
			limit = v
		}
		limit = ledger.NormalizeLimit(limit)
		cacheKey, keyErr := cache.Key(ctx, utils.WalletKeyPrefix(walletID), "txs:"+strconv.Itoa(limit))
		var cached []domain.Transaction
		if found, err := cache.Get(ctx, cacheKey, &cached); keyErr == nil && err == nil && found {
			c.JSON(http.StatusOK, gin.H{"success": true, "transactions": cached, "cached": true})
			return
		}
		txs, err := svc.Transactions(ctx, walletID, limit)
		if err != nil {
			ledgerError(c, err)
			return
		}
		if keyErr == nil {
			_ = cache.Set(ctx, cacheKey, txs) // Cache the list for future requests
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "transactions": txs, "cached": false})
	}
}

// invalidateWallets retires cached views of the given wallets and the admin lists
func invalidateWallets(cache *utils.Cache, walletIDs ...string) {
	ctx := context.Background()
	namespaces := []string{utils.AdminKeyPrefix} // admin user lists embed balances
	for _, id := range walletIDs {
		namespaces = append(namespaces, utils.WalletKeyPrefix(id))
	}
	for _, ns := range namespaces {
		if err := cache.Invalidate(ctx, ns); err != nil {
			logrus.WithFields(logrus.Fields{"namespace": ns, "error": err.Error()}).Warn("Cache invalidation failed")
		}
	}
}
