package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Date filters

	"social_network/internal/domain"     // Importing domain models
	"social_network/internal/middleware" // Authenticated user lookup
	"social_network/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Decimal amounts
	"github.com/sirupsen/logrus"    // Structured logging
	"gorm.io/gorm"                  // GORM ORM library
)

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID        uint           `json:"id"`        // User ID
	Username  string         `json:"username"`  // Username
	Email     string         `json:"email"`     // Email
	Role      string         `json:"role"`      // User role
	CreatedAt time.Time      `json:"createdAt"` // Signup time
	Wallet    *domain.Wallet `json:"wallet"`    // Associated wallet, nil when none
}

// adminUsersPage is the cached body of GET /admin/users
type adminUsersPage struct {
	Users      []UserAdminResponse `json:"users"`       // List of users
	Page       int                 `json:"page"`        // Current page
	PageSize   int                 `json:"page_size"`   // Page size
	Total      int64               `json:"total"`       // Total number of users
	TotalPages int                 `json:"total_pages"` // Total pages
}

// adminTxPage is the cached body of GET /admin/transactions
type adminTxPage struct {
	Transactions []domain.Transaction `json:"transactions"` // List of transactions
	Page         int                  `json:"page"`         // Current page
	PageSize     int                  `json:"page_size"`    // Page size
	Total        int64                `json:"total"`        // Total number of transactions
	TotalPages   int                  `json:"total_pages"`  // Total pages
}

// AdminStats is the body of GET /admin/stats
type AdminStats struct {
	Users        int64           `json:"users"`
	Posts        int64           `json:"posts"`
	Comments     int64           `json:"comments"`
	Messages     int64           `json:"messages"`
	Wallets      int64           `json:"wallets"`
	Transactions int64           `json:"transactions"`
	Volume       decimal.Decimal `json:"volume"`      // Sum of all transfer amounts
	TopUpVolume  decimal.Decimal `json:"topUpVolume"` // Sum of all top-ups
	Circulating  decimal.Decimal `json:"circulating"` // Sum of wallet balances
}

// AdminListUsersHandler returns all users with their wallet info
func AdminListUsersHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page := utils.ParsePage(c)
		// Create a cache key based on pagination parameters
		cacheKey, keyErr := cache.Key(ctx, utils.AdminKeyPrefix, "users:page="+strconv.Itoa(page.Page)+":size="+strconv.Itoa(page.PageSize))
		var cached adminUsersPage
		if found, err := cache.Get(ctx, cacheKey, &cached); keyErr == nil && err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"success":     true,
				"users":       cached.Users,
				"page":        cached.Page,
				"page_size":   cached.PageSize,
				"total":       cached.Total,
				"total_pages": cached.TotalPages,
				"cached":      true, // Indicate response is from cache
			})
			return
		}
		var total int64
		if err := db.Model(&domain.User{}).Count(&total).Error; err != nil {
			internalError(c, err, "Failed to count users")
			return
		}
		var users []domain.User
		if err := db.Order("id").Offset(page.Offset()).Limit(page.PageSize).Find(&users).Error; err != nil {
			internalError(c, err, "Failed to fetch users")
			return
		}
		ids := make([]uint, len(users))
		for i, u := range users {
			ids[i] = u.ID
		}
		var wallets []domain.Wallet
		if len(ids) > 0 {
			if err := db.Where("user_id IN ?", ids).Find(&wallets).Error; err != nil {
				internalError(c, err, "Failed to fetch wallets")
				return
			}
		}
		byUser := make(map[uint]*domain.Wallet, len(wallets))
		for i := range wallets {
			byUser[wallets[i].UserID] = &wallets[i]
		}
		resp := adminUsersPage{
			Users:      make([]UserAdminResponse, len(users)),
			Page:       page.Page,
			PageSize:   page.PageSize,
			Total:      total,
			TotalPages: page.TotalPages(total),
		}
		for i, u := range users {
			resp.Users[i] = UserAdminResponse{
				ID:        u.ID,
				Username:  u.Username,
				Email:     u.Email,
				Role:      u.Role,
				CreatedAt: u.CreatedAt,
				Wallet:    byUser[u.ID],
			}
		}
		if keyErr == nil {
			_ = cache.Set(ctx, cacheKey, resp) // Cache the response for future requests
		}
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"users":       resp.Users,
			"page":        resp.Page,
			"page_size":   resp.PageSize,
			"total":       resp.Total,
			"total_pages": resp.TotalPages,
			"cached":      false,
		})
	}
}

// AdminDeleteUserHandler removes any user except the calling admin
func AdminDeleteUserHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if id == middleware.CurrentUserID(c) {
			fail(c, http.StatusBadRequest, "Cannot delete your own admin account")
			return
		}
		removeUser(c, db, cache, id)
	}
}

// AdminListPostsHandler returns every post, newest first
func AdminListPostsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParsePage(c)
		var total int64
		if err := db.Model(&domain.Post{}).Count(&total).Error; err != nil {
			internalError(c, err, "Failed to count posts")
			return
		}
		var posts []domain.Post
		if err := db.Preload("Author").Order("created_at desc, id desc").
			Offset(page.Offset()).Limit(page.PageSize).Find(&posts).Error; err != nil {
			internalError(c, err, "Failed to fetch posts")
			return
		}
		views, err := decoratePosts(db, posts, 0)
		if err != nil {
			internalError(c, err, "Failed to fetch posts")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"posts":       views,
			"page":        page.Page,
			"page_size":   page.PageSize,
			"total":       total,
			"total_pages": page.TotalPages(total),
		})
	}
}

// AdminDeletePostHandler removes any post with its likes and comments
func AdminDeletePostHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		post, ok := loadPost(c, db, id)
		if !ok {
			return
		}
		if err := db.Transaction(func(tx *gorm.DB) error {
			return deletePostTree(tx, post.ID)
		}); err != nil {
			internalError(c, err, "Failed to delete post")
			return
		}
		logrus.WithFields(logrus.Fields{
			"post_id":    post.ID,
			"author_id":  post.UserID,
			"deleted_by": middleware.CurrentUserID(c),
		}).Info("Post removed by admin")
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// AdminListTransactionsHandler returns all ledger entries, with optional
// filtering by wallet, type, status or date
func AdminListTransactionsHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page := utils.ParsePage(c)
		// Build cache key from all query params
		var keyParts []string
		for _, k := range []string{"wallet_id", "type", "status", "from", "to"} {
			keyParts = append(keyParts, k+"="+c.Query(k))
		}
		keyParts = append(keyParts, "page="+strconv.Itoa(page.Page), "page_size="+strconv.Itoa(page.PageSize))
		cacheKey, keyErr := cache.Key(ctx, utils.AdminKeyPrefix, "txs:"+strings.Join(keyParts, ":"))
		var cached adminTxPage
		if found, err := cache.Get(ctx, cacheKey, &cached); keyErr == nil && err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"success":      true,
				"transactions": cached.Transactions,
				"page":         cached.Page,
				"page_size":    cached.PageSize,
				"total":        cached.Total,
				"total_pages":  cached.TotalPages,
				"cached":       true,
			})
			return
		}
		query := db.Model(&domain.Transaction{})
		if walletID := c.Query("wallet_id"); walletID != "" {
			query = query.Where("sender_wallet_id = ? OR receiver_wallet_id = ?", walletID, walletID)
		}
		switch c.Query("type") {
		case "":
		case "topup":
			query = query.Where("sender_wallet_id IS NULL")
		case "transfer":
			query = query.Where("sender_wallet_id IS NOT NULL")
		default:
			fail(c, http.StatusBadRequest, "type must be topup or transfer")
			return
		}
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		for _, f := range []struct{ param, cond string }{{"from", "created_at >= ?"}, {"to", "created_at <= ?"}} {
			v := c.Query(f.param)
			if v == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				fail(c, http.StatusBadRequest, "Invalid "+f.param+" date, expected RFC3339")
				return
			}
			query = query.Where(f.cond, t)
		}
		var total int64
		if err := query.Count(&total).Error; err != nil {
			internalError(c, err, "Failed to count transactions")
			return
		}
		txs := []domain.Transaction{}
		if err := query.Order("created_at desc, id desc").Offset(page.Offset()).Limit(page.PageSize).Find(&txs).Error; err != nil {
			internalError(c, err, "Failed to fetch transactions")
			return
		}
		resp := adminTxPage{
			Transactions: txs,
			Page:         page.Page,
			PageSize:     page.PageSize,
			Total:        total,
			TotalPages:   page.TotalPages(total),
		}
		if keyErr == nil {
			_ = cache.Set(ctx, cacheKey, resp)
		}
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"transactions": resp.Transactions,
			"page":         resp.Page,
			"page_size":    resp.PageSize,
			"total":        resp.Total,
			"total_pages":  resp.TotalPages,
			"cached":       false,
		})
	}
}

// AdminStatsHandler returns platform counters and ledger volume
func AdminStatsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var stats AdminStats
		counts := []struct {
			model any
			dest  *int64
		}{
			{&domain.User{}, &stats.Users},
			{&domain.Post{}, &stats.Posts},
			{&domain.Comment{}, &stats.Comments},
			{&domain.Message{}, &stats.Messages},
			{&domain.Wallet{}, &stats.Wallets},
			{&domain.Transaction{}, &stats.Transactions},
		}
		for _, q := range counts {
			if err := db.Model(q.model).Count(q.dest).Error; err != nil {
				internalError(c, err, "Failed to compute stats")
				return
			}
		}
		var volume struct {
			Transfers decimal.Decimal
			TopUps    decimal.Decimal
		}
		if err := db.Model(&domain.Transaction{}).Select(
			"COALESCE(SUM(CASE WHEN sender_wallet_id IS NOT NULL THEN amount ELSE 0 END), 0) AS transfers, " +
				"COALESCE(SUM(CASE WHEN sender_wallet_id IS NULL THEN amount ELSE 0 END), 0) AS top_ups").
			Scan(&volume).Error; err != nil {
			internalError(c, err, "Failed to compute stats")
			return
		}
		var circulating decimal.Decimal
		if err := db.Model(&domain.Wallet{}).Select("COALESCE(SUM(balance), 0)").Scan(&circulating).Error; err != nil {
			internalError(c, err, "Failed to compute stats")
			return
		}
		stats.Volume = volume.Transfers
		stats.TopUpVolume = volume.TopUps
		stats.Circulating = circulating
		c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
	}
}
