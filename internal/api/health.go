package api

import (
	"context"  // Probe timeout
	"net/http" // HTTP status codes
	"time"     // Probe timeout

	"social_network/internal/utils" // Utility functions

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// HealthHandler pings the database and, when configured, Redis
func HealthHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			fail(c, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		if err := cache.Ping(ctx); err != nil {
			fail(c, http.StatusServiceUnavailable, "cache unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "cache": cache.Enabled()})
	}
}
