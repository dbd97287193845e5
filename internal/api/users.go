package api

import (
	"context"  // Cache invalidation
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"social_network/internal/domain"     // Importing domain models
	"social_network/internal/middleware" // Authenticated user lookup
	"social_network/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// UpdateUserRequest holds the profile fields a user may change. Nil fields
// are left untouched.
type UpdateUserRequest struct {
	Name      *string `json:"name" binding:"omitempty,max=100"`
	Bio       *string `json:"bio" binding:"omitempty,max=500"`
	AvatarURL *string `json:"avatarUrl" binding:"omitempty,max=500"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Password  *string `json:"password" binding:"omitempty,min=8,max=72"`
}

// ListUsersHandler returns a page of users, optionally filtered by ?q=
func ListUsersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParsePage(c)
		query := db.Model(&domain.User{})
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + strings.ToLower(q) + "%"
			query = query.Where("LOWER(username) LIKE ? OR LOWER(name) LIKE ?", like, like)
		}
		var total int64
		if err := query.Count(&total).Error; err != nil {
			internalError(c, err, "Failed to count users")
			return
		}
		users := []domain.User{}
		if err := query.Order("username").Offset(page.Offset()).Limit(page.PageSize).Find(&users).Error; err != nil {
			internalError(c, err, "Failed to fetch users")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"users":       users,
			"page":        page.Page,
			"page_size":   page.PageSize,
			"total":       total,
			"total_pages": page.TotalPages(total),
		})
	}
}

// GetUserHandler returns one user profile
func GetUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var user domain.User
		if err := db.First(&user, id).Error; err != nil {
			if isNotFound(err) {
				fail(c, http.StatusNotFound, "User not found")
				return
			}
			internalError(c, err, "Failed to fetch user")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
	}
}

// UpdateUserHandler lets users edit their own profile
func UpdateUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if id != middleware.CurrentUserID(c) {
			fail(c, http.StatusForbidden, "You can only edit your own profile")
			return
		}
		var req UpdateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request")
			return
		}
		updates := map[string]any{}
		if req.Name != nil {
			updates["name"] = strings.TrimSpace(*req.Name)
		}
		if req.Bio != nil {
			updates["bio"] = strings.TrimSpace(*req.Bio)
		}
		if req.AvatarURL != nil {
			updates["avatar_url"] = strings.TrimSpace(*req.AvatarURL)
		}
		if req.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*req.Email))
			var taken int64
			if err := db.Model(&domain.User{}).Where("email = ? AND id <> ?", email, id).Count(&taken).Error; err != nil {
				internalError(c, err, "Failed to update user")
				return
			}
			if taken > 0 {
				fail(c, http.StatusConflict, "Email already in use")
				return
			}
			updates["email"] = email
		}
		if req.Password != nil {
			hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
			if err != nil {
				internalError(c, err, "Failed to hash password")
				return
			}
			updates["password"] = string(hash)
		}
		var user domain.User
		if err := db.First(&user, id).Error; err != nil {
			if isNotFound(err) {
				fail(c, http.StatusNotFound, "User not found")
				return
			}
			internalError(c, err, "Failed to fetch user")
			return
		}
		if len(updates) > 0 {
			if err := db.Model(&user).Updates(updates).Error; err != nil {
				internalError(c, err, "Failed to update user")
				return
			}
			if err := db.First(&user, id).Error; err != nil {
				internalError(c, err, "Failed to fetch user")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
	}
}

// DeleteUserHandler deletes the caller's own account
func DeleteUserHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if id != middleware.CurrentUserID(c) {
			fail(c, http.StatusForbidden, "You can only delete your own account")
			return
		}
		removeUser(c, db, cache, id)
	}
}

// removeUser deletes a user tree and answers the request
func removeUser(c *gin.Context, db *gorm.DB, cache *utils.Cache, id uint) {
	var user domain.User
	if err := db.First(&user, id).Error; err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, "User not found")
			return
		}
		internalError(c, err, "Failed to fetch user")
		return
	}
	if err := db.Transaction(func(tx *gorm.DB) error {
		return deleteUserTree(tx, id)
	}); err != nil {
		internalError(c, err, "Failed to delete user")
		return
	}
	logrus.WithFields(logrus.Fields{
		"user_id":    id,
		"username":   user.Username,
		"deleted_by": middleware.CurrentUserID(c),
	}).Info("User deleted")
	_ = cache.Invalidate(context.Background(), utils.AdminKeyPrefix)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
