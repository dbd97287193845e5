package api

import (
	"context"  // Cache invalidation
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Token lifetime

	"social_network/internal/domain" // Importing domain models
	"social_network/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// RegisterRequest is the body of POST /api/users
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`                // Username must be provided
	Email    string `json:"email" binding:"required,email"`            // Contact email
	Password string `json:"password" binding:"required,min=8,max=72"` // bcrypt reads at most 72 bytes
	Name     string `json:"name" binding:"max=100"`                    // Display name
}

// LoginRequest is the body of the login endpoints
type LoginRequest struct {
	Username string `json:"username" binding:"required"` // Username must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// RegisterHandler creates a user account
func RegisterHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request")
			return
		}
		username := domain.NormalizeUsername(req.Username)
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if !domain.ValidUsername(username) {
			fail(c, http.StatusBadRequest, "Username must be 3-30 letters, digits or underscores")
			return
		}
		var taken int64
		if err := db.Model(&domain.User{}).Where("username = ? OR email = ?", username, email).Count(&taken).Error; err != nil {
			internalError(c, err, "Failed to register user")
			return
		}
		if taken > 0 {
			fail(c, http.StatusConflict, "Username or email already exists")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			internalError(c, err, "Failed to hash password")
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			name = username
		}
		user := domain.User{Username: username, Email: email, Password: string(hash), Name: name, Role: domain.RoleUser}
		if err := db.Create(&user).Error; err != nil {
			// Lost a race on the unique index
			fail(c, http.StatusConflict, "Username or email already exists")
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("User registered")
		_ = cache.Invalidate(context.Background(), utils.AdminKeyPrefix)
		c.JSON(http.StatusCreated, gin.H{"success": true, "user": user})
	}
}

// authenticate checks credentials and returns the user
func authenticate(c *gin.Context, db *gorm.DB) (*domain.User, bool) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request")
		return nil, false
	}
	var user domain.User
	if err := db.Where("username = ?", domain.NormalizeUsername(req.Username)).First(&user).Error; err != nil {
		if !isNotFound(err) {
			internalError(c, err, "Login failed")
			return nil, false
		}
		fail(c, http.StatusUnauthorized, "Invalid credentials")
		return nil, false
	}
	// Compare provided password with stored hash
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		fail(c, http.StatusUnauthorized, "Invalid credentials")
		return nil, false
	}
	return &user, true
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(db *gorm.DB, jwtSecret string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := authenticate(c, db)
		if !ok {
			return
		}
		token, err := utils.GenerateJWT(user.ID, user.Role, jwtSecret, ttl)
		if err != nil {
			internalError(c, err, "Failed to generate token")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "user": user})
	}
}

// AdminLoginHandler authenticates an admin and returns the session token.
// Clients store it in the admin_token cookie or send it as a bearer token.
func AdminLoginHandler(db *gorm.DB, jwtSecret string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := authenticate(c, db)
		if !ok {
			return
		}
		if !user.IsAdmin() {
			fail(c, http.StatusForbidden, "Admin access required")
			return
		}
		token, err := utils.GenerateJWT(user.ID, user.Role, jwtSecret, ttl)
		if err != nil {
			internalError(c, err, "Failed to generate token")
			return
		}
		logrus.WithField("user_id", user.ID).Info("Admin login")
		c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
	}
}
