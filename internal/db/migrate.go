package db

import (
	"errors" // Error inspection
	"fmt"    // Error wrapping

	"social_network/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Structured logging
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// Models lists every table owned by the application
func Models() []any {
	return []any{
		&domain.User{},
		&domain.Post{},
		&domain.PostLike{},
		&domain.Comment{},
		&domain.CommentLike{},
		&domain.Message{},
		&domain.FriendRequest{},
		&domain.Wallet{},
		&domain.Transaction{},
	}
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logrus.Info("Migration completed.")
	return nil
}

// SeedAdmin creates the admin account, or promotes and re-keys it when the
// username already exists
func SeedAdmin(db *gorm.DB, username, password string) error {
	if username == "" || password == "" {
		return errors.New("seed admin: username and password required")
	}
	// Stored the way login looks it up
	username = domain.NormalizeUsername(username)
	if !domain.ValidUsername(username) {
		return fmt.Errorf("seed admin: username %q must be 3-30 letters, digits or underscores", username)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	var user domain.User
	err = db.Where("username = ?", username).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = domain.User{
			Username: username,
			Email:    username + "@admin.local",
			Password: string(hash),
			Name:     username,
			Role:     domain.RoleAdmin,
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	case err != nil:
		return fmt.Errorf("seed admin: %w", err)
	default:
		if err := db.Model(&user).Updates(map[string]any{"role": domain.RoleAdmin, "password": string(hash)}).Error; err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}
	logrus.WithFields(logrus.Fields{"user_id": user.ID, "username": username}).Info("Admin account ready")
	return nil
}
