package domain

import (
	"regexp"
	"strings"
	"time"
)

// User roles
const (
	RoleUser  = "user"  // Regular member
	RoleAdmin = "admin" // Admin console access
)

// User Model
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                        // Primary key
	Username  string    `gorm:"size:30;uniqueIndex;not null" json:"username"` // Unique username
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`   // Unique email
	Password  string    `gorm:"not null" json:"-"`                            // Bcrypt hash, never serialized
	Name      string    `gorm:"size:100" json:"name"`                         // Display name
	Bio       string    `gorm:"size:500" json:"bio"`                          // Short profile text
	AvatarURL string    `gorm:"size:500" json:"avatarUrl"`                    // Profile picture
	Role      string    `gorm:"size:16;default:user" json:"role"`             // Role: user or admin
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user may use the admin console
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

// NormalizeUsername lowercases and trims a username. Usernames are stored in
// this form so lookups are case-insensitive.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidUsername checks a normalized username for 3-30 letters, digits or underscores
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}
