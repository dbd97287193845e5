package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet Model. Balance only moves through "balance +/- ?" expressions.
type Wallet struct {
	ID        uint            `gorm:"primaryKey" json:"-"`                                  // Primary key
	WalletID  string          `gorm:"size:36;uniqueIndex;not null" json:"walletId"`         // Opaque public id
	UserID    uint            `gorm:"uniqueIndex;not null" json:"userId"`                   // One wallet per user
	Balance   decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"balance"` // Never negative at rest
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
