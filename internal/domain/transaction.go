package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger entry statuses
const (
	TransactionPending   = "pending"
	TransactionCompleted = "completed"
)

// Transaction is an append-only ledger entry. A nil SenderWalletID marks a top-up.
type Transaction struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	SenderWalletID   *string         `gorm:"size:36;index" json:"senderWalletId"`
	ReceiverWalletID string          `gorm:"size:36;index;not null" json:"receiverWalletId"`
	Amount           decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"amount"`
	Status           string          `gorm:"size:16;not null;default:completed" json:"status"`
	CreatedAt        time.Time       `gorm:"index" json:"createdAt"`
}

// IsTopUp reports whether the entry credits a wallet with no counterpart debit
func (t Transaction) IsTopUp() bool {
	return t.SenderWalletID == nil
}
