package domain

import "time"

// Friend request statuses
const (
	FriendPending  = "pending"
	FriendAccepted = "accepted"
	FriendRefused  = "refused"
)

// FriendRequest Model. One row per ordered (sender, receiver) pair.
type FriendRequest struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SenderID   uint      `gorm:"uniqueIndex:idx_friend_pair;not null" json:"senderId"`
	ReceiverID uint      `gorm:"uniqueIndex:idx_friend_pair;index;not null" json:"receiverId"`
	Sender     User      `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"sender"`
	Receiver   User      `gorm:"foreignKey:ReceiverID;constraint:OnDelete:CASCADE" json:"receiver"`
	Status     string    `gorm:"size:16;not null;default:pending" json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
