package api

import (
	"net/http" // HTTP status codes

	"social_network/internal/domain"     // Importing domain models
	"social_network/internal/middleware" // Authenticated user lookup

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// FriendRequestBody is the body of POST /api/friends/requests
type FriendRequestBody struct {
	ReceiverID uint `json:"receiverId" binding:"required"`
}

// SendFriendRequestHandler asks another user for friendship. A pending
// request in the opposite direction is accepted instead of duplicated.
func SendFriendRequestHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FriendRequestBody
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request")
			return
		}
		me := middleware.CurrentUserID(c)
		if req.ReceiverID == me {
			fail(c, http.StatusBadRequest, "Cannot befriend yourself")
			return
		}
		var receiver domain.User
		if err := db.First(&receiver, req.ReceiverID).Error; err != nil {
			if isNotFound(err) {
				fail(c, http.StatusNotFound, "User not found")
				return
			}
			internalError(c, err, "Failed to send friend request")
			return
		}

		var reverse domain.FriendRequest
		err := db.Where("sender_id = ? AND receiver_id = ?", receiver.ID, me).First(&reverse).Error
		switch {
		case err == nil && reverse.Status == domain.FriendAccepted:
			fail(c, http.StatusConflict, "Already friends")
			return
		case err == nil && reverse.Status == domain.FriendPending:
			if err := db.Model(&reverse).Update("status", domain.FriendAccepted).Error; err != nil {
				internalError(c, err, "Failed to accept friend request")
				return
			}
			reverse.Status = domain.FriendAccepted
			c.JSON(http.StatusOK, gin.H{"success": true, "request": reverse})
			return
		case err != nil && !isNotFound(err):
			internalError(c, err, "Failed to send friend request")
			return
		}

		var existing domain.FriendRequest
		err = db.Where("sender_id = ? AND receiver_id = ?", me, receiver.ID).First(&existing).Error
		switch {
		case err == nil && existing.Status == domain.FriendRefused:
			// A refused request may be sent again
			if err := db.Model(&existing).Update("status", domain.FriendPending).Error; err != nil {
				internalError(c, err, "Failed to send friend request")
				return
			}
			existing.Status = domain.FriendPending
			c.JSON(http.StatusCreated, gin.H{"success": true, "request": existing})
			return
		case err == nil && existing.Status == domain.FriendAccepted:
			fail(c, http.StatusConflict, "Already friends")
			return
		case err == nil:
			fail(c, http.StatusConflict, "Friend request already sent")
			return
		case !isNotFound(err):
			internalError(c, err, "Failed to send friend request")
			return
		}

		fr := domain.FriendRequest{SenderID: me, ReceiverID: receiver.ID, Status: domain.FriendPending}
		if err := db.Omit("Sender", "Receiver").Create(&fr).Error; err != nil {
			internalError(c, err, "Failed to send friend request")
			return
		}
		logrus.WithFields(logrus.Fields{"sender_id": me, "receiver_id": receiver.ID}).Info("Friend request sent")
		c.JSON(http.StatusCreated, gin.H{"success": true, "request": fr})
	}
}

// ListFriendRequestsHandler returns the caller's pending incoming and outgoing requests
func ListFriendRequestsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		me := middleware.CurrentUserID(c)
		incoming := []domain.FriendRequest{}
		if err := db.Preload("Sender").Where("receiver_id = ? AND status = ?", me, domain.FriendPending).
			Order("created_at desc").Find(&incoming).Error; err != nil {
			internalError(c, err, "Failed to fetch friend requests")
			return
		}
		outgoing := []domain.FriendRequest{}
		if err := db.Preload("Receiver").Where("sender_id = ? AND status = ?", me, domain.FriendPending).
			Order("created_at desc").Find(&outgoing).Error; err != nil {
			internalError(c, err, "Failed to fetch friend requests")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "incoming": incoming, "outgoing": outgoing})
	}
}

// RespondFriendRequestHandler moves a pending request to status. Only the
// receiver may answer.
func RespondFriendRequestHandler(db *gorm.DB, status string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var fr domain.FriendRequest
		if err := db.First(&fr, id).Error; err != nil {
			if isNotFound(err) {
				fail(c, http.StatusNotFound, "Friend request not found")
				return
			}
			internalError(c, err, "Failed to fetch friend request")
			return
		}
		if fr.ReceiverID != middleware.CurrentUserID(c) {
			fail(c, http.StatusForbidden, "Only the receiver can answer this request")
			return
		}
		if fr.Status != domain.FriendPending {
			fail(c, http.StatusConflict, "Friend request already answered")
			return
		}
		if err := db.Model(&fr).Update("status", status).Error; err != nil {
			internalError(c, err, "Failed to update friend request")
			return
		}
		fr.Status = status
		c.JSON(http.StatusOK, gin.H{"success": true, "request": fr})
	}
}

// ListFriendsHandler returns the users the caller is friends with
func ListFriendsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		me := middleware.CurrentUserID(c)
		var accepted []domain.FriendRequest
		if err := db.Where("(sender_id = ? OR receiver_id = ?) AND status = ?", me, me, domain.FriendAccepted).
			Find(&accepted).Error; err != nil {
			internalError(c, err, "Failed to fetch friends")
			return
		}
		ids := make([]uint, 0, len(accepted))
		for _, fr := range accepted {
			if fr.SenderID == me {
				ids = append(ids, fr.ReceiverID)
			} else {
				ids = append(ids, fr.SenderID)
			}
		}
		friends := []domain.User{}
		if len(ids) > 0 {
			if err := db.Where("id IN ?", ids).Order("username").Find(&friends).Error; err != nil {
				internalError(c, err, "Failed to fetch friends")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "friends": friends})
	}
}

// UnfriendHandler removes the friendship (or any request) between the caller and :userId
func UnfriendHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		other, ok := paramID(c, "userId")
		if !ok {
			return
		}
		me := middleware.CurrentUserID(c)
		res := db.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", me, other, other, me).
			Delete(&domain.FriendRequest{})
		if res.Error != nil {
			internalError(c, res.Error, "Failed to remove friend")
			return
		}
		if res.RowsAffected == 0 {
			fail(c, http.StatusNotFound, "Not friends")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
