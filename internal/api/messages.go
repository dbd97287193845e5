package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"social_network/internal/domain"     // Importing domain models
	"social_network/internal/middleware" // Authenticated user lookup
	"social_network/internal/realtime"   // Websocket push
	"social_network/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
	"gorm.io/gorm"               // GORM ORM library
)

const maxMessageLength = 2000

// SendMessageRequest is the body of POST /api/messages
type SendMessageRequest struct {
	ReceiverID uint   `json:"receiverId" binding:"required"`
	Content    string `json:"content" binding:"required"`
}

// Conversation summarizes the thread with one peer
type Conversation struct {
	Peer        domain.User    `json:"peer"`
	LastMessage domain.Message `json:"lastMessage"`
	Unread      int64          `json:"unread"`
}

// SendMessageHandler stores a direct message and pushes it to the receiver
func SendMessageHandler(db *gorm.DB, hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request")
			return
		}
		content := strings.TrimSpace(req.Content)
		if content == "" || len([]rune(content)) > maxMessageLength {
			fail(c, http.StatusBadRequest, "Message must be 1-2000 characters")
			return
		}
		me := middleware.CurrentUserID(c)
		if req.ReceiverID == me {
			fail(c, http.StatusBadRequest, "Cannot message yourself")
			return
		}
		var receiver domain.User
		if err := db.First(&receiver, req.ReceiverID).Error; err != nil {
			if isNotFound(err) {
				fail(c, http.StatusNotFound, "Receiver not found")
				return
			}
			internalError(c, err, "Failed to send message")
			return
		}
		msg := domain.Message{SenderID: me, ReceiverID: receiver.ID, Content: content}
		if err := db.Create(&msg).Error; err != nil {
			internalError(c, err, "Failed to send message")
			return
		}
		if hub != nil {
			event := realtime.Event{Type: "message", Payload: msg}
			hub.Publish(receiver.ID, event)
			hub.Publish(me, event) // the sender's other sessions
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "message": msg})
	}
}

// ListMessagesHandler returns every message the caller sent or received,
// newest first
func ListMessagesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		me := middleware.CurrentUserID(c)
		page := utils.ParsePage(c)
		query := db.Model(&domain.Message{}).Where("sender_id = ? OR receiver_id = ?", me, me)
		var total int64
		if err := query.Count(&total).Error; err != nil {
			internalError(c, err, "Failed to count messages")
			return
		}
		messages := []domain.Message{}
		if err := query.Order("created_at desc, id desc").Offset(page.Offset()).Limit(page.PageSize).Find(&messages).Error; err != nil {
			internalError(c, err, "Failed to fetch messages")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"messages":    messages,
			"page":        page.Page,
			"page_size":   page.PageSize,
			"total":       total,
			"total_pages": page.TotalPages(total),
		})
	}
}

// ConversationsHandler groups the caller's messages by peer, most recent
// conversation first
func ConversationsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		me := middleware.CurrentUserID(c)
		var messages []domain.Message
		if err := db.Where("sender_id = ? OR receiver_id = ?", me, me).
			Order("created_at desc, id desc").Find(&messages).Error; err != nil {
			internalError(c, err, "Failed to fetch conversations")
			return
		}
		byPeer := make(map[uint]*Conversation)
		var order []uint
		for _, m := range messages {
			peer := m.SenderID
			if peer == me {
				peer = m.ReceiverID
			}
			conv, seen := byPeer[peer]
			if !seen {
				conv = &Conversation{LastMessage: m} // newest first, so the first hit is the latest
				byPeer[peer] = conv
				order = append(order, peer)
			}
			if m.ReceiverID == me && !m.Read {
				conv.Unread++
			}
		}
		var peers []domain.User
		if len(order) > 0 {
			if err := db.Where("id IN ?", order).Find(&peers).Error; err != nil {
				internalError(c, err, "Failed to fetch conversations")
				return
			}
		}
		for _, p := range peers {
			byPeer[p.ID].Peer = p
		}
		out := make([]Conversation, 0, len(order))
		for _, id := range order {
			out = append(out, *byPeer[id])
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "conversations": out})
	}
}

// ThreadHandler returns the messages exchanged with one peer, oldest first,
// and marks the caller's unread ones as read
func ThreadHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		peer, ok := paramID(c, "userId")
		if !ok {
			return
		}
		me := middleware.CurrentUserID(c)
		messages := []domain.Message{}
		if err := db.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", me, peer, peer, me).
			Order("created_at asc, id asc").Find(&messages).Error; err != nil {
			internalError(c, err, "Failed to fetch messages")
			return
		}
		res := db.Model(&domain.Message{}).
			Where("sender_id = ? AND receiver_id = ? AND `read` = ?", peer, me, false).
			Update("read", true)
		if res.Error != nil {
			internalError(c, res.Error, "Failed to mark messages read")
			return
		}
		if res.RowsAffected > 0 {
			for i := range messages {
				if messages[i].ReceiverID == me {
					messages[i].Read = true
				}
			}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "messages": messages})
	}
}

// DeleteMessageHandler deletes a message; only its sender may
func DeleteMessageHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var msg domain.Message
		if err := db.First(&msg, id).Error; err != nil {
			if isNotFound(err) {
				fail(c, http.StatusNotFound, "Message not found")
				return
			}
			internalError(c, err, "Failed to fetch message")
			return
		}
		if msg.SenderID != middleware.CurrentUserID(c) {
			fail(c, http.StatusForbidden, "Only the sender can delete this message")
			return
		}
		if err := db.Delete(&domain.Message{}, id).Error; err != nil {
			internalError(c, err, "Failed to delete message")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// MessageSocketHandler upgrades to a websocket that receives new messages
func MessageSocketHandler(hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.CurrentUserID(c)
		if err := hub.Serve(c.Writer, c.Request, userID); err != nil {
			// The upgrader has already written the HTTP error
			logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Warn("Websocket upgrade failed")
		}
	}
}
