package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"social_network/internal/domain"     // Importing domain models
	"social_network/internal/middleware" // Authenticated user lookup

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

const maxCommentLength = 2000

// CommentRequest is the body of POST /api/posts/:id/comments
type CommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// CommentView is a comment with its like counter
type CommentView struct {
	domain.Comment
	Likes int64 `json:"likes"`
	Liked bool  `json:"liked"`
}

// ListCommentsHandler returns a post's comments oldest first
func ListCommentsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		postID, ok := paramID(c, "id")
		if !ok {
			return
		}
		if _, ok := loadPost(c, db, postID); !ok {
			return
		}
		var comments []domain.Comment
		if err := db.Preload("Author").Where("post_id = ?", postID).Order("created_at asc, id asc").Find(&comments).Error; err != nil {
			internalError(c, err, "Failed to fetch comments")
			return
		}
		ids := make([]uint, len(comments))
		for i, cm := range comments {
			ids[i] = cm.ID
		}
		likes, err := countBy(db, &domain.CommentLike{}, "comment_id", ids)
		if err != nil {
			internalError(c, err, "Failed to fetch comments")
			return
		}
		liked, err := likedBy(db, &domain.CommentLike{}, "comment_id", ids, middleware.CurrentUserID(c))
		if err != nil {
			internalError(c, err, "Failed to fetch comments")
			return
		}
		views := make([]CommentView, len(comments))
		for i, cm := range comments {
			views[i] = CommentView{Comment: cm, Likes: likes[cm.ID], Liked: liked[cm.ID]}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "comments": views})
	}
}

// CreateCommentHandler adds a comment to a post
func CreateCommentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		postID, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req CommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request")
			return
		}
		content := strings.TrimSpace(req.Content)
		if content == "" || len([]rune(content)) > maxCommentLength {
			fail(c, http.StatusBadRequest, "Comment must be 1-2000 characters")
			return
		}
		if _, ok := loadPost(c, db, postID); !ok {
			return
		}
		comment := domain.Comment{PostID: postID, UserID: middleware.CurrentUserID(c), Content: content}
		if err := db.Omit("Author").Create(&comment).Error; err != nil {
			internalError(c, err, "Failed to create comment")
			return
		}
		if err := db.Preload("Author").First(&comment, comment.ID).Error; err != nil {
			internalError(c, err, "Failed to fetch comment")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "comment": CommentView{Comment: comment}})
	}
}

// loadComment fetches a comment that belongs to the post in the path
func loadComment(c *gin.Context, db *gorm.DB) (*domain.Comment, uint, bool) {
	postID, ok := paramID(c, "id")
	if !ok {
		return nil, 0, false
	}
	commentID, ok := paramID(c, "commentId")
	if !ok {
		return nil, 0, false
	}
	var comment domain.Comment
	if err := db.Where("id = ? AND post_id = ?", commentID, postID).First(&comment).Error; err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, "Comment not found")
			return nil, 0, false
		}
		internalError(c, err, "Failed to fetch comment")
		return nil, 0, false
	}
	return &comment, postID, true
}

// DeleteCommentHandler removes a comment. The comment author and the post
// author may delete it.
func DeleteCommentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		comment, postID, ok := loadComment(c, db)
		if !ok {
			return
		}
		me := middleware.CurrentUserID(c)
		if comment.UserID != me {
			post, ok := loadPost(c, db, postID)
			if !ok {
				return
			}
			if post.UserID != me {
				fail(c, http.StatusForbidden, "Not allowed to delete this comment")
				return
			}
		}
		if err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("comment_id = ?", comment.ID).Delete(&domain.CommentLike{}).Error; err != nil {
				return err
			}
			return tx.Delete(&domain.Comment{}, comment.ID).Error
		}); err != nil {
			internalError(c, err, "Failed to delete comment")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// ToggleCommentLikeHandler likes or unlikes a comment
func ToggleCommentLikeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		comment, _, ok := loadComment(c, db)
		if !ok {
			return
		}
		like := &domain.CommentLike{CommentID: comment.ID, UserID: middleware.CurrentUserID(c)}
		liked, count, err := toggleLike(db, like, &domain.CommentLike{}, "comment_id", comment.ID)
		if err != nil {
			internalError(c, err, "Failed to toggle like")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "liked": liked, "likes": count})
	}
}
