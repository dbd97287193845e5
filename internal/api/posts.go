package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation

	"social_network/internal/domain"     // Importing domain models
	"social_network/internal/middleware" // Authenticated user lookup
	"social_network/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

const maxPostLength = 5000

// PostRequest is the body for creating or editing a post
type PostRequest struct {
	Content  string `json:"content" binding:"required"`
	ImageURL string `json:"imageUrl" binding:"max=500"`
}

// PostView is a post with its engagement counters
type PostView struct {
	domain.Post
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Liked    bool  `json:"liked"` // Whether the caller likes it
}

type countRow struct {
	ID uint
	N  int64
}

// countBy runs SELECT col, COUNT(*) ... WHERE col IN ids GROUP BY col
func countBy(db *gorm.DB, model any, col string, ids []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []countRow
	if err := db.Model(model).Select(col+" AS id, COUNT(*) AS n").Where(col+" IN ?", ids).Group(col).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r.N
	}
	return out, nil
}

// likedBy returns which of ids the viewer has liked
func likedBy(db *gorm.DB, model any, col string, ids []uint, viewerID uint) (map[uint]bool, error) {
	out := make(map[uint]bool)
	if viewerID == 0 || len(ids) == 0 {
		return out, nil
	}
	var liked []uint
	if err := db.Model(model).Where(col+" IN ? AND user_id = ?", ids, viewerID).Pluck(col, &liked).Error; err != nil {
		return nil, err
	}
	for _, id := range liked {
		out[id] = true
	}
	return out, nil
}

// decoratePosts attaches like and comment counts in two grouped queries
func decoratePosts(db *gorm.DB, posts []domain.Post, viewerID uint) ([]PostView, error) {
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	likes, err := countBy(db, &domain.PostLike{}, "post_id", ids)
	if err != nil {
		return nil, err
	}
	comments, err := countBy(db, &domain.Comment{}, "post_id", ids)
	if err != nil {
		return nil, err
	}
	liked, err := likedBy(db, &domain.PostLike{}, "post_id", ids, viewerID)
	if err != nil {
		return nil, err
	}
	views := make([]PostView, len(posts))
	for i, p := range posts {
		views[i] = PostView{Post: p, Likes: likes[p.ID], Comments: comments[p.ID], Liked: liked[p.ID]}
	}
	return views, nil
}

// validatePost trims and checks post content
func validatePost(c *gin.Context, req *PostRequest) bool {
	req.Content = strings.TrimSpace(req.Content)
	req.ImageURL = strings.TrimSpace(req.ImageURL)
	if req.Content == "" || len([]rune(req.Content)) > maxPostLength {
		fail(c, http.StatusBadRequest, "Content must be 1-"+strconv.Itoa(maxPostLength)+" characters")
		return false
	}
	return true
}

// loadPost fetches a post with its author, answering 404 when missing
func loadPost(c *gin.Context, db *gorm.DB, id uint) (*domain.Post, bool) {
	var post domain.Post
	if err := db.Preload("Author").First(&post, id).Error; err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, "Post not found")
			return nil, false
		}
		internalError(c, err, "Failed to fetch post")
		return nil, false
	}
	return &post, true
}

// CreatePostHandler publishes a post for the caller
func CreatePostHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PostRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request")
			return
		}
		if !validatePost(c, &req) {
			return
		}
		post := domain.Post{UserID: middleware.CurrentUserID(c), Content: req.Content, ImageURL: req.ImageURL}
		if err := db.Omit("Author").Create(&post).Error; err != nil {
			internalError(c, err, "Failed to create post")
			return
		}
		created, ok := loadPost(c, db, post.ID)
		if !ok {
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "post": PostView{Post: *created}})
	}
}

// ListPostsHandler returns the feed newest first, optionally for one author
func ListPostsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParsePage(c)
		query := db.Model(&domain.Post{})
		if uid := c.Query("user_id"); uid != "" {
			v, err := strconv.ParseUint(uid, 10, 64)
			if err != nil {
				fail(c, http.StatusBadRequest, "Invalid user_id")
				return
			}
			query = query.Where("user_id = ?", v)
		}
		var total int64
		if err := query.Count(&total).Error; err != nil {
			internalError(c, err, "Failed to count posts")
			return
		}
		var posts []domain.Post
		if err := query.Preload("Author").Order("created_at desc, id desc").
			Offset(page.Offset()).Limit(page.PageSize).Find(&posts).Error; err != nil {
			internalError(c, err, "Failed to fetch posts")
			return
		}
		views, err := decoratePosts(db, posts, middleware.CurrentUserID(c))
		if err != nil {
			internalError(c, err, "Failed to fetch posts")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"posts":       views,
			"page":        page.Page,
			"page_size":   page.PageSize,
			"total":       total,
			"total_pages": page.TotalPages(total),
		})
	}
}

// GetPostHandler returns one post
func GetPostHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		post, ok := loadPost(c, db, id)
		if !ok {
			return
		}
		views, err := decoratePosts(db, []domain.Post{*post}, middleware.CurrentUserID(c))
		if err != nil {
			internalError(c, err, "Failed to fetch post")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "post": views[0]})
	}
}

// UpdatePostHandler edits a post; only its author may
func UpdatePostHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req PostRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request")
			return
		}
		if !validatePost(c, &req) {
			return
		}
		post, ok := loadPost(c, db, id)
		if !ok {
			return
		}
		if post.UserID != middleware.CurrentUserID(c) {
			fail(c, http.StatusForbidden, "Only the author can edit this post")
			return
		}
		if err := db.Model(&domain.Post{}).Where("id = ?", id).
			Updates(map[string]any{"content": req.Content, "image_url": req.ImageURL}).Error; err != nil {
			internalError(c, err, "Failed to update post")
			return
		}
		if post, ok = loadPost(c, db, id); !ok {
			return
		}
		views, err := decoratePosts(db, []domain.Post{*post}, post.UserID)
		if err != nil {
			internalError(c, err, "Failed to fetch post")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "post": views[0]})
	}
}

// DeletePostHandler removes a post with its comments and likes; author only
func DeletePostHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		post, ok := loadPost(c, db, id)
		if !ok {
			return
		}
		if post.UserID != middleware.CurrentUserID(c) {
			fail(c, http.StatusForbidden, "Only the author can delete this post")
			return
		}
		if err := db.Transaction(func(tx *gorm.DB) error { return deletePostTree(tx, id) }); err != nil {
			internalError(c, err, "Failed to delete post")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// TogglePostLikeHandler likes the post, or unlikes it when already liked
func TogglePostLikeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if _, ok := loadPost(c, db, id); !ok {
			return
		}
		like := &domain.PostLike{PostID: id, UserID: middleware.CurrentUserID(c)}
		liked, count, err := toggleLike(db, like, &domain.PostLike{}, "post_id", id)
		if err != nil {
			internalError(c, err, "Failed to toggle like")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "liked": liked, "likes": count})
	}
}

// toggleLike deletes like if present, inserts it otherwise, and returns the
// new state with the target's like count. like has both keys set; model is
// an empty value of the same type used for counting.
func toggleLike(db *gorm.DB, like, model any, col string, targetID uint) (liked bool, count int64, err error) {
	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where(like).Delete(like)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Create(like).Error; err != nil {
				return err
			}
			liked = true
		}
		return tx.Model(model).Where(col+" = ?", targetID).Count(&count).Error
	})
	return liked, count, err
}
