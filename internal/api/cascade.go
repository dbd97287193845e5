package api

import (
	"social_network/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// deletePostTree removes a post with its likes, comments and comment likes
func deletePostTree(tx *gorm.DB, postID uint) error {
	commentIDs := tx.Model(&domain.Comment{}).Select("id").Where("post_id = ?", postID)
	if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&domain.CommentLike{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", postID).Delete(&domain.Comment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", postID).Delete(&domain.PostLike{}).Error; err != nil {
		return err
	}
	return tx.Delete(&domain.Post{}, postID).Error
}

// deleteUserTree removes a user and everything they authored or received.
// The wallet and its ledger entries stay for the audit trail.
func deleteUserTree(tx *gorm.DB, userID uint) error {
	postIDs := tx.Model(&domain.Post{}).Select("id").Where("user_id = ?", userID)
	commentIDs := tx.Model(&domain.Comment{}).Select("id").Where("user_id = ? OR post_id IN (?)", userID, postIDs)
	steps := []func() error{
		func() error {
			return tx.Where("user_id = ? OR comment_id IN (?)", userID, commentIDs).Delete(&domain.CommentLike{}).Error
		},
		func() error {
			return tx.Where("user_id = ? OR post_id IN (?)", userID, postIDs).Delete(&domain.Comment{}).Error
		},
		func() error {
			return tx.Where("user_id = ? OR post_id IN (?)", userID, postIDs).Delete(&domain.PostLike{}).Error
		},
		func() error { return tx.Where("user_id = ?", userID).Delete(&domain.Post{}).Error },
		func() error {
			return tx.Where("sender_id = ? OR receiver_id = ?", userID, userID).Delete(&domain.Message{}).Error
		},
		func() error {
			return tx.Where("sender_id = ? OR receiver_id = ?", userID, userID).Delete(&domain.FriendRequest{}).Error
		},
		func() error { return tx.Delete(&domain.User{}, userID).Error },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
