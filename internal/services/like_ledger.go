package services

import (
	"context"
	"errors"
	"inkwell/internal/models"
	"inkwell/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// errToggleConflict marks a toggle that lost a race with another toggle on the same pair.
var errToggleConflict = errors.New("concurrent like toggle")

const toggleAttempts = 2

// ToggleResult is the outcome of a like toggle.
type ToggleResult struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likesCount"`
}

// LikeLedger records which users like which comments.
type LikeLedger struct {
	db *gorm.DB
}

func NewLikeLedger(db *gorm.DB) *LikeLedger {
	return &LikeLedger{db: db}
}

// Toggle flips the like state of (commentID, userID) and returns the new state and count.
func (l *LikeLedger) Toggle(ctx context.Context, commentID, userID uint) (*ToggleResult, error) {
	var lastErr error
	for attempt := 1; attempt <= toggleAttempts; attempt++ {
		result, err := l.toggleOnce(ctx, commentID, userID)
		if !errors.Is(err, errToggleConflict) {
			if err == nil {
				outcome := "unliked"
				if result.Liked {
					outcome = "liked"
				}
				likeTogglesTotal.WithLabelValues(outcome).Inc()
			}
			return result, err
		}
		lastErr = err
		likeTogglesTotal.WithLabelValues("conflict").Inc()
		utils.Logger.Warn("like toggle conflict",
			zap.Uint("comment_id", commentID),
			zap.Uint("user_id", userID),
			zap.Int("attempt", attempt))
	}
	return nil, internalError("like toggle kept conflicting", lastErr)
}

func (l *LikeLedger) toggleOnce(ctx context.Context, commentID, userID uint) (*ToggleResult, error) {
	result := &ToggleResult{}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.Select("id").First(&comment, commentID).Error; err != nil {
			return lookupError(err, "comment not found")
		}

		var existing models.CommentLike
		if err := tx.Where("comment_id = ? AND user_id = ?", commentID, userID).Limit(1).Find(&existing).Error; err != nil {
			return internalError("failed to load like", err)
		}

		if existing.ID != 0 {
			res := tx.Delete(&existing)
			if res.Error != nil {
				return internalError("failed to remove like", res.Error)
			}
			if res.RowsAffected == 0 {
				return errToggleConflict
			}
			result.Liked = false
		} else {
			like := models.CommentLike{CommentID: commentID, UserID: userID}
			if err := tx.Omit(clause.Associations).Create(&like).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return errToggleConflict
				}
				return internalError("failed to like comment", err)
			}
			result.Liked = true
		}

		if err := tx.Model(&models.CommentLike{}).Where("comment_id = ?", commentID).Count(&result.LikesCount).Error; err != nil {
			return internalError("failed to count likes", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CountFor returns the number of likes on one comment.
func (l *LikeLedger) CountFor(ctx context.Context, commentID uint) (int64, error) {
	var count int64
	if err := l.db.WithContext(ctx).Model(&models.CommentLike{}).Where("comment_id = ?", commentID).Count(&count).Error; err != nil {
		return 0, internalError("failed to count likes", err)
	}
	return count, nil
}

// CountsFor returns like counts for many comments in one query. Comments without likes are absent.
func (l *LikeLedger) CountsFor(ctx context.Context, commentIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(commentIDs))
	if len(commentIDs) == 0 {
		return counts, nil
	}

	var results []struct {
		CommentID uint
		Count     int64
	}
	if err := l.db.WithContext(ctx).Model(&models.CommentLike{}).
		Select("comment_id, count(*) as count").
		Where("comment_id IN ?", commentIDs).
		Group("comment_id").
		Scan(&results).Error; err != nil {
		return nil, internalError("failed to count likes", err)
	}

	for _, r := range results {
		counts[r.CommentID] = r.Count
	}
	return counts, nil
}

// LikedCommentIDs returns the subset of commentIDs liked by userID.
func (l *LikeLedger) LikedCommentIDs(ctx context.Context, userID uint, commentIDs []uint) (map[uint]bool, error) {
	liked := make(map[uint]bool)
	if userID == 0 || len(commentIDs) == 0 {
		return liked, nil
	}

	var ids []uint
	if err := l.db.WithContext(ctx).Model(&models.CommentLike{}).
		Where("user_id = ? AND comment_id IN ?", userID, commentIDs).
		Pluck("comment_id", &ids).Error; err != nil {
		return nil, internalError("failed to load likes", err)
	}

	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}
