package services

import (
	"context"
	"errors"
	"fmt"
	"inkwell/internal/models"
	"path"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	MaxBodyLength      = 2000
	maxImageNameLength = 255
)

var allowedImageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// subtreeQuery selects a comment and all of its transitive replies.
const subtreeQuery = `WITH RECURSIVE subtree(id) AS (
	SELECT id FROM comments WHERE id = ?
	UNION ALL
	SELECT c.id FROM comments c JOIN subtree s ON c.parent_comment_id = s.id
) SELECT id FROM subtree`

const (
	countSubtreeSQL               = `SELECT COUNT(*) FROM (` + subtreeQuery + `) t`
	deleteSubtreeLikesSQL         = `DELETE FROM comment_likes WHERE comment_id IN (` + subtreeQuery + `)`
	detachSubtreeNotificationsSQL = `UPDATE notifications SET comment_id = NULL WHERE comment_id IN (` + subtreeQuery + `)`
	deleteSubtreeSQL              = `DELETE FROM comments WHERE id IN (` + subtreeQuery + `)`
)

const depthQuery = `WITH RECURSIVE ancestors(id, parent_comment_id) AS (
	SELECT id, parent_comment_id FROM comments WHERE id = ?
	UNION ALL
	SELECT c.id, c.parent_comment_id FROM comments c JOIN ancestors a ON c.id = a.parent_comment_id
) SELECT COUNT(*) - 1 FROM ancestors`

// NewComment is the input for CommentStore.Create. Body must already be sanitized.
type NewComment struct {
	PostID          uint
	AuthorID        *uint
	LegacyName      string
	Body            string
	ParentCommentID *uint
	Image           string
}

// DirectReplies is one page of immediate children of a comment.
type DirectReplies struct {
	Parent  models.Comment
	Replies []models.Comment
	Total   int64
	HasMore bool
}

// DeleteResult reports a cascade delete.
type DeleteResult struct {
	DeletedCount int64 `json:"deletedCount"`
	PostID       uint  `json:"-"`
}

// CommentStore persists comments and enforces their structural rules.
type CommentStore struct {
	db *gorm.DB
}

func NewCommentStore(db *gorm.DB) *CommentStore {
	return &CommentStore{db: db}
}

func normalizeBody(body string, allowEmpty bool) (string, error) {
	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return "", validationError("content", fmt.Sprintf("comment must be at most %d characters", MaxBodyLength))
	}
	if body == "" && !allowEmpty {
		return "", validationError("content", "comment cannot be empty")
	}
	return body, nil
}

// ValidateImageName checks an attachment filename stored alongside a comment.
func ValidateImageName(name string) error {
	if name == "" {
		return nil
	}
	if len(name) > maxImageNameLength {
		return validationError("image", "image filename is too long")
	}
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return validationError("image", "invalid image filename")
	}
	if !allowedImageExtensions[strings.ToLower(path.Ext(name))] {
		return validationError("image", "unsupported image type")
	}
	return nil
}

func lookupError(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundError(message)
	}
	return internalError(message, err)
}

// Create inserts a comment after checking that its post and parent exist.
func (s *CommentStore) Create(ctx context.Context, in NewComment) (*models.Comment, error) {
	var comment *models.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.createTx(tx, in)
		if err != nil {
			return err
		}
		comment = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentStore) createTx(tx *gorm.DB, in NewComment) (*models.Comment, error) {
	image := strings.TrimSpace(in.Image)
	if err := ValidateImageName(image); err != nil {
		return nil, err
	}
	body, err := normalizeBody(in.Body, image != "")
	if err != nil {
		return nil, err
	}

	var post models.Post
	if err := tx.Select("id").First(&post, in.PostID).Error; err != nil {
		return nil, lookupError(err, "post not found")
	}

	if in.ParentCommentID != nil {
		var parent models.Comment
		err := tx.Select("id").
			Where("id = ? AND post_id = ?", *in.ParentCommentID, in.PostID).
			First(&parent).Error
		if err != nil {
			return nil, lookupError(err, "parent comment not found")
		}
	}

	comment := &models.Comment{
		PostID:          in.PostID,
		ParentCommentID: in.ParentCommentID,
		AuthorID:        in.AuthorID,
		LegacyName:      strings.TrimSpace(in.LegacyName),
		Body:            body,
		Image:           image,
	}
	if err := tx.Omit(clause.Associations).Create(comment).Error; err != nil {
		// parent removed between the check and the insert
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, notFoundError("parent comment not found")
		}
		return nil, internalError("failed to create comment", err)
	}
	return comment, nil
}

// Get loads a comment with its author.
func (s *CommentStore) Get(ctx context.Context, commentID uint) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).Preload("User").First(&comment, commentID).Error; err != nil {
		return nil, lookupError(err, "comment not found")
	}
	return &comment, nil
}

// Edit replaces the body of a comment. Only its author may edit it.
func (s *CommentStore) Edit(ctx context.Context, commentID, editorUserID uint, newBody string) (*models.Comment, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&comment, commentID).Error; err != nil {
			return lookupError(err, "comment not found")
		}
		if !comment.IsOwnedBy(editorUserID) {
			return forbiddenError("you can only edit your own comments")
		}
		body, err := normalizeBody(newBody, false)
		if err != nil {
			return err
		}
		if err := tx.Model(&comment).Update("body", body).Error; err != nil {
			return internalError("failed to update comment", err)
		}
		comment.Body = body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// Delete removes a comment together with all of its transitive replies and their likes.
func (s *CommentStore) Delete(ctx context.Context, commentID uint, requester Identity) (*DeleteResult, error) {
	result := &DeleteResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.Select("id", "post_id", "author_id").First(&comment, commentID).Error; err != nil {
			return lookupError(err, "comment not found")
		}
		if !requester.IsAdmin && !comment.IsOwnedBy(requester.UserID) {
			return forbiddenError("you can only delete your own comments")
		}

		// Rows removed by the self-referencing ON DELETE CASCADE are not counted in
		// RowsAffected, so the subtree is counted before anything is deleted.
		if err := tx.Raw(countSubtreeSQL, comment.ID).Scan(&result.DeletedCount).Error; err != nil {
			return internalError("failed to collect replies", err)
		}

		if err := tx.Exec(deleteSubtreeLikesSQL, comment.ID).Error; err != nil {
			return internalError("failed to delete likes", err)
		}
		if err := tx.Exec(detachSubtreeNotificationsSQL, comment.ID).Error; err != nil {
			return internalError("failed to detach notifications", err)
		}
		if err := tx.Exec(deleteSubtreeSQL, comment.ID).Error; err != nil {
			return internalError("failed to delete comment", err)
		}

		result.PostID = comment.PostID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Depth returns how many ancestors a comment has; top-level comments are at depth 0.
func (s *CommentStore) Depth(ctx context.Context, commentID uint) (int, error) {
	var depth int
	if err := s.db.WithContext(ctx).Raw(depthQuery, commentID).Scan(&depth).Error; err != nil {
		return 0, internalError("failed to resolve comment depth", err)
	}
	if depth < 0 {
		return 0, notFoundError("comment not found")
	}
	return depth, nil
}

// GetDirectReplies returns one page of a comment's immediate replies, oldest first.
func (s *CommentStore) GetDirectReplies(ctx context.Context, commentID uint, offset, limit int) (*DirectReplies, error) {
	page := &DirectReplies{}
	dbc := s.db.WithContext(ctx)

	if err := dbc.Select("id", "post_id").First(&page.Parent, commentID).Error; err != nil {
		return nil, lookupError(err, "comment not found")
	}

	if err := dbc.Model(&models.Comment{}).Where("parent_comment_id = ?", commentID).Count(&page.Total).Error; err != nil {
		return nil, internalError("failed to count replies", err)
	}

	if err := dbc.Preload("User").
		Where("parent_comment_id = ?", commentID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&page.Replies).Error; err != nil {
		return nil, internalError("failed to load replies", err)
	}

	page.HasMore = int64(offset+len(page.Replies)) < page.Total
	return page, nil
}

// ReplyCount returns the number of direct replies to a comment.
func (s *CommentStore) ReplyCount(ctx context.Context, commentID uint) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("parent_comment_id = ?", commentID).Count(&count).Error; err != nil {
		return 0, internalError("failed to count replies", err)
	}
	return int(count), nil
}

// ListForPost loads every comment of a post in creation order.
func (s *CommentStore) ListForPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	dbc := s.db.WithContext(ctx)

	var post models.Post
	if err := dbc.Select("id").First(&post, postID).Error; err != nil {
		return nil, lookupError(err, "post not found")
	}

	var comments []models.Comment
	if err := dbc.Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		return nil, internalError("failed to load comments", err)
	}
	return comments, nil
}

// ListRecent returns comments across all posts, newest first, with the overall total.
func (s *CommentStore) ListRecent(ctx context.Context, offset, limit int) ([]models.Comment, int64, error) {
	dbc := s.db.WithContext(ctx)

	var total int64
	if err := dbc.Model(&models.Comment{}).Count(&total).Error; err != nil {
		return nil, 0, internalError("failed to count comments", err)
	}

	var comments []models.Comment
	if err := dbc.Preload("User").
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&comments).Error; err != nil {
		return nil, 0, internalError("failed to load comments", err)
	}
	return comments, total, nil
}
