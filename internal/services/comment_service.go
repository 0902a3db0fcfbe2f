package services

import (
	"context"
	"inkwell/internal/models"
	"inkwell/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	notifySavepoint    = "reply_notification"
	defaultRecentLimit = 50
	maxRecentLimit     = 200
)

// Identity is the caller of a service operation. A nil *Identity is an anonymous visitor.
type Identity struct {
	UserID      uint
	DisplayName string
	IsAdmin     bool
}

func viewerID(viewer *Identity) uint {
	if viewer == nil {
		return 0
	}
	return viewer.UserID
}

// CreateCommentInput is the user-supplied part of a new comment.
type CreateCommentInput struct {
	Content         string
	ParentCommentID *uint
	Image           string
}

// RecentComments is a moderation listing.
type RecentComments struct {
	Total    int64          `json:"total"`
	Comments []*CommentNode `json:"comments"`
}

// CommentService is the request-level entry point for comment operations.
type CommentService struct {
	db       *gorm.DB
	store    *CommentStore
	likes    *LikeLedger
	tree     *TreeAssembler
	notifier *Notifier
}

func NewCommentService(db *gorm.DB, store *CommentStore, likes *LikeLedger, tree *TreeAssembler, notifier *Notifier) *CommentService {
	return &CommentService{db: db, store: store, likes: likes, tree: tree, notifier: notifier}
}

// Create adds a comment or reply on behalf of viewer and notifies the parent's author.
func (s *CommentService) Create(ctx context.Context, viewer *Identity, postID uint, in CreateCommentInput) (*CommentNode, error) {
	if viewer == nil {
		return nil, ErrLoginRequired
	}

	authorID := viewer.UserID
	input := NewComment{
		PostID:          postID,
		AuthorID:        &authorID,
		Body:            utils.SanitizeText(in.Content),
		ParentCommentID: in.ParentCommentID,
		Image:           in.Image,
	}

	var comment *models.Comment
	var notification *models.Notification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.store.createTx(tx, input)
		if err != nil {
			return err
		}
		comment = c
		if c.ParentCommentID != nil {
			notification = s.notifyReply(tx, c, viewer)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if notification != nil {
		notificationsEmittedTotal.WithLabelValues(string(notification.Type)).Inc()
	}

	kind := "top_level"
	if comment.ParentCommentID != nil {
		kind = "reply"
	}
	commentsCreatedTotal.WithLabelValues(kind).Inc()
	s.tree.Invalidate(postID)
	utils.Logger.Info("comment created",
		zap.Uint("comment_id", comment.ID),
		zap.Uint("post_id", postID),
		zap.Uint("user_id", viewer.UserID),
		zap.String("kind", kind))

	return s.tree.BuildNode(ctx, comment.ID, viewer.UserID)
}

// notifyReply writes the reply notification under a savepoint and returns it, or nil when
// nothing was written. A failure rolls back only the notification; the comment itself still commits.
func (s *CommentService) notifyReply(tx *gorm.DB, reply *models.Comment, replier *Identity) *models.Notification {
	var parent models.Comment
	if err := tx.Select("id", "author_id").First(&parent, *reply.ParentCommentID).Error; err != nil {
		utils.Logger.Warn("reply notification skipped", zap.Uint("comment_id", reply.ID), zap.Error(err))
		return nil
	}

	name := replier.DisplayName
	if name == "" {
		var user models.User
		if err := tx.Select("id", "username", "full_name").First(&user, replier.UserID).Error; err == nil {
			name = user.DisplayName()
		}
	}
	if name == "" {
		name = models.AnonymousName
	}

	if err := tx.SavePoint(notifySavepoint).Error; err != nil {
		utils.Logger.Warn("reply notification skipped", zap.Uint("comment_id", reply.ID), zap.Error(err))
		return nil
	}
	notification, err := s.notifier.OnReplyCreated(tx, reply, &parent, name)
	if err != nil {
		utils.Logger.Error("reply notification failed",
			zap.Uint("comment_id", reply.ID),
			zap.Uint("parent_id", parent.ID),
			zap.Error(err))
		if rbErr := tx.RollbackTo(notifySavepoint).Error; rbErr != nil {
			utils.Logger.Error("rollback to savepoint failed", zap.Error(rbErr))
		}
		return nil
	}
	return notification
}

// Edit replaces the body of the viewer's own comment.
func (s *CommentService) Edit(ctx context.Context, viewer *Identity, commentID uint, content string) (*CommentNode, error) {
	if viewer == nil {
		return nil, ErrLoginRequired
	}

	comment, err := s.store.Edit(ctx, commentID, viewer.UserID, utils.SanitizeText(content))
	if err != nil {
		return nil, err
	}

	s.tree.Invalidate(comment.PostID)
	utils.Logger.Info("comment edited", zap.Uint("comment_id", commentID), zap.Uint("user_id", viewer.UserID))
	return s.tree.BuildNode(ctx, commentID, viewer.UserID)
}

// Delete removes a comment and its replies. Owners may delete their comments; admins any comment.
func (s *CommentService) Delete(ctx context.Context, viewer *Identity, commentID uint) (int64, error) {
	if viewer == nil {
		return 0, ErrLoginRequired
	}

	res, err := s.store.Delete(ctx, commentID, *viewer)
	if err != nil {
		return 0, err
	}

	commentsDeletedTotal.Add(float64(res.DeletedCount))
	s.tree.Invalidate(res.PostID)
	utils.Logger.Info("comment deleted",
		zap.Uint("comment_id", commentID),
		zap.Uint("post_id", res.PostID),
		zap.Int64("deleted", res.DeletedCount),
		zap.Uint("user_id", viewer.UserID),
		zap.Bool("admin", viewer.IsAdmin))
	return res.DeletedCount, nil
}

// ListTree returns the comment tree of a post as seen by viewer (nil for anonymous).
func (s *CommentService) ListTree(ctx context.Context, viewer *Identity, postID uint, opts TreeOptions) (*Tree, error) {
	return s.tree.BuildTree(ctx, postID, viewerID(viewer), opts)
}

// ListReplies returns one page of replies to a comment.
func (s *CommentService) ListReplies(ctx context.Context, viewer *Identity, commentID uint, opts RepliesOptions) (*ReplyPage, error) {
	return s.tree.BuildReplies(ctx, commentID, viewerID(viewer), opts)
}

// ToggleLike likes or unlikes a comment for viewer.
func (s *CommentService) ToggleLike(ctx context.Context, viewer *Identity, commentID uint) (*ToggleResult, error) {
	if viewer == nil {
		return nil, ErrLoginRequired
	}

	comment, err := s.store.Get(ctx, commentID)
	if err != nil {
		return nil, err
	}

	result, err := s.likes.Toggle(ctx, commentID, viewer.UserID)
	if err != nil {
		return nil, err
	}

	s.tree.Invalidate(comment.PostID)
	return result, nil
}

// ListRecent returns the newest comments across all posts. Admin only.
func (s *CommentService) ListRecent(ctx context.Context, viewer *Identity, offset, limit int) (*RecentComments, error) {
	if viewer == nil {
		return nil, ErrLoginRequired
	}
	if !viewer.IsAdmin {
		return nil, forbiddenError("admin access required")
	}

	if limit <= 0 {
		limit = defaultRecentLimit
	}
	limit = utils.Clamp(limit, 1, maxRecentLimit)
	if offset < 0 {
		offset = 0
	}

	comments, total, err := s.store.ListRecent(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	nodes, err := s.tree.BuildFlat(ctx, comments)
	if err != nil {
		return nil, err
	}
	return &RecentComments{Total: total, Comments: nodes}, nil
}
