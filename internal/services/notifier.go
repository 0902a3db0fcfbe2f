package services

import (
	"context"
	"fmt"
	"inkwell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

// ListOptions filters a notification listing. The zero value lists read and unread.
type ListOptions struct {
	Limit      int
	UnreadOnly bool
}

// Notifier writes and reads user notifications.
type Notifier struct {
	db *gorm.DB
}

func NewNotifier(db *gorm.DB) *Notifier {
	return &Notifier{db: db}
}

// ReplyMessage is the text of a reply notification.
func ReplyMessage(replierName string) string {
	return fmt.Sprintf("%s replied to your comment", replierName)
}

// OnReplyCreated records a reply notification for the parent's author inside tx.
// Nothing is written when the parent has no registered author or the reply is the author's own.
func (n *Notifier) OnReplyCreated(tx *gorm.DB, reply, parent *models.Comment, replierName string) (*models.Notification, error) {
	if parent.AuthorID == nil {
		return nil, nil
	}
	if reply.AuthorID != nil && *reply.AuthorID == *parent.AuthorID {
		return nil, nil
	}

	postID := reply.PostID
	commentID := reply.ID
	notification := &models.Notification{
		RecipientUserID: *parent.AuthorID,
		Type:            models.NotificationTypeReply,
		Message:         ReplyMessage(replierName),
		FromUserID:      reply.AuthorID,
		PostID:          &postID,
		CommentID:       &commentID,
	}
	if err := tx.Omit(clause.Associations).Create(notification).Error; err != nil {
		return nil, err
	}
	return notification, nil
}

func (n *Notifier) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := n.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, internalError("failed to count notifications", err)
	}
	return count, nil
}

// List returns the user's notifications, newest first.
func (n *Notifier) List(ctx context.Context, userID uint, opts ListOptions) ([]models.Notification, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}

	query := n.db.WithContext(ctx).Preload("FromUser").Where("recipient_user_id = ?", userID)
	if opts.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	notifications := []models.Notification{}
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&notifications).Error; err != nil {
		return nil, internalError("failed to load notifications", err)
	}
	return notifications, nil
}

// MarkRead marks one of the user's notifications as read.
func (n *Notifier) MarkRead(ctx context.Context, userID, notificationID uint) error {
	res := n.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_user_id = ?", notificationID, userID).
		Update("is_read", true)
	if res.Error != nil {
		return internalError("failed to update notification", res.Error)
	}
	if res.RowsAffected == 0 {
		return n.missing(ctx, userID, notificationID)
	}
	return nil
}

// missing distinguishes an unknown notification from one that was already read.
func (n *Notifier) missing(ctx context.Context, userID, notificationID uint) error {
	var count int64
	if err := n.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_user_id = ?", notificationID, userID).
		Count(&count).Error; err != nil {
		return internalError("failed to load notification", err)
	}
	if count == 0 {
		return notFoundError("notification not found")
	}
	return nil
}

// MarkAllRead marks every unread notification of the user as read.
func (n *Notifier) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := n.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, internalError("failed to update notifications", res.Error)
	}
	return res.RowsAffected, nil
}

// Delete removes one of the user's notifications.
func (n *Notifier) Delete(ctx context.Context, userID, notificationID uint) error {
	res := n.db.WithContext(ctx).
		Where("id = ? AND recipient_user_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if res.Error != nil {
		return internalError("failed to delete notification", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundError("notification not found")
	}
	return nil
}
