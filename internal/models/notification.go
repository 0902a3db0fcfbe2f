package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeReply   NotificationType = "reply"
	NotificationTypeLike    NotificationType = "like"
	NotificationTypeMention NotificationType = "mention"
)

type Notification struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	RecipientUserID uint             `gorm:"not null;index" json:"recipientUserId"` // Receiver
	Recipient       User             `gorm:"foreignKey:RecipientUserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Type            NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Message         string           `gorm:"type:text" json:"message"`
	FromUserID      *uint            `gorm:"index" json:"fromUserId"` // Sender
	FromUser        *User            `gorm:"foreignKey:FromUserID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"fromUser,omitempty"`
	PostID          *uint            `gorm:"index" json:"postId"`
	CommentID       *uint            `gorm:"index" json:"commentId"`
	IsRead          bool             `gorm:"default:false;index" json:"isRead"`
	CreatedAt       time.Time        `gorm:"index" json:"createdAt"`
}
