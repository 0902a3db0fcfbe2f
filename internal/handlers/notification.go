package handlers

import (
	"inkwell/internal/middleware"
	"inkwell/internal/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifier *services.Notifier
}

func NewNotificationHandler(notifier *services.Notifier) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

// List 我的通知列表
func (h *NotificationHandler) List(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	ctx := c.Request.Context()

	notifications, err := h.notifier.List(ctx, identity.UserID, services.ListOptions{
		Limit:      queryInt(c, "limit", 0),
		UnreadOnly: !queryBool(c, "include_read", true),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	unread, err := h.notifier.UnreadCount(ctx, identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"unreadCount":   unread,
		"notifications": notifications,
	})
}

// UnreadCount 未读通知数
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)

	unread, err := h.notifier.UnreadCount(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unreadCount": unread})
}

// Read 标记单条通知为已读
func (h *NotificationHandler) Read(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	id, ok := pathID(c, "id", "notification")
	if !ok {
		return
	}

	if err := h.notifier.MarkRead(c.Request.Context(), identity.UserID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete 删除单条通知
func (h *NotificationHandler) Delete(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	id, ok := pathID(c, "id", "notification")
	if !ok {
		return
	}

	if err := h.notifier.Delete(c.Request.Context(), identity.UserID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReadAll 全部通知标记为已读
func (h *NotificationHandler) ReadAll(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)

	updated, err := h.notifier.MarkAllRead(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
