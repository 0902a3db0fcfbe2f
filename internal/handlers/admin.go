package handlers

import (
	"inkwell/internal/middleware"
	"inkwell/internal/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	comments *services.CommentService
}

func NewAdminHandler(comments *services.CommentService) *AdminHandler {
	return &AdminHandler{comments: comments}
}

// ListComments 最新评论 (moderation)
func (h *AdminHandler) ListComments(c *gin.Context) {
	recent, err := h.comments.ListRecent(c.Request.Context(), middleware.CurrentIdentity(c),
		queryInt(c, "offset", 0), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recent)
}

// DeleteComment 删除任意评论
func (h *AdminHandler) DeleteComment(c *gin.Context) {
	commentID, ok := pathID(c, "commentId", "comment")
	if !ok {
		return
	}

	deleted, err := h.comments.Delete(c.Request.Context(), middleware.CurrentIdentity(c), commentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedCount": deleted})
}
