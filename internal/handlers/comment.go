package handlers

import (
	"inkwell/internal/middleware"
	"inkwell/internal/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

type createCommentRequest struct {
	Content         string `json:"content" binding:"max=20000"`
	ParentCommentID *uint  `json:"parentCommentId" binding:"omitempty,min=1"`
	Image           string `json:"image" binding:"omitempty,max=255"`
}

type updateCommentRequest struct {
	Content string `json:"content" binding:"required,max=20000"`
}

// Create 发表评论或回复
func (h *CommentHandler) Create(c *gin.Context) {
	postID, ok := pathID(c, "postId", "post")
	if !ok {
		return
	}

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	node, err := h.comments.Create(c.Request.Context(), middleware.CurrentIdentity(c), postID, services.CreateCommentInput{
		Content:         req.Content,
		ParentCommentID: req.ParentCommentID,
		Image:           req.Image,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, node)
}

// Update 编辑自己的评论
func (h *CommentHandler) Update(c *gin.Context) {
	commentID, ok := pathID(c, "commentId", "comment")
	if !ok {
		return
	}

	var req updateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	node, err := h.comments.Edit(c.Request.Context(), middleware.CurrentIdentity(c), commentID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

// Delete 删除评论及其所有回复
func (h *CommentHandler) Delete(c *gin.Context) {
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

// ListForPost 文章评论树
func (h *CommentHandler) ListForPost(c *gin.Context) {
	postID, ok := pathID(c, "postId", "post")
	if !ok {
		return
	}

	tree, err := h.comments.ListTree(c.Request.Context(), middleware.CurrentIdentity(c), postID, services.TreeOptions{
		TopLevelLimit: queryInt(c, "limit", 0),
		MaxDepth:      queryInt(c, "max_depth", services.DefaultMaxDepth),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

// ListReplies 分页加载回复
func (h *CommentHandler) ListReplies(c *gin.Context) {
	commentID, ok := pathID(c, "commentId", "comment")
	if !ok {
		return
	}

	page, err := h.comments.ListReplies(c.Request.Context(), middleware.CurrentIdentity(c), commentID, services.RepliesOptions{
		Offset:   queryInt(c, "offset", 0),
		Limit:    queryInt(c, "limit", services.DefaultRepliesLimit),
		MaxDepth: queryInt(c, "max_depth", services.DefaultMaxDepth),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ToggleLike 点赞/取消点赞
func (h *CommentHandler) ToggleLike(c *gin.Context) {
	commentID, ok := pathID(c, "commentId", "comment")
	if !ok {
		return
	}

	result, err := h.comments.ToggleLike(c.Request.Context(), middleware.CurrentIdentity(c), commentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
