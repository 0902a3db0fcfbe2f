package router

import (
	"inkwell/internal/config"
	"inkwell/internal/handlers"
	"inkwell/internal/middleware"
	"inkwell/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

const sessionName = "inkwell_session"

// Handlers groups the HTTP handlers served by the router.
type Handlers struct {
	Comments      *handlers.CommentHandler
	Notifications *handlers.NotificationHandler
	Admin         *handlers.AdminHandler
	Health        *handlers.HealthHandler
}

// NewHandlers wires services and handlers around a database.
func NewHandlers(cfg *config.Config, gdb *gorm.DB) (Handlers, error) {
	treeCache, err := services.NewTreeCache(cfg.TreeCacheSize, cfg.TreeCacheTTL)
	if err != nil {
		return Handlers{}, err
	}

	store := services.NewCommentStore(gdb)
	likes := services.NewLikeLedger(gdb)
	notifier := services.NewNotifier(gdb)
	tree := services.NewTreeAssembler(store, likes, treeCache, cfg.MaxTreeDepth)
	comments := services.NewCommentService(gdb, store, likes, tree, notifier)

	return Handlers{
		Comments:      handlers.NewCommentHandler(comments),
		Notifications: handlers.NewNotificationHandler(notifier),
		Admin:         handlers.NewAdminHandler(comments),
		Health:        handlers.NewHealthHandler(gdb),
	}, nil
}

// New builds the gin engine with middleware and routes.
func New(cfg *config.Config, gdb *gorm.DB) (*gin.Engine, error) {
	h, err := NewHandlers(cfg, gdb)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(corsConfig(cfg)))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(middleware.LoadUser(gdb))

	RegisterRoutes(r, h)
	return r, nil
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.CORSOrigins
		c.AllowCredentials = true
	}
	c.AllowHeaders = append(c.AllowHeaders, middleware.RequestIDHeader)
	c.ExposeHeaders = []string{middleware.RequestIDHeader}
	return c
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	// 运维 (Ops)
	r.GET("/healthz", h.Health.Check)                // 数据库健康检查
	r.GET("/metrics", gin.WrapH(promhttp.Handler())) // Prometheus 指标

	// 公共路由 (Public Routes)
	r.GET("/posts/:postId/comments", h.Comments.ListForPost)      // 文章评论树
	r.GET("/comments/:commentId/replies", h.Comments.ListReplies) // 分页加载回复

	// 受保护路由 (Protected Routes)
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/posts/:postId/comments", h.Comments.Create)       // 发表评论/回复
		authorized.PUT("/comments/:commentId", h.Comments.Update)           // 编辑评论
		authorized.DELETE("/comments/:commentId", h.Comments.Delete)        // 删除评论
		authorized.POST("/comments/:commentId/like", h.Comments.ToggleLike) // 点赞/取消点赞

		authorized.GET("/notifications", h.Notifications.List)                     // 我的通知列表
		authorized.GET("/notifications/unread-count", h.Notifications.UnreadCount) // 未读通知数
		authorized.POST("/notifications/:id/read", h.Notifications.Read)           // 标记单条通知为已读
		authorized.DELETE("/notifications/:id", h.Notifications.Delete)            // 删除单条通知
		authorized.POST("/notifications/read-all", h.Notifications.ReadAll)        // 全部通知标记为已读
	}

	// 管理路由 (Admin Routes)
	admin := r.Group("/admin")
	admin.Use(middleware.AdminRequired())
	{
		admin.GET("/comments", h.Admin.ListComments)                // 最新评论
		admin.DELETE("/comments/:commentId", h.Admin.DeleteComment) // 删除任意评论
	}
}
