package middleware

import (
	"inkwell/internal/models"
	"inkwell/internal/services"
	"net/http"
	"net/url"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const IdentityKey = "identity"
const SessionUserKey = "user_id"

// LoadUser retrieves user from session and sets its Identity on the context
func LoadUser(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get(SessionUserKey)

		if userID != nil {
			var user models.User
			result := gdb.WithContext(c.Request.Context()).First(&user, userID)
			if result.Error == nil {
				c.Set(IdentityKey, &services.Identity{
					UserID:      user.ID,
					DisplayName: user.DisplayName(),
					IsAdmin:     user.IsAdmin,
				})
			}
		}
		c.Next()
	}
}

// CurrentIdentity returns the caller resolved by LoadUser, or nil for anonymous visitors.
func CurrentIdentity(c *gin.Context) *services.Identity {
	if v, ok := c.Get(IdentityKey); ok {
		if identity, ok := v.(*services.Identity); ok {
			return identity
		}
	}
	return nil
}

// LoginRedirect is the hint returned to anonymous callers of protected endpoints.
func LoginRedirect(c *gin.Context) string {
	return "/login?next=" + url.QueryEscape(c.Request.URL.RequestURI())
}

// AuthRequired ensures a user is logged in
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentIdentity(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    "login required",
				"code":     services.ErrAuthentication.String(),
				"redirect": LoginRedirect(c),
			})
			return
		}
		c.Next()
	}
}

// AdminRequired ensures the logged in user is an admin
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := CurrentIdentity(c)
		if identity == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    "login required",
				"code":     services.ErrAuthentication.String(),
				"redirect": LoginRedirect(c),
			})
			return
		}
		if !identity.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "admin access required",
				"code":  services.ErrAuthorization.String(),
			})
			return
		}
		c.Next()
	}
}
