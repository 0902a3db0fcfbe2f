package models

import (
	"time"
)

// AnonymousName is shown for legacy comments that carry neither an owner nor a name.
const AnonymousName = "Anonymous"

type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PostID          uint      `gorm:"not null;index" json:"postId"`
	Post            Post      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ParentCommentID *uint     `gorm:"index" json:"parentCommentId"` // Nullable for top-level comments
	Parent          *Comment  `gorm:"foreignKey:ParentCommentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	AuthorID        *uint     `gorm:"index" json:"authorId"` // Nil only for legacy name-only comments
	User            *User     `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
	LegacyName      string    `gorm:"size:100" json:"legacyName,omitempty"`
	Body            string    `gorm:"type:text;not null" json:"body"`
	Image           string    `gorm:"size:255" json:"image,omitempty"`
	CreatedAt       time.Time `gorm:"index" json:"createdAt"`
}

// Author identifies who wrote a comment: a registered user or a legacy anonymous name.
type Author struct {
	Registered  bool
	UserID      uint
	DisplayName string
}

// Author resolves the comment's byline. User must be preloaded for registered
// authors to get a real name; otherwise the legacy name is used.
func (c *Comment) Author() Author {
	if c.AuthorID != nil {
		a := Author{Registered: true, UserID: *c.AuthorID}
		if c.User != nil {
			a.DisplayName = c.User.DisplayName()
		}
		if a.DisplayName == "" {
			a.DisplayName = c.fallbackName()
		}
		return a
	}
	return Author{DisplayName: c.fallbackName()}
}

func (c *Comment) fallbackName() string {
	if c.LegacyName != "" {
		return c.LegacyName
	}
	return AnonymousName
}

// IsOwnedBy reports whether userID is the registered author.
func (c *Comment) IsOwnedBy(userID uint) bool {
	return c.AuthorID != nil && *c.AuthorID == userID
}
