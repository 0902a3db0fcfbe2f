package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"inkwell/internal/config"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/services"
	"inkwell/internal/testutils"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testUserHeader = "X-Test-User"

type testServer struct {
	db     *gorm.DB
	engine *gin.Engine
	users  map[string]*models.User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gdb := testutils.SetupTestDB(t)

	cfg := &config.Config{MaxTreeDepth: 10, TreeCacheSize: 16, TreeCacheTTL: time.Minute}
	h, err := NewHandlers(cfg, gdb)
	require.NoError(t, err)

	s := &testServer{db: gdb, users: map[string]*models.User{}}
	r := testutils.SetupTestRouter()
	r.Use(middleware.RequestLogger())
	// stands in for the session lookup done by LoadUser
	r.Use(func(c *gin.Context) {
		if u, ok := s.users[c.GetHeader(testUserHeader)]; ok {
			c.Set(middleware.IdentityKey, &services.Identity{UserID: u.ID, DisplayName: u.DisplayName(), IsAdmin: u.IsAdmin})
		}
		c.Next()
	})
	RegisterRoutes(r, h)
	s.engine = r
	return s
}

func (s *testServer) addUser(t *testing.T, name string, admin bool) *models.User {
	var u *models.User
	if admin {
		u = testutils.CreateAdmin(t, s.db, name)
	} else {
		u = testutils.CreateUser(t, s.db, name, "")
	}
	s.users[name] = u
	return u
}

func (s *testServer) do(t *testing.T, method, path, as string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set(testUserHeader, as)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func commentsPath(postID uint) string {
	return fmt.Sprintf("/posts/%d/comments", postID)
}

func TestCreateComment(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "alice", false)
	post := testutils.CreatePost(t, s.db, "hello")

	t.Run("anonymous", func(t *testing.T) {
		w := s.do(t, http.MethodPost, commentsPath(post.ID), "", gin.H{"content": "hi"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		body := decode(t, w)
		assert.Contains(t, body["redirect"], "/login")
	})

	t.Run("created", func(t *testing.T) {
		w := s.do(t, http.MethodPost, commentsPath(post.ID), "alice", gin.H{"content": " <i>hi</i> there "})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		body := decode(t, w)
		assert.Equal(t, "hi there", body["body"])
		assert.Equal(t, "alice", body["authorName"])
		assert.Equal(t, float64(0), body["depth"])
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("empty content", func(t *testing.T) {
		w := s.do(t, http.MethodPost, commentsPath(post.ID), "alice", gin.H{"content": "   "})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decode(t, w)
		assert.Equal(t, "content", body["field"])
		assert.Equal(t, "validation", body["code"])
	})

	t.Run("malformed json", func(t *testing.T) {
		w := s.do(t, http.MethodPost, commentsPath(post.ID), "alice", "{not json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing post", func(t *testing.T) {
		w := s.do(t, http.MethodPost, commentsPath(9999), "alice", gin.H{"content": "hi"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("non numeric post id", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/posts/abc/comments", "alice", gin.H{"content": "hi"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad image", func(t *testing.T) {
		w := s.do(t, http.MethodPost, commentsPath(post.ID), "alice", gin.H{"content": "hi", "image": "x.svg"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "image", decode(t, w)["field"])
	})
}

func createComment(t *testing.T, s *testServer, postID uint, as string, content string, parent *uint) uint {
	t.Helper()
	payload := gin.H{"content": content}
	if parent != nil {
		payload["parentCommentId"] = *parent
	}
	w := s.do(t, http.MethodPost, commentsPath(postID), as, payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return uint(decode(t, w)["id"].(float64))
}

func TestThreadLifecycle(t *testing.T) {
	s := newTestServer(t)
	alice := s.addUser(t, "alice", false)
	s.addUser(t, "bob", false)
	post := testutils.CreatePost(t, s.db, "hello")

	a := createComment(t, s, post.ID, "alice", "A", nil)
	b := createComment(t, s, post.ID, "bob", "B", &a)
	createComment(t, s, post.ID, "alice", "C", &b)

	// tree with depth limit
	w := s.do(t, http.MethodGet, commentsPath(post.ID)+"?max_depth=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tree services.Tree
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tree))
	assert.Equal(t, 3, tree.TotalComments)
	require.Len(t, tree.Comments, 1)
	require.Len(t, tree.Comments[0].Replies, 1)
	assert.True(t, tree.Comments[0].Replies[0].HasMoreReplies)

	// replies page
	w = s.do(t, http.MethodGet, "/comments/"+strconv.Itoa(int(a))+"/replies?limit=5&offset=0", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page services.ReplyPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.TotalReplies)
	assert.Equal(t, 5, page.Limit)
	assert.False(t, page.HasMore)

	w = s.do(t, http.MethodGet, "/comments/9999/replies", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// like toggle
	likePath := fmt.Sprintf("/comments/%d/like", b)
	w = s.do(t, http.MethodPost, likePath, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"liked": true, "likesCount": float64(1)}, decode(t, w))

	w = s.do(t, http.MethodPost, likePath, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// viewer sees own like
	w = s.do(t, http.MethodGet, commentsPath(post.ID), "alice", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tree))
	assert.True(t, tree.Comments[0].Replies[0].IsLiked)

	// edit
	editPath := fmt.Sprintf("/comments/%d", a)
	w = s.do(t, http.MethodPut, editPath, "bob", gin.H{"content": "defaced"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPut, editPath, "alice", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "content", decode(t, w)["field"])

	w = s.do(t, http.MethodPut, editPath, "alice", gin.H{"content": "A2"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "A2", decode(t, w)["body"])

	// notifications for alice: bob replied to A
	w = s.do(t, http.MethodGet, "/notifications", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	inbox := decode(t, w)
	assert.Equal(t, float64(1), inbox["unreadCount"])
	notes := inbox["notifications"].([]interface{})
	require.Len(t, notes, 1)
	assert.Equal(t, "bob replied to your comment", notes[0].(map[string]interface{})["message"])

	// delete
	w = s.do(t, http.MethodDelete, editPath, "bob", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, editPath, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode(t, w)["deletedCount"])

	w = s.do(t, http.MethodGet, commentsPath(post.ID), "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tree))
	assert.Zero(t, tree.TotalComments)
	assert.NotNil(t, tree.Comments)

	var unread int64
	require.NoError(t, s.db.Model(&models.Notification{}).Where("recipient_user_id = ?", alice.ID).Count(&unread).Error)
	assert.Equal(t, int64(1), unread)
}

func TestNotificationRoutes(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "alice", false)
	s.addUser(t, "bob", false)
	post := testutils.CreatePost(t, s.db, "hello")

	a := createComment(t, s, post.ID, "alice", "A", nil)
	createComment(t, s, post.ID, "bob", "one", &a)
	createComment(t, s, post.ID, "bob", "two", &a)

	w := s.do(t, http.MethodGet, "/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/notifications/unread-count", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["unreadCount"])

	var notes []models.Notification
	require.NoError(t, s.db.Order("id").Find(&notes).Error)
	require.Len(t, notes, 2)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/notifications/%d/read", notes[0].ID), "alice", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/notifications/%d/read", notes[0].ID), "bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/notifications?include_read=false", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["notifications"], 1)

	w = s.do(t, http.MethodPost, "/notifications/read-all", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["updated"])

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/notifications/%d", notes[1].ID), "alice", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodDelete, "/notifications/abc", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "alice", false)
	s.addUser(t, "root", true)
	post := testutils.CreatePost(t, s.db, "hello")
	a := createComment(t, s, post.ID, "alice", "spam", nil)

	w := s.do(t, http.MethodGet, "/admin/comments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/admin/comments", "alice", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/admin/comments?limit=10", "root", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["total"])
	assert.Len(t, body["comments"], 1)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/admin/comments/%d", a), "root", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["deletedCount"])
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
