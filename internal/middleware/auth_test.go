package middleware

import (
	"inkwell/internal/services"
	"inkwell/internal/testutils"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadUserResolvesSessionIdentity(t *testing.T) {
	gdb := testutils.SetupTestDB(t)
	user := testutils.CreateUser(t, gdb, "alice", "Alice A")
	admin := testutils.CreateAdmin(t, gdb, "root")

	r := testutils.SetupTestRouter()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))
	r.Use(LoadUser(gdb))
	r.GET("/login/:id", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		session := sessions.Default(c)
		session.Set(SessionUserKey, uint(id))
		require.NoError(t, session.Save())
		c.Status(http.StatusOK)
	})
	r.GET("/me", AuthRequired(), func(c *gin.Context) {
		identity := CurrentIdentity(c)
		c.JSON(http.StatusOK, gin.H{"id": identity.UserID, "name": identity.DisplayName})
	})
	r.GET("/admin", AdminRequired(), func(c *gin.Context) { c.Status(http.StatusOK) })

	login := func(id uint) []*http.Cookie {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login/"+strconv.Itoa(int(id)), nil))
		require.Equal(t, http.StatusOK, w.Code)
		return w.Result().Cookies()
	}
	get := func(path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		for _, ck := range cookies {
			req.AddCookie(ck)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := get("/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"redirect":"/login?next=%2Fme"`)

	userCookies := login(user.ID)
	w = get("/me", userCookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Alice A"`)

	w = get("/admin", userCookies)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = get("/admin", login(admin.ID))
	assert.Equal(t, http.StatusOK, w.Code)

	// session pointing at a deleted account is anonymous
	w = get("/me", login(9999))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCurrentIdentityAnonymous(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, CurrentIdentity(c))

	c.Set(IdentityKey, &services.Identity{UserID: 3})
	require.NotNil(t, CurrentIdentity(c))
	assert.Equal(t, uint(3), CurrentIdentity(c).UserID)
}

func TestRequestLoggerAssignsID(t *testing.T) {
	r := testutils.SetupTestRouter()
	r.Use(RequestLogger())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, RequestID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	id := w.Header().Get(RequestIDHeader)
	assert.Len(t, id, 36)
	assert.Equal(t, id, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "upstream-id", w.Header().Get(RequestIDHeader))
}
