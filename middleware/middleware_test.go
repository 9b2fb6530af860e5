package middleware

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DelightGeorge/Ikeya-Backend/auth"
	"github.com/DelightGeorge/Ikeya-Backend/database/dbtest"
	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/DelightGeorge/Ikeya-Backend/payments/paystack"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() { gin.SetMode(gin.TestMode) }

func newIssuer() *auth.Issuer {
	return auth.NewIssuer([]byte("middleware-secret"), time.Hour, 15*time.Minute)
}

func authRouter(issuer *auth.Issuer, db *gorm.DB) *gin.Engine {
	r := gin.New()
	r.GET("/me", RequireAuth(issuer, db), func(c *gin.Context) {
		id, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "admin": IsAdmin(c)})
	})
	r.GET("/admin", RequireAuth(issuer, db), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r http.Handler, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	db := dbtest.New(t)
	issuer := newIssuer()
	r := authRouter(issuer, db)
	user := dbtest.CreateUser(t, db, "ada@example.com", models.RoleUser)

	session, err := issuer.IssueSession(user)
	require.NoError(t, err)
	reset, err := issuer.IssueReset(user)
	require.NoError(t, err)

	w := get(r, "/me", "Bearer "+session)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"admin":false}`, user.ID), w.Body.String())

	assert.Equal(t, http.StatusOK, get(r, "/me?access_token="+session, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "Basic "+session).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "Bearer not-a-token").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "Bearer "+reset).Code)

	other := auth.NewIssuer([]byte("another-secret"), time.Hour, time.Hour)
	forged, err := other.IssueSession(user)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "Bearer "+forged).Code)
}

func TestRequireAuthRejectsDeletedAccount(t *testing.T) {
	db := dbtest.New(t)
	issuer := newIssuer()
	r := authRouter(issuer, db)
	user := dbtest.CreateUser(t, db, "ada@example.com", models.RoleUser)

	session, err := issuer.IssueSession(user)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, get(r, "/me", "Bearer "+session).Code)

	require.NoError(t, db.Delete(&models.User{}, user.ID).Error)
	w := get(r, "/me", "Bearer "+session)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Account no longer exists")
}

func TestRequireAdmin(t *testing.T) {
	db := dbtest.New(t)
	issuer := newIssuer()
	r := authRouter(issuer, db)
	user := dbtest.CreateUser(t, db, "ada@example.com", models.RoleUser)
	admin := dbtest.CreateUser(t, db, "admin@ikeya.shop", models.RoleAdmin)

	userToken, err := issuer.IssueSession(user)
	require.NoError(t, err)
	adminToken, err := issuer.IssueSession(admin)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, get(r, "/admin", "Bearer "+userToken).Code)
	assert.Equal(t, http.StatusNoContent, get(r, "/admin", "Bearer "+adminToken).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/admin", "").Code)
}

func TestRoleComesFromStoredAccount(t *testing.T) {
	db := dbtest.New(t)
	issuer := newIssuer()
	r := authRouter(issuer, db)
	admin := dbtest.CreateUser(t, db, "admin@ikeya.shop", models.RoleAdmin)
	user := dbtest.CreateUser(t, db, "ada@example.com", models.RoleUser)

	adminToken, err := issuer.IssueSession(admin)
	require.NoError(t, err)
	userToken, err := issuer.IssueSession(user)
	require.NoError(t, err)

	// Demoted while the token is still valid.
	require.NoError(t, db.Model(&admin).Update("role", models.RoleUser).Error)
	assert.Equal(t, http.StatusForbidden, get(r, "/admin", "Bearer "+adminToken).Code)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"admin":false}`, admin.ID), get(r, "/me", "Bearer "+adminToken).Body.String())

	// Promoted while holding a USER token.
	require.NoError(t, db.Model(&user).Update("role", models.RoleAdmin).Error)
	assert.Equal(t, http.StatusNoContent, get(r, "/admin", "Bearer "+userToken).Code)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.POST("/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.2"))

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))

	now = now.Add(5 * time.Minute)
	rl.cleanup()
	assert.Empty(t, rl.visitors)
}

func TestPaystackWebhookAuth(t *testing.T) {
	const secret = "sk_test"
	r := gin.New()
	r.POST("/hook", PaystackWebhookAuth(secret), func(c *gin.Context) {
		raw, _ := c.Get(ContextRawBody)
		body, _ := io.ReadAll(c.Request.Body)
		assert.Equal(t, raw, body)
		c.Status(http.StatusOK)
	})

	body := []byte(`{"event":"charge.success","data":{"reference":"r1"}}`)
	send := func(sig string) int {
		req := httptest.NewRequest(http.MethodPost, "/hook", bytes.NewReader(body))
		if sig != "" {
			req.Header.Set(paystack.SignatureHeader, sig)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send(paystack.Sign(secret, body)))
	assert.Equal(t, http.StatusUnauthorized, send(paystack.Sign("wrong", body)))
	assert.Equal(t, http.StatusUnauthorized, send(""))
}

func TestRequestLoggerPassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/teapot", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	assert.Equal(t, http.StatusTeapot, get(r, "/teapot", "").Code)
}
