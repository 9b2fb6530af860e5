package userControllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DelightGeorge/Ikeya-Backend/auth"
	"github.com/DelightGeorge/Ikeya-Backend/config"
	"github.com/DelightGeorge/Ikeya-Backend/database/dbtest"
	"github.com/DelightGeorge/Ikeya-Backend/middleware"
	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/DelightGeorge/Ikeya-Backend/notifications"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeGoogle struct {
	identity *auth.GoogleIdentity
	err      error
}

func (f fakeGoogle) Verify(context.Context, string) (*auth.GoogleIdentity, error) {
	return f.identity, f.err
}

func testDeps(mode string) Deps {
	return Deps{
		Issuer:      auth.NewIssuer([]byte("test-secret"), 2*time.Hour, 15*time.Minute),
		Outbox:      notifications.NewOutbox("admin@ikeya.shop", 5),
		Google:      fakeGoogle{err: auth.ErrGoogleDisabled},
		LoginMode:   mode,
		FrontendURL: "https://ikeya.shop/",
	}
}

func setupRouter(db *gorm.DB, deps Deps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		var id uint
		fmt.Sscan(c.GetHeader("X-Test-User"), &id)
		if id != 0 {
			c.Set(middleware.ContextUserID, id)
		}
	})

	r.POST("/users/register", Register(db, deps))
	r.POST("/users/login", Login(db, deps))
	r.POST("/users/verify-login", VerifyLogin(db, deps))
	r.POST("/users/forgot-password", ForgotPassword(db, deps))
	r.POST("/users/reset-password", ResetPassword(db, deps))
	r.POST("/users/google", Google(db, deps))
	r.GET("/users/profile", GetProfile(db))
	r.GET("/users/users", GetAllUsers(db))
	r.GET("/users/users/:id", GetUser(db))
	r.DELETE("/users/users/:id", DeleteUserHandler(db))
	r.PUT("/users/users/:id/role", UpdateUserRole(db))
	return r
}

func do(r *gin.Engine, method, path string, userID uint, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("X-Test-User", fmt.Sprint(userID))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func queued(t *testing.T, db *gorm.DB, kind string) []models.OutboxMessage {
	t.Helper()
	var msgs []models.OutboxMessage
	require.NoError(t, db.Where("kind = ?", kind).Find(&msgs).Error)
	return msgs
}

func TestRegister(t *testing.T) {
	db := dbtest.New(t)
	r := setupRouter(db, testDeps(config.LoginModeToken))

	w := do(r, http.MethodPost, "/users/register", 0, RegisterRequest{
		Name: "Ada", Email: " Ada@Example.com ", Password: "secret123", ConfirmPassword: "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "secret123")

	var user models.User
	require.NoError(t, db.Where("email = ?", "ada@example.com").First(&user).Error)
	assert.NotEqual(t, "secret123", user.Password)
	assert.Equal(t, models.RoleUser, user.Role)

	welcome := queued(t, db, notifications.KindWelcome)
	require.Len(t, welcome, 1)
	assert.Equal(t, "ada@example.com", welcome[0].Recipient)

	t.Run("duplicate email", func(t *testing.T) {
		w := do(r, http.MethodPost, "/users/register", 0, RegisterRequest{
			Name: "Ada", Email: "ada@example.com", Password: "secret123", ConfirmPassword: "secret123",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Email already in use", decode(t, w)["error"])
	})

	t.Run("password mismatch", func(t *testing.T) {
		w := do(r, http.MethodPost, "/users/register", 0, RegisterRequest{
			Name: "Bo", Email: "bo@example.com", Password: "secret123", ConfirmPassword: "secret124",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Passwords do not match", decode(t, w)["error"])
	})

	t.Run("invalid email", func(t *testing.T) {
		w := do(r, http.MethodPost, "/users/register", 0, RegisterRequest{
			Name: "Bo", Email: "not-an-email", Password: "secret123", ConfirmPassword: "secret123",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRegisterSucceedsWhenOutboxUnavailable(t *testing.T) {
	db := dbtest.New(t)
	r := setupRouter(db, testDeps(config.LoginModeToken))
	require.NoError(t, db.Migrator().DropTable(&models.OutboxMessage{}))

	w := do(r, http.MethodPost, "/users/register", 0, RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Password: "secret123", ConfirmPassword: "secret123",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestLoginTokenMode(t *testing.T) {
	db := dbtest.New(t)
	deps := testDeps(config.LoginModeToken)
	r := setupRouter(db, deps)
	user := dbtest.CreateUser(t, db, "ada@example.com", models.RoleAdmin)

	w := do(r, http.MethodPost, "/users/login", 0, LoginRequest{Email: "ada@example.com", Password: "password123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	claims, err := deps.Issuer.Parse(body["token"].(string), auth.PurposeSession)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	w = do(r, http.MethodPost, "/users/login", 0, LoginRequest{Email: "ada@example.com", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/users/login", 0, LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoginMagicLink(t *testing.T) {
	db := dbtest.New(t)
	deps := testDeps(config.LoginModeMagicLink)
	r := setupRouter(db, deps)
	dbtest.CreateUser(t, db, "ada@example.com", models.RoleUser)

	w := do(r, http.MethodPost, "/users/login", 0, LoginRequest{Email: "ada@example.com", Password: "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["requiresVerification"])
	assert.NotContains(t, body, "token")

	links := queued(t, db, notifications.KindLoginLink)
	require.Len(t, links, 1)
	assert.Contains(t, links[0].Body, "https://ikeya.shop/verify-login?token=")
}

func TestVerifyLogin(t *testing.T) {
	db := dbtest.New(t)
	deps := testDeps(config.LoginModeMagicLink)
	r := setupRouter(db, deps)
	user := dbtest.CreateUser(t, db, "ada@example.com", models.RoleUser)

	token, err := deps.Issuer.IssueSession(user)
	require.NoError(t, err)

	w := do(r, http.MethodPost, "/users/verify-login", 0, TokenRequest{Token: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, token, decode(t, w)["token"])

	w = do(r, http.MethodPost, "/users/verify-login", 0, TokenRequest{Token: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid or expired token", decode(t, w)["error"])

	reset, err := deps.Issuer.IssueReset(user)
	require.NoError(t, err)
	w = do(r, http.MethodPost, "/users/verify-login", 0, TokenRequest{Token: reset})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	t.Run("expired link", func(t *testing.T) {
		stale := auth.NewIssuer([]byte("test-secret"), -time.Minute, 15*time.Minute)
		expired, err := stale.IssueSession(user)
		require.NoError(t, err)

		w := do(r, http.MethodPost, "/users/verify-login", 0, TokenRequest{Token: expired})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid or expired token", decode(t, w)["error"])
	})

	t.Run("token in query", func(t *testing.T) {
		w := do(r, http.MethodPost, "/users/verify-login?token="+token, 0, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, token, decode(t, w)["token"])
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/users/verify-login?token="+token, bytes.NewBufferString(`{"token":`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestForgotAndResetPassword(t *testing.T) {
	db := dbtest.New(t)
	deps := testDeps(config.LoginModeToken)
	r := setupRouter(db, deps)
	user := dbtest.CreateUser(t, db, "ada@example.com", models.RoleUser)

	known := do(r, http.MethodPost, "/users/forgot-password", 0, ForgotPasswordRequest{Email: "ada@example.com"})
	unknown := do(r, http.MethodPost, "/users/forgot-password", 0, ForgotPasswordRequest{Email: "ghost@example.com"})
	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())

	resets := queued(t, db, notifications.KindPasswordReset)
	require.Len(t, resets, 1)
	assert.Equal(t, "ada@example.com", resets[0].Recipient)
	assert.Contains(t, resets[0].Body, "https://ikeya.shop/reset-password?token=")

	session, err := deps.Issuer.IssueSession(user)
	require.NoError(t, err)
	w := do(r, http.MethodPost, "/users/reset-password", 0, ResetPasswordRequest{
		Token: session, Password: "newpass1", ConfirmPassword: "newpass1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid or expired reset token", decode(t, w)["error"])

	token, err := deps.Issuer.IssueReset(user)
	require.NoError(t, err)

	w = do(r, http.MethodPost, "/users/reset-password", 0, ResetPasswordRequest{
		Token: token, Password: "newpass1", ConfirmPassword: "newpass2",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/users/reset-password", 0, ResetPasswordRequest{
		Token: token, Password: "newpass1", ConfirmPassword: "newpass1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	_, err = Authenticate(db, "ada@example.com", "newpass1")
	assert.NoError(t, err)
	_, err = Authenticate(db, "ada@example.com", "password123")
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestResetTokenWorksOnce(t *testing.T) {
	db := dbtest.New(t)
	deps := testDeps(config.LoginModeToken)
	r := setupRouter(db, deps)
	user := dbtest.CreateUser(t, db, "ada@example.com", models.RoleUser)

	token, err := deps.Issuer.IssueReset(user)
	require.NoError(t, err)
	// Issued before the first reset, so it is bound to the same password.
	second, err := deps.Issuer.IssueReset(user)
	require.NoError(t, err)

	w := do(r, http.MethodPost, "/users/reset-password", 0, ResetPasswordRequest{
		Token: token, Password: "owner-pass", ConfirmPassword: "owner-pass",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for _, replay := range []string{token, second} {
		w = do(r, http.MethodPost, "/users/reset-password", 0, ResetPasswordRequest{
			Token: replay, Password: "intruder-pass", ConfirmPassword: "intruder-pass",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid or expired reset token", decode(t, w)["error"])
	}

	_, err = Authenticate(db, "ada@example.com", "intruder-pass")
	assert.ErrorIs(t, err, ErrWrongPassword)
	_, err = Authenticate(db, "ada@example.com", "owner-pass")
	assert.NoError(t, err)

	// A token issued after the change is bound to the new password.
	fresh, err := FindUser(db, user.ID)
	require.NoError(t, err)
	token, err = deps.Issuer.IssueReset(fresh)
	require.NoError(t, err)
	w = do(r, http.MethodPost, "/users/reset-password", 0, ResetPasswordRequest{
		Token: token, Password: "third-pass", ConfirmPassword: "third-pass",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGoogleSignIn(t *testing.T) {
	db := dbtest.New(t)
	deps := testDeps(config.LoginModeMagicLink)

	t.Run("disabled", func(t *testing.T) {
		r := setupRouter(db, deps)
		w := do(r, http.MethodPost, "/users/google", 0, GoogleRequest{IDToken: "x"})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("rejected token", func(t *testing.T) {
		d := deps
		d.Google = fakeGoogle{err: errors.New("bad signature")}
		w := do(setupRouter(db, d), http.MethodPost, "/users/google", 0, GoogleRequest{IDToken: "x"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unverified email", func(t *testing.T) {
		d := deps
		d.Google = fakeGoogle{identity: &auth.GoogleIdentity{Email: "eve@example.com"}}
		w := do(setupRouter(db, d), http.MethodPost, "/users/google", 0, GoogleRequest{IDToken: "x"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("first sign-in creates user", func(t *testing.T) {
		d := deps
		d.Google = fakeGoogle{identity: &auth.GoogleIdentity{
			Subject: "123", Email: "Chidi@Example.com", EmailVerified: true, Name: "Chidi",
		}}
		r := setupRouter(db, d)

		w := do(r, http.MethodPost, "/users/google", 0, GoogleRequest{IDToken: "x"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.NotEmpty(t, decode(t, w)["token"])

		var user models.User
		require.NoError(t, db.Where("email = ?", "chidi@example.com").First(&user).Error)
		assert.Equal(t, "google", user.Provider)

		w = do(r, http.MethodPost, "/users/google", 0, GoogleRequest{IDToken: "x"})
		require.Equal(t, http.StatusOK, w.Code)

		var count int64
		db.Model(&models.User{}).Where("email = ?", "chidi@example.com").Count(&count)
		assert.Equal(t, int64(1), count)
		assert.Len(t, queued(t, db, notifications.KindWelcome), 1)
	})
}

func TestProfile(t *testing.T) {
	db := dbtest.New(t)
	r := setupRouter(db, testDeps(config.LoginModeToken))
	user := dbtest.CreateUser(t, db, "ada@example.com", models.RoleUser)

	w := do(r, http.MethodGet, "/users/profile", user.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ada@example.com", body["email"])
	assert.NotContains(t, body, "password")

	w = do(r, http.MethodGet, "/users/profile", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminUserManagement(t *testing.T) {
	db := dbtest.New(t)
	r := setupRouter(db, testDeps(config.LoginModeToken))
	admin := dbtest.CreateUser(t, db, "admin@example.com", models.RoleAdmin)
	buyer := dbtest.CreateUser(t, db, "buyer@example.com", models.RoleUser)
	idle := dbtest.CreateUser(t, db, "idle@example.com", models.RoleUser)

	require.NoError(t, db.Create(&models.Order{
		Reference: "ref-1", UserID: buyer.ID, TotalAmount: 250000, DeliveryFee: 250000,
		Address: "Lagos", Phone: "0801", Status: models.OrderStatusPending,
	}).Error)
	require.NoError(t, db.Create(&models.Cart{UserID: idle.ID}).Error)

	w := do(r, http.MethodGet, "/users/users", admin.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var users []models.UserSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	assert.Len(t, users, 3)

	w = do(r, http.MethodGet, fmt.Sprintf("/users/users/%d", buyer.ID), admin.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(r, http.MethodGet, "/users/users/9999", admin.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodDelete, fmt.Sprintf("/users/users/%d", admin.ID), admin.ID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodDelete, fmt.Sprintf("/users/users/%d", buyer.ID), admin.ID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodDelete, fmt.Sprintf("/users/users/%d", idle.ID), admin.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, err := FindUser(db, idle.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	w = do(r, http.MethodPut, fmt.Sprintf("/users/users/%d/role", buyer.ID), admin.ID, RoleRequest{Role: "admin"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ADMIN", decode(t, w)["role"])

	w = do(r, http.MethodPut, fmt.Sprintf("/users/users/%d/role", buyer.ID), admin.ID, RoleRequest{Role: "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPut, fmt.Sprintf("/users/users/%d/role", admin.ID), admin.ID, RoleRequest{Role: "user"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
