package userControllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/DelightGeorge/Ikeya-Backend/auth"
	"github.com/DelightGeorge/Ikeya-Backend/config"
	"github.com/DelightGeorge/Ikeya-Backend/middleware"
	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/DelightGeorge/Ikeya-Backend/notifications"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps carries what the account handlers need besides the database.
type Deps struct {
	Issuer      *auth.Issuer
	Outbox      *notifications.Outbox
	Google      auth.GoogleVerifier
	LoginMode   string
	FrontendURL string
}

// -------- Request Structs --------
type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenRequest struct {
	Token string `json:"token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type GoogleRequest struct {
	IDToken string `json:"idToken"`
}

type RoleRequest struct {
	Role string `json:"role"`
}

// -------- Helpers --------

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrPasswordMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Passwords do not match"})
	case errors.Is(err, ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already in use"})
	case errors.Is(err, ErrWeakPassword), errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrNameRequired), errors.Is(err, ErrInvalidRole),
		errors.Is(err, ErrSelfDelete), errors.Is(err, ErrSelfRoleChange),
		errors.Is(err, ErrUserHasOrders):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, ErrWrongPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func userIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return 0, false
	}
	return uint(id), true
}

func (d Deps) link(path, token string) string {
	return strings.TrimRight(d.FrontendURL, "/") + path + "?token=" + url.QueryEscape(token)
}

// enqueue queues account mail outside any transaction; failures are logged
// and never reach the caller.
func (d Deps) enqueue(db *gorm.DB, build func() (notifications.Message, error)) error {
	if d.Outbox == nil {
		return nil
	}
	msg, err := build()
	if err != nil {
		slog.Error("Failed to render email", "error", err)
		return err
	}
	if err := d.Outbox.Enqueue(db, msg); err != nil {
		slog.Error("Failed to queue email", "kind", msg.Kind, "to", msg.To, "error", err)
		return err
	}
	return nil
}

func (d Deps) sessionResponse(c *gin.Context, status int, user models.User) {
	token, err := d.Issuer.IssueSession(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not issue token"})
		return
	}
	c.JSON(status, gin.H{"token": token, "user": user.Summary()})
}

// GoogleSignIn verifies an ID token and returns the matching user, creating
// one on first sign-in.
func GoogleSignIn(ctx context.Context, db *gorm.DB, verifier auth.GoogleVerifier, idToken string) (models.User, bool, error) {
	var user models.User
	if verifier == nil {
		return user, false, auth.ErrGoogleDisabled
	}
	identity, err := verifier.Verify(ctx, idToken)
	if err != nil {
		return user, false, err
	}
	if !identity.EmailVerified || identity.Email == "" {
		return user, false, errGoogleUnverified
	}

	email := NormalizeEmail(identity.Email)
	err = db.Where("email = ?", email).First(&user).Error
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return user, false, err
	}

	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	hash, err := HashPassword(randomPassword())
	if err != nil {
		return user, false, err
	}
	user = models.User{Name: name, Email: email, Password: hash, Role: models.RoleUser, Provider: "google"}
	if err := db.Create(&user).Error; err != nil {
		return models.User{}, false, err
	}
	return user, true, nil
}

var errGoogleUnverified = errors.New("google account email is not verified")

// -------- Handlers --------

// POST /users/register
func Register(db *gorm.DB, deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Password != req.ConfirmPassword {
			respondError(c, ErrPasswordMismatch)
			return
		}

		db := db.WithContext(c.Request.Context())
		user, err := CreateUser(db, req.Name, req.Email, req.Password, models.RoleUser)
		if err != nil {
			respondError(c, err)
			return
		}
		deps.enqueue(db, func() (notifications.Message, error) { return notifications.Welcome(user) })

		c.JSON(http.StatusCreated, gin.H{"message": "Registration successful", "user": user.Summary()})
	}
}

// POST /users/login
func Login(db *gorm.DB, deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if strings.TrimSpace(req.Email) == "" || req.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
			return
		}

		db := db.WithContext(c.Request.Context())
		user, err := Authenticate(db, req.Email, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}

		if deps.LoginMode != config.LoginModeMagicLink {
			deps.sessionResponse(c, http.StatusOK, user)
			return
		}

		token, err := deps.Issuer.IssueSession(user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not issue token"})
			return
		}
		link := deps.link("/verify-login", token)
		if err := deps.enqueue(db, func() (notifications.Message, error) {
			return notifications.LoginLink(user.Email, link, deps.Issuer.SessionTTL())
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not send login email"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":              "Check your email for a login link",
			"requiresVerification": true,
		})
	}
}

// POST /users/verify-login
func VerifyLogin(db *gorm.DB, deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TokenRequest
		// Magic links may arrive as a bare GET-style ?token= with no body.
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		if req.Token == "" {
			req.Token = c.Query("token")
		}

		claims, err := deps.Issuer.Parse(req.Token, auth.PurposeSession)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
			return
		}
		user, err := FindUser(db.WithContext(c.Request.Context()), claims.UserID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
				return
			}
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": req.Token, "user": user.Summary()})
	}
}

// POST /users/forgot-password
func ForgotPassword(db *gorm.DB, deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ForgotPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
			return
		}

		db := db.WithContext(c.Request.Context())
		var user models.User
		err := db.Where("email = ?", NormalizeEmail(req.Email)).First(&user).Error
		switch {
		case err == nil:
			token, terr := deps.Issuer.IssueReset(user)
			if terr != nil {
				slog.Error("Failed to issue reset token", "user", user.ID, "error", terr)
				break
			}
			link := deps.link("/reset-password", token)
			deps.enqueue(db, func() (notifications.Message, error) {
				return notifications.PasswordReset(user.Email, link, deps.Issuer.ResetTTL())
			})
		case !errors.Is(err, gorm.ErrRecordNotFound):
			slog.Error("Forgot password lookup failed", "error", err)
		}

		c.JSON(http.StatusOK, gin.H{"message": "If an account exists for that email, a reset link has been sent"})
	}
}

// POST /users/reset-password
func ResetPassword(db *gorm.DB, deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Token == "" {
			req.Token = c.Query("token")
		}
		if req.Password != req.ConfirmPassword {
			respondError(c, ErrPasswordMismatch)
			return
		}

		claims, err := deps.Issuer.Parse(req.Token, auth.PurposeReset)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired reset token"})
			return
		}
		if err := SetPassword(db.WithContext(c.Request.Context()), claims.UserID, claims.PasswordStamp, req.Password); err != nil {
			if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrResetUsed) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired reset token"})
				return
			}
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password reset successful"})
	}
}

// POST /users/google
func Google(db *gorm.DB, deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GoogleRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.IDToken == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "idToken is required"})
			return
		}

		db := db.WithContext(c.Request.Context())
		user, created, err := GoogleSignIn(c.Request.Context(), db, deps.Google, req.IDToken)
		switch {
		case errors.Is(err, auth.ErrGoogleDisabled):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		case errors.Is(err, errGoogleUnverified):
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		case err != nil:
			slog.Warn("Google sign-in rejected", "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid Google token"})
			return
		}

		if created {
			deps.enqueue(db, func() (notifications.Message, error) { return notifications.Welcome(user) })
		}
		deps.sessionResponse(c, http.StatusOK, user)
	}
}

// GET /users/profile
func GetProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		user, err := FindUser(db.WithContext(c.Request.Context()), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// GET /users/users (admin)
func GetAllUsers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := ListUsers(db.WithContext(c.Request.Context()))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

// GET /users/users/:id (admin)
func GetUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := userIDParam(c)
		if !ok {
			return
		}
		user, err := FindUser(db.WithContext(c.Request.Context()), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user.Summary())
	}
}

// DELETE /users/users/:id (admin)
func DeleteUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := userIDParam(c)
		if !ok {
			return
		}
		actorID, _ := middleware.UserID(c)
		if err := DeleteUser(db.WithContext(c.Request.Context()), actorID, id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
	}
}

// PUT /users/users/:id/role (admin)
func UpdateUserRole(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := userIDParam(c)
		if !ok {
			return
		}
		var req RoleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		actorID, _ := middleware.UserID(c)
		user, err := UpdateRole(db.WithContext(c.Request.Context()), actorID, id, req.Role)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user.Summary())
	}
}
