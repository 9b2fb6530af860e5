package userControllers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/DelightGeorge/Ikeya-Backend/auth"
	"github.com/DelightGeorge/Ikeya-Backend/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const MinPasswordLength = 6

var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrWeakPassword     = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrInvalidEmail     = errors.New("a valid email address is required")
	ErrNameRequired     = errors.New("name is required")
	ErrEmailTaken       = errors.New("email already in use")
	ErrUserNotFound     = errors.New("user not found")
	ErrWrongPassword    = errors.New("invalid password")
	ErrInvalidRole      = errors.New("role must be USER or ADMIN")
	ErrSelfDelete       = errors.New("cannot delete your own account")
	ErrSelfRoleChange   = errors.New("cannot change your own role")
	ErrUserHasOrders    = errors.New("cannot delete a user who has placed orders")
	ErrResetUsed        = errors.New("reset token no longer matches the account")
)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}

func ParseRole(role string) (models.Role, error) {
	switch models.Role(strings.ToUpper(strings.TrimSpace(role))) {
	case models.RoleUser:
		return models.RoleUser, nil
	case models.RoleAdmin:
		return models.RoleAdmin, nil
	}
	return "", ErrInvalidRole
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func randomPassword() string {
	b := make([]byte, 24)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// CreateUser validates and stores a password account.
func CreateUser(db *gorm.DB, name, email, password string, role models.Role) (models.User, error) {
	var user models.User
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	switch {
	case name == "":
		return user, ErrNameRequired
	case !ValidEmail(email):
		return user, ErrInvalidEmail
	case len(password) < MinPasswordLength:
		return user, ErrWeakPassword
	}

	var existing int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return user, err
	}
	if existing > 0 {
		return user, ErrEmailTaken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return user, err
	}
	user = models.User{Name: name, Email: email, Password: hash, Role: role, Provider: "password"}
	if err := db.Create(&user).Error; err != nil {
		// Lost a race with a concurrent registration.
		var count int64
		if db.Model(&models.User{}).Where("email = ?", email).Count(&count); count > 0 {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}
	return user, nil
}

// Authenticate checks an email/password pair.
func Authenticate(db *gorm.DB, email, password string) (models.User, error) {
	var user models.User
	if err := db.Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		return user, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return user, ErrWrongPassword
	}
	return user, nil
}

// SetPassword replaces the password of userID while the stored hash still
// matches stamp. A stale stamp yields ErrResetUsed, so a reset token
// carrying it works once.
func SetPassword(db *gorm.DB, userID uint, stamp, password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	user, err := FindUser(db, userID)
	if err != nil {
		return err
	}
	if auth.PasswordStamp(user.Password) != stamp {
		return ErrResetUsed
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	res := db.Model(&models.User{}).
		Where("id = ? AND password = ?", userID, user.Password).
		Update("password", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrResetUsed
	}
	return nil
}

func FindUser(db *gorm.DB, id uint) (models.User, error) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		return user, err
	}
	return user, nil
}

func ListUsers(db *gorm.DB) ([]models.UserSummary, error) {
	var users []models.User
	if err := db.Order("created_at DESC, id DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	out := make([]models.UserSummary, len(users))
	for i, u := range users {
		out[i] = u.Summary()
	}
	return out, nil
}

// DeleteUser removes a user and their cart. Users with orders are kept so
// order history stays intact.
func DeleteUser(db *gorm.DB, actorID, userID uint) error {
	if actorID == userID {
		return ErrSelfDelete
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if _, err := FindUser(tx, userID); err != nil {
			return err
		}

		var orders int64
		if err := tx.Model(&models.Order{}).Where("user_id = ?", userID).Count(&orders).Error; err != nil {
			return err
		}
		if orders > 0 {
			return ErrUserHasOrders
		}

		if err := tx.Where("cart_id IN (?)", tx.Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)).
			Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Cart{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, userID).Error
	})
}

func UpdateRole(db *gorm.DB, actorID, userID uint, role string) (models.User, error) {
	newRole, err := ParseRole(role)
	if err != nil {
		return models.User{}, err
	}
	if actorID == userID {
		return models.User{}, ErrSelfRoleChange
	}
	user, err := FindUser(db, userID)
	if err != nil {
		return user, err
	}
	if err := db.Model(&user).Update("role", newRole).Error; err != nil {
		return user, err
	}
	user.Role = newRole
	return user, nil
}
