package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/golang-jwt/jwt/v5"
)

type Purpose string

const (
	PurposeSession Purpose = "session"
	PurposeReset   Purpose = "reset"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrWrongPurpose = errors.New("token issued for another purpose")
)

// Claims is the payload of every credential the API signs.
type Claims struct {
	UserID  uint        `json:"user_id"`
	Email   string      `json:"email"`
	Role    models.Role `json:"role"`
	Purpose Purpose     `json:"purpose"`

	// PasswordStamp ties a reset token to the password hash it was issued
	// against. Empty on session tokens.
	PasswordStamp string `json:"pwd,omitempty"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret     []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
	now        func() time.Time
}

func NewIssuer(secret []byte, sessionTTL, resetTTL time.Duration) *Issuer {
	return &Issuer{secret: secret, sessionTTL: sessionTTL, resetTTL: resetTTL, now: time.Now}
}

func (i *Issuer) SessionTTL() time.Duration { return i.sessionTTL }
func (i *Issuer) ResetTTL() time.Duration   { return i.resetTTL }

func (i *Issuer) IssueSession(user models.User) (string, error) {
	return i.issue(user, PurposeSession, i.sessionTTL, "")
}

// IssueReset signs a reset token that stops verifying against the account
// once its password changes.
func (i *Issuer) IssueReset(user models.User) (string, error) {
	return i.issue(user, PurposeReset, i.resetTTL, PasswordStamp(user.Password))
}

// PasswordStamp is a short digest of a stored password hash.
func PasswordStamp(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}

func (i *Issuer) issue(user models.User, purpose Purpose, ttl time.Duration, stamp string) (string, error) {
	now := i.now()
	claims := Claims{
		UserID:        user.ID,
		Email:         user.Email,
		Role:          user.Role,
		Purpose:       purpose,
		PasswordStamp: stamp,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates signature, expiry, purpose and the presence of user_id.
func (i *Issuer) Parse(tokenString string, purpose Purpose) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}
