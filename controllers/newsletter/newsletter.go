package newsletterControllers

import (
	"errors"
	"log/slog"
	"net/http"

	userControllers "github.com/DelightGeorge/Ikeya-Backend/controllers/user"
	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/DelightGeorge/Ikeya-Backend/notifications"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscribeRequest struct {
	Email string `json:"email"`
}

// Subscribe records the address and queues the welcome and admin alert
// emails in the same transaction. Repeat subscriptions send nothing.
func Subscribe(db *gorm.DB, outbox *notifications.Outbox, email string) (bool, error) {
	email = userControllers.NormalizeEmail(email)
	if !userControllers.ValidEmail(email) {
		return false, userControllers.ErrInvalidEmail
	}

	created := false
	err := db.Transaction(func(tx *gorm.DB) error {
		sub := models.NewsletterSubscriber{Email: email}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).Create(&sub)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 || outbox == nil {
			return nil
		}
		created = true

		msgs, err := outbox.NewsletterSubscribed(email)
		if err != nil {
			slog.Error("Failed to render newsletter emails", "email", email, "error", err)
			return nil
		}
		return outbox.Enqueue(tx, msgs...)
	})
	return created, err
}

// POST /newsletter/subscribe
func SubscribeHandler(db *gorm.DB, outbox *notifications.Outbox) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SubscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A valid email address is required"})
			return
		}

		created, err := Subscribe(db.WithContext(c.Request.Context()), outbox, req.Email)
		if err != nil {
			if errors.Is(err, userControllers.ErrInvalidEmail) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "A valid email address is required"})
				return
			}
			slog.Error("Newsletter subscribe failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not process subscription"})
			return
		}

		msg := "Subscribed successfully"
		if !created {
			msg = "Already subscribed"
		}
		c.JSON(http.StatusOK, gin.H{"message": msg})
	}
}
