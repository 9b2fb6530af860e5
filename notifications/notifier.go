package notifications

import (
	"fmt"
	"time"

	"github.com/DelightGeorge/Ikeya-Backend/models"
	"gorm.io/gorm"
)

// Channel is the Postgres NOTIFY channel the outbox worker listens on.
const Channel = "outbox_messages"

// Outbox writes rendered messages as OutboxMessage rows. Pass a transaction
// to make delivery conditional on its commit.
type Outbox struct {
	AdminEmail  string
	MaxAttempts int
}

func NewOutbox(adminEmail string, maxAttempts int) *Outbox {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Outbox{AdminEmail: adminEmail, MaxAttempts: maxAttempts}
}

func (o *Outbox) Enqueue(db *gorm.DB, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]models.OutboxMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.To == "" {
			continue
		}
		rows = append(rows, models.OutboxMessage{
			Kind:          m.Kind,
			Recipient:     m.To,
			Subject:       m.Subject,
			Body:          m.HTML,
			Status:        models.OutboxPending,
			MaxAttempts:   o.MaxAttempts,
			NextAttemptAt: now,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	if err := db.Create(&rows).Error; err != nil {
		return fmt.Errorf("enqueue notifications: %w", err)
	}

	// Delivered at commit when db is a transaction.
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("SELECT pg_notify(?, '')", Channel).Error; err != nil {
			return fmt.Errorf("notify outbox: %w", err)
		}
	}
	return nil
}

// OrderPlaced renders the customer receipt and, when an admin address is
// configured, the admin alert.
func (o *Outbox) OrderPlaced(user models.User, order models.Order) ([]Message, error) {
	receipt, err := OrderReceipt(user, order)
	if err != nil {
		return nil, err
	}
	msgs := []Message{receipt}
	if o.AdminEmail != "" {
		alert, err := AdminOrderAlert(o.AdminEmail, user, order)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, alert)
	}
	return msgs, nil
}

func (o *Outbox) NewsletterSubscribed(email string) ([]Message, error) {
	welcome, err := NewsletterWelcome(email)
	if err != nil {
		return nil, err
	}
	msgs := []Message{welcome}
	if o.AdminEmail != "" {
		alert, err := AdminNewsletterAlert(o.AdminEmail, email)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, alert)
	}
	return msgs, nil
}
