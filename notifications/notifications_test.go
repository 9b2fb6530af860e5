package notifications

import (
	"testing"
	"time"

	"github.com/DelightGeorge/Ikeya-Backend/database/dbtest"
	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNaira(t *testing.T) {
	assert.Equal(t, "₦15,500.00", Naira(1550000))
	assert.Equal(t, "₦0.05", Naira(5))
	assert.Equal(t, "₦1,000,000.00", Naira(100000000))
	assert.Equal(t, "-₦2.50", Naira(-250))
}

func TestOrderReceiptRendersSnapshot(t *testing.T) {
	user := models.User{Name: "Ada", Email: "ada@example.com"}
	order := models.Order{
		Reference:   "20261019120000-abc",
		TotalAmount: 1550000,
		DeliveryFee: 250000,
		Address:     "1 Marina, Lagos",
		Phone:       "08012345678",
		Items: []models.OrderItem{
			{Name: "Agbada", Price: 500000, Quantity: 2},
			{Name: "Fila", Price: 300000, Quantity: 1},
		},
	}

	msg, err := OrderReceipt(user, order)
	require.NoError(t, err)
	assert.Equal(t, KindOrderReceipt, msg.Kind)
	assert.Equal(t, "ada@example.com", msg.To)
	assert.Contains(t, msg.Subject, order.Reference)
	assert.Contains(t, msg.HTML, "Agbada")
	assert.Contains(t, msg.HTML, "₦10,000.00")
	assert.Contains(t, msg.HTML, "₦15,500.00")
}

func TestLinksAreEscaped(t *testing.T) {
	msg, err := PasswordReset("ada@example.com", "https://ikeya.shop/reset-password?token=a.b.c", 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "https://ikeya.shop/reset-password?token=a.b.c")
	assert.Contains(t, msg.HTML, "15 minutes")

	msg, err = Welcome(models.User{Name: "<script>", Email: "x@example.com"})
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<script>")
}

func TestEnqueueWritesPendingRows(t *testing.T) {
	db := dbtest.New(t)
	outbox := NewOutbox("admin@ikeya.shop", 3)

	msgs, err := outbox.NewsletterSubscribed("fan@example.com")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.NoError(t, outbox.Enqueue(db, msgs...))

	var rows []models.OutboxMessage
	require.NoError(t, db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, "fan@example.com", rows[0].Recipient)
	assert.Equal(t, "admin@ikeya.shop", rows[1].Recipient)
	for _, row := range rows {
		assert.Equal(t, models.OutboxPending, row.Status)
		assert.Equal(t, 3, row.MaxAttempts)
		assert.Zero(t, row.Attempts)
	}
}

func TestAdminAlertsSkippedWithoutAdminEmail(t *testing.T) {
	msgs, err := NewOutbox("", 5).OrderPlaced(models.User{Email: "ada@example.com"}, models.Order{Reference: "r"})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, KindOrderReceipt, msgs[0].Kind)
}

func TestEnvelopeAddress(t *testing.T) {
	assert.Equal(t, "support@ikeya.shop", envelopeAddress("Ikeyà Support <support@ikeya.shop>"))
	assert.Equal(t, "support@ikeya.shop", envelopeAddress("support@ikeya.shop"))
}
