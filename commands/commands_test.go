package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/DelightGeorge/Ikeya-Backend/config"
	"github.com/DelightGeorge/Ikeya-Backend/database/dbtest"
	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/DelightGeorge/Ikeya-Backend/notifications"
	"github.com/DelightGeorge/Ikeya-Backend/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureAdminCreates(t *testing.T) {
	db := dbtest.New(t)

	user, promoted, err := ensureAdmin(db, "Ops", "Ops@Ikeya.shop", "s3cret!!")
	require.NoError(t, err)
	assert.False(t, promoted)
	assert.Equal(t, "ops@ikeya.shop", user.Email)
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestEnsureAdminPromotes(t *testing.T) {
	db := dbtest.New(t)
	existing := dbtest.CreateUser(t, db, "ada@example.com", models.RoleUser)

	user, promoted, err := ensureAdmin(db, "", "ada@example.com", "")
	require.NoError(t, err)
	assert.True(t, promoted)
	assert.Equal(t, existing.ID, user.ID)

	var stored models.User
	require.NoError(t, db.First(&stored, existing.ID).Error)
	assert.Equal(t, models.RoleAdmin, stored.Role)
}

func TestEnsureAdminRequiresPasswordForNewAccount(t *testing.T) {
	db := dbtest.New(t)
	_, _, err := ensureAdmin(db, "Ops", "ops@ikeya.shop", "")
	assert.Error(t, err)
}

func TestNewSender(t *testing.T) {
	assert.IsType(t, &notifications.ResendSender{}, newSender(config.MailConfig{ResendAPIKey: "re_123", From: "a@b.c"}))
	assert.IsType(t, &notifications.SMTPSender{}, newSender(config.MailConfig{SMTPHost: "smtp.example.com", SMTPPort: "587"}))
	assert.IsType(t, notifications.LogSender{}, newSender(config.MailConfig{}))
}

func TestNewStoreDefaultsToLocal(t *testing.T) {
	cfg := &config.Config{Port: "5000", UploadsDir: t.TempDir()}
	store, err := newStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStore{}, store)
}

func TestStatusIcon(t *testing.T) {
	var buf bytes.Buffer
	success(&buf, "done %d", 1)
	assert.Contains(t, buf.String(), "done 1")
	assert.NotEqual(t, statusIcon("SENT"), statusIcon("FAILED"))
}
