// Package dbtest provides throwaway migrated databases for tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/DelightGeorge/Ikeya-Backend/database"
	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns an in-memory SQLite database private to t, fully migrated.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, email string, role models.Role) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{Name: strings.Split(email, "@")[0], Email: email, Password: string(hash), Role: role}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func CreateProduct(t *testing.T, db *gorm.DB, name string, price int64) models.Product {
	t.Helper()

	category := models.Category{Name: "General", Type: "general"}
	require.NoError(t, db.Where(models.Category{Name: "General"}).FirstOrCreate(&category).Error)

	product := models.Product{
		Name:        name,
		Description: name + " description",
		Price:       price,
		ImageURL:    "/uploads/" + strings.ToLower(strings.ReplaceAll(name, " ", "-")) + ".jpg",
		Type:        "general",
		CategoryID:  category.ID,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}
