package productcontroller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrCategoryRequired = errors.New("category name is required")

type CategoryInput struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// UpsertCategory returns the category called name, creating it when
// missing. created reports whether this call inserted the row. The unique
// index on name makes concurrent calls converge on one row.
func UpsertCategory(db *gorm.DB, name, categoryType string) (category models.Category, created bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return category, false, ErrCategoryRequired
	}
	categoryType = strings.TrimSpace(categoryType)
	if categoryType == "" {
		categoryType = name
	}

	category = models.Category{Name: name, Type: categoryType}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&category)
	if res.Error != nil {
		return category, false, res.Error
	}

	var stored models.Category
	if err := db.Where("name = ?", name).First(&stored).Error; err != nil {
		return stored, false, err
	}
	return stored, res.RowsAffected > 0, nil
}

func ListCategories(db *gorm.DB) ([]models.Category, error) {
	categories := []models.Category{}
	return categories, db.Order("name ASC").Find(&categories).Error
}

// GET /categories
func GetCategories(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := ListCategories(db.WithContext(c.Request.Context()))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
			return
		}
		c.JSON(http.StatusOK, categories)
	}
}

// POST /categories
func AddCategory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CategoryInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		category, created, err := UpsertCategory(db.WithContext(c.Request.Context()), input.Name, input.Type)
		if err != nil {
			if errors.Is(err, ErrCategoryRequired) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create category"})
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, category)
	}
}
