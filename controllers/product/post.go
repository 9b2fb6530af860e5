package productcontroller

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/DelightGeorge/Ikeya-Backend/storage"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrInvalidPrice = errors.New("price must be a non-negative number")

// ParsePrice converts a major-unit decimal string ("5000", "49.99") into
// minor units, rounding half away from zero at the second decimal.
func ParsePrice(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return 0, ErrInvalidPrice
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

// FormatPrice is the inverse of ParsePrice: 500000 -> "5000.00".
func FormatPrice(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// saveUpload runs the multipart "image" field through the resize pipeline
// and stores it.
func saveUpload(c *gin.Context, store storage.Store) (string, error) {
	header, err := c.FormFile("image")
	if err != nil {
		return "", err
	}
	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	name, data, err := storage.PrepareImage(file)
	if err != nil {
		return "", err
	}
	return store.Save(c.Request.Context(), name, "image/jpeg", bytes.NewReader(data))
}

// POST /products/add (admin, multipart)
func AddProduct(db *gorm.DB, store storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimSpace(c.PostForm("name"))
		description := strings.TrimSpace(c.PostForm("description"))
		categoryName := strings.TrimSpace(c.PostForm("category"))
		productType := strings.TrimSpace(c.PostForm("type"))

		if name == "" || categoryName == "" || c.PostForm("price") == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name, price and category are required"})
			return
		}
		price, err := ParsePrice(c.PostForm("price"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if _, err := c.FormFile("image"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided"})
			return
		}
		if productType == "" {
			productType = categoryName
		}

		imageURL, err := saveUpload(c, store)
		if err != nil {
			if errors.Is(err, storage.ErrUnsupportedImage) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to save image: %v", err)})
			return
		}

		product := models.Product{
			Name:        name,
			Description: description,
			Price:       price,
			ImageURL:    imageURL,
			Type:        productType,
		}
		err = db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			category, _, err := UpsertCategory(tx, categoryName, productType)
			if err != nil {
				return err
			}
			product.CategoryID = category.ID
			product.Category = &category
			return tx.Omit("Category").Create(&product).Error
		})
		if err != nil {
			if delErr := store.Delete(c.Request.Context(), imageURL); delErr != nil {
				slog.Warn("Failed to remove orphaned image", "url", imageURL, "error", delErr)
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, product)
	}
}
