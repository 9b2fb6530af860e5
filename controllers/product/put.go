package productcontroller

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/DelightGeorge/Ikeya-Backend/storage"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PUT /products/:id (admin, multipart). Every field is optional; a new
// image replaces and removes the old one.
func UpdateProduct(db *gorm.DB, store storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseProductID(c)
		if !ok {
			return
		}

		var product models.Product
		if err := db.WithContext(c.Request.Context()).First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if v := strings.TrimSpace(c.PostForm("name")); v != "" {
			product.Name = v
		}
		if v, ok := c.GetPostForm("description"); ok {
			product.Description = strings.TrimSpace(v)
		}
		if v := c.PostForm("price"); v != "" {
			price, err := ParsePrice(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			product.Price = price
		}
		if v := strings.TrimSpace(c.PostForm("type")); v != "" {
			product.Type = v
		}
		categoryName := strings.TrimSpace(c.PostForm("category"))

		oldImage := product.ImageURL
		if _, err := c.FormFile("image"); err == nil {
			url, err := saveUpload(c, store)
			if err != nil {
				if errors.Is(err, storage.ErrUnsupportedImage) {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to save image: %v", err)})
				return
			}
			product.ImageURL = url
		}

		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if categoryName != "" {
				category, _, err := UpsertCategory(tx, categoryName, product.Type)
				if err != nil {
					return err
				}
				product.CategoryID = category.ID
			}
			return tx.Omit("Category").Save(&product).Error
		})
		if err != nil {
			if product.ImageURL != oldImage {
				store.Delete(c.Request.Context(), product.ImageURL)
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
			return
		}

		if product.ImageURL != oldImage {
			if err := store.Delete(c.Request.Context(), oldImage); err != nil {
				slog.Warn("Failed to remove replaced image", "url", oldImage, "error", err)
			}
		}

		db.WithContext(c.Request.Context()).Preload("Category").First(&product, product.ID)
		c.JSON(http.StatusOK, product)
	}
}
