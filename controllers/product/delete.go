package productcontroller

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/DelightGeorge/Ikeya-Backend/storage"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var ErrProductNotFound = errors.New("product not found")

// DeleteProduct removes the product together with every order and cart
// line pointing at it, in one transaction.
func DeleteProduct(db *gorm.DB, id uint) (models.Product, error) {
	var product models.Product
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, id).Error
	})
	return product, err
}

// DELETE /products/:id (admin)
func DeleteProductHandler(db *gorm.DB, store storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseProductID(c)
		if !ok {
			return
		}

		product, err := DeleteProduct(db.WithContext(c.Request.Context()), id)
		if err != nil {
			if errors.Is(err, ErrProductNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
			return
		}

		if err := store.Delete(c.Request.Context(), product.ImageURL); err != nil {
			slog.Warn("Failed to remove product image", "product", product.ID, "url", product.ImageURL, "error", err)
		}

		c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
	}
}
