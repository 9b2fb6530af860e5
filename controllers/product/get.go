package productcontroller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const recentProductsLimit = 5

// ListProducts returns every product with its category. A non-empty search
// matches name, description or category name case-insensitively and sorts
// newest first; otherwise products come back in insertion order.
func ListProducts(db *gorm.DB, search string) ([]models.Product, error) {
	products := []models.Product{}
	q := db.Preload("Category")

	search = strings.TrimSpace(search)
	if search == "" {
		return products, q.Order("products.id ASC").Find(&products).Error
	}

	pattern := "%" + strings.ToLower(search) + "%"
	err := q.Select("products.*").
		Joins("LEFT JOIN categories ON categories.id = products.category_id").
		Where("LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ? OR LOWER(categories.name) LIKE ?",
			pattern, pattern, pattern).
		Order("products.created_at DESC, products.id DESC").
		Find(&products).Error
	return products, err
}

func RecentProducts(db *gorm.DB) ([]models.Product, error) {
	products := []models.Product{}
	err := db.Preload("Category").
		Order("created_at DESC, id DESC").
		Limit(recentProductsLimit).
		Find(&products).Error
	return products, err
}

func ProductsByType(db *gorm.DB, productType string) ([]models.Product, error) {
	products := []models.Product{}
	err := db.Preload("Category").
		Where("type = ?", productType).
		Order("id ASC").
		Find(&products).Error
	return products, err
}

func parseProductID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return 0, false
	}
	return uint(id), true
}

// GET /products?search=
func GetProducts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := ListProducts(db.WithContext(c.Request.Context()), c.Query("search"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

// GET /products/recentProducts
func GetRecentProducts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := RecentProducts(db.WithContext(c.Request.Context()))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": products})
	}
}

// GET /products/type/:type
func GetProductsByType(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := ProductsByType(db.WithContext(c.Request.Context()), c.Param("type"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

// GET /products/:id
func GetProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseProductID(c)
		if !ok {
			return
		}

		var product models.Product
		if err := db.WithContext(c.Request.Context()).Preload("Category").First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, product)
	}
}
