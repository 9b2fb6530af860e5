package cartControllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/DelightGeorge/Ikeya-Backend/middleware"
	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrProductNotFound = errors.New("product does not exist")
	ErrItemNotFound    = errors.New("cart item not found")
	ErrForbidden       = errors.New("cart item belongs to another user")
)

type AddToCartInput struct {
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
}

type UpdateCartItemInput struct {
	Quantity int `json:"quantity"`
}

// -------- Core Logic --------

// GetCart returns the user's items with products joined. A user without a
// cart gets an empty slice; no cart is created.
func GetCart(db *gorm.DB, userID uint) ([]models.CartItem, error) {
	var cart models.Cart
	err := db.Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("cart_items.id") }).
		Preload("Items.Product").
		Where("user_id = ?", userID).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []models.CartItem{}, nil
	}
	if err != nil {
		return nil, err
	}
	if cart.Items == nil {
		return []models.CartItem{}, nil
	}
	return cart.Items, nil
}

// findOrCreateCart relies on the unique user_id index so concurrent first
// adds end up sharing one cart.
func findOrCreateCart(tx *gorm.DB, userID uint) (models.Cart, error) {
	cart := models.Cart{UserID: userID}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&cart).Error; err != nil {
		return cart, err
	}
	if err := tx.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return cart, err
	}
	return cart, nil
}

// AddToCart adds quantity of a product, incrementing an existing line.
// created reports whether a new line was inserted.
func AddToCart(db *gorm.DB, userID, productID uint, quantity int) (item models.CartItem, created bool, err error) {
	if productID == 0 || quantity < 1 {
		return item, false, ErrInvalidQuantity
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		cart, err := findOrCreateCart(tx, userID)
		if err != nil {
			return fmt.Errorf("find or create cart: %w", err)
		}

		res := tx.Model(&models.CartItem{}).
			Where("cart_id = ? AND product_id = ?", cart.ID, productID).
			Update("quantity", gorm.Expr("quantity + ?", quantity))
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			item = models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: quantity}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{"quantity": gorm.Expr("cart_items.quantity + ?", quantity)}),
			}).Create(&item).Error; err != nil {
				return err
			}
			created = true
		}

		return tx.Preload("Product").
			Where("cart_id = ? AND product_id = ?", cart.ID, productID).
			First(&item).Error
	})
	return item, created, err
}

// ownedItem loads an item and checks that its cart belongs to userID.
func ownedItem(tx *gorm.DB, userID, itemID uint) (models.CartItem, error) {
	var item models.CartItem
	if err := tx.Preload("Cart").First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return item, ErrItemNotFound
		}
		return item, err
	}
	if item.Cart == nil || item.Cart.UserID != userID {
		return item, ErrForbidden
	}
	return item, nil
}

func UpdateCartItem(db *gorm.DB, userID, itemID uint, quantity int) (models.CartItem, error) {
	if quantity < 1 {
		return models.CartItem{}, ErrInvalidQuantity
	}

	var item models.CartItem
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		if item, err = ownedItem(tx, userID, itemID); err != nil {
			return err
		}
		if err := tx.Model(&item).Update("quantity", quantity).Error; err != nil {
			return err
		}
		return tx.Preload("Product").First(&item, item.ID).Error
	})
	return item, err
}

func RemoveCartItem(db *gorm.DB, userID, itemID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		item, err := ownedItem(tx, userID, itemID)
		if err != nil {
			return err
		}
		return tx.Delete(&models.CartItem{}, item.ID).Error
	})
}

// ClearCart deletes every item but keeps the cart row.
func ClearCart(db *gorm.DB, userID uint) error {
	return db.Where("cart_id IN (?)", db.Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)).
		Delete(&models.CartItem{}).Error
}

// -------- Handlers --------

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId and a quantity of at least 1 are required"})
	case errors.Is(err, ErrProductNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Product does not exist"})
	case errors.Is(err, ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You cannot modify another user's cart"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func itemIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cart item id"})
		return 0, false
	}
	return uint(id), true
}

// GET /cart
func GetCartHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		items, err := GetCart(db.WithContext(c.Request.Context()), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// POST /cart
func AddToCartHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var input AddToCartInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		item, created, err := AddToCart(db.WithContext(c.Request.Context()), userID, input.ProductID, input.Quantity)
		if err != nil {
			respondError(c, err)
			return
		}
		if created {
			c.JSON(http.StatusCreated, item)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

// PATCH /cart/:id
func UpdateCartItemHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		itemID, ok := itemIDParam(c)
		if !ok {
			return
		}

		var input UpdateCartItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		item, err := UpdateCartItem(db.WithContext(c.Request.Context()), userID, itemID, input.Quantity)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

// DELETE /cart/:id
func RemoveCartItemHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		itemID, ok := itemIDParam(c)
		if !ok {
			return
		}

		if err := RemoveCartItem(db.WithContext(c.Request.Context()), userID, itemID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
	}
}

// DELETE /cart
func ClearCartHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if err := ClearCart(db.WithContext(c.Request.Context()), userID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
	}
}

// GET /users/users/:id/cart (admin)
func GetUserCartAdminHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		items, err := GetCart(db.WithContext(c.Request.Context()), uint(id))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}
