package orderControllers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DelightGeorge/Ikeya-Backend/middleware"
	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/DelightGeorge/Ikeya-Backend/notifications"
	"github.com/DelightGeorge/Ikeya-Backend/realtime"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrMissingDelivery = errors.New("address and phone are required")
	ErrOrderNotFound   = errors.New("order not found")
	ErrInvalidStatus   = errors.New("invalid order status")
	ErrReferenceInUse  = errors.New("payment reference is already attached to an order")
)

// Publisher receives order events after they commit.
type Publisher interface {
	Publish(eventType string, data any)
}

// Deps are the collaborators order placement needs besides the database.
type Deps struct {
	Outbox      *notifications.Outbox
	Events      Publisher
	DeliveryFee int64
}

// -------- Request Structs --------
type CreateOrderRequest struct {
	Address           string `json:"address"`
	Phone             string `json:"phone"`
	PaystackReference string `json:"paystackReference"`
	DeliveryFee       int64  `json:"deliveryFee"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// -------- Helpers --------

// ParseStatus accepts any casing of the five order statuses.
func ParseStatus(status string) (models.OrderStatus, error) {
	s := models.OrderStatus(strings.ToUpper(strings.TrimSpace(status)))
	for _, known := range models.OrderStatuses {
		if s == known {
			return s, nil
		}
	}
	return "", ErrInvalidStatus
}

// Example: 20261019130500-<uuid4>
func generateOrderRef() string {
	return time.Now().Format("20060102150405") + "-" + uuid.NewString()
}

// -------- Core Logic --------

// CreateOrder turns the user's cart into an order. Order, items, cart
// clearing and queued notifications commit together or not at all; on
// Postgres the cart row is locked so concurrent checkouts of one cart
// serialize and the second sees an empty cart.
func CreateOrder(db *gorm.DB, deps Deps, userID uint, req CreateOrderRequest) (models.Order, error) {
	var order models.Order
	req.Address = strings.TrimSpace(req.Address)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Address == "" || req.Phone == "" {
		return order, ErrMissingDelivery
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		cartQuery := tx.Where("user_id = ?", userID)
		if tx.Dialector.Name() == "postgres" {
			cartQuery = cartQuery.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var cart models.Cart
		if err := cartQuery.First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEmptyCart
			}
			return err
		}

		var items []models.CartItem
		if err := tx.Preload("Product").Where("cart_id = ?", cart.ID).Order("id").Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		var subtotal int64
		orderItems := make([]models.OrderItem, 0, len(items))
		for _, item := range items {
			if item.Product == nil {
				return fmt.Errorf("cart item %d references a missing product", item.ID)
			}
			subtotal += item.Product.Price * int64(item.Quantity)
			orderItems = append(orderItems, models.OrderItem{
				ProductID: item.ProductID,
				Name:      item.Product.Name,
				Price:     item.Product.Price,
				Quantity:  item.Quantity,
			})
		}

		fee := req.DeliveryFee
		if fee <= 0 {
			fee = deps.DeliveryFee
		}

		paystackRef := strings.TrimSpace(req.PaystackReference)
		if paystackRef != "" {
			var taken int64
			if err := tx.Model(&models.Order{}).Where("paystack_reference = ?", paystackRef).Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				return ErrReferenceInUse
			}
		}

		order = models.Order{
			Reference:         generateOrderRef(),
			UserID:            userID,
			Items:             orderItems,
			TotalAmount:       subtotal + fee,
			DeliveryFee:       fee,
			Address:           req.Address,
			Phone:             req.Phone,
			Status:            models.OrderStatusPending,
			PaystackReference: paystackRef,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		return enqueueOrderPlaced(tx, deps, userID, order)
	})
	if err != nil {
		return models.Order{}, err
	}

	if deps.Events != nil {
		deps.Events.Publish(realtime.EventOrderCreated, order)
	}
	return order, nil
}

func enqueueOrderPlaced(tx *gorm.DB, deps Deps, userID uint, order models.Order) error {
	if deps.Outbox == nil {
		return nil
	}
	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		return err
	}
	msgs, err := deps.Outbox.OrderPlaced(user, order)
	if err != nil {
		// A template problem must not cost the customer their order.
		slog.Error("Failed to render order emails", "order", order.Reference, "error", err)
		return nil
	}
	return deps.Outbox.Enqueue(tx, msgs...)
}

func preloadOrder(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("order_items.id") }).
		Preload("Items.Product")
}

func GetOrders(db *gorm.DB, userID uint) ([]models.Order, error) {
	orders := []models.Order{}
	err := preloadOrder(db).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	return orders, err
}

// GetOrder returns the order when userID owns it or asAdmin is set.
// Anything else is reported as not found.
func GetOrder(db *gorm.DB, userID uint, asAdmin bool, orderID uint) (models.Order, error) {
	var order models.Order
	q := preloadOrder(db).Where("id = ?", orderID)
	if asAdmin {
		q = q.Preload("User")
	} else {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return order, ErrOrderNotFound
		}
		return order, err
	}
	return order, nil
}

func GetAllOrders(db *gorm.DB) ([]models.Order, error) {
	orders := []models.Order{}
	err := preloadOrder(db).
		Preload("User").
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	return orders, err
}

func UpdateOrderStatus(db *gorm.DB, orderID uint, status string) (models.Order, error) {
	var order models.Order
	newStatus, err := ParseStatus(status)
	if err != nil {
		return order, err
	}

	res := db.Model(&models.Order{}).Where("id = ?", orderID).Update("status", newStatus)
	if res.Error != nil {
		return order, res.Error
	}
	if res.RowsAffected == 0 {
		return order, ErrOrderNotFound
	}
	return GetOrder(db, 0, true, orderID)
}

// MarkPaid moves the PENDING order carrying paystackRef to PROCESSING when
// amount, the kobo Paystack reports as charged, equals the order total.
// It reports false when no pending order matched.
func MarkPaid(db *gorm.DB, paystackRef string, amount int64) (bool, error) {
	if paystackRef == "" {
		return false, nil
	}
	res := db.Model(&models.Order{}).
		Where("paystack_reference = ? AND status = ? AND total_amount = ?", paystackRef, models.OrderStatusPending, amount).
		Update("status", models.OrderStatusProcessing)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var order models.Order
	err := db.Where("paystack_reference = ? AND status = ?", paystackRef, models.OrderStatusPending).First(&order).Error
	if err == nil {
		slog.Warn("Paystack amount does not match order total", "order", order.Reference, "reference", paystackRef, "paid", amount, "total", order.TotalAmount)
	}
	return false, nil
}

// -------- Handlers --------

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
	case errors.Is(err, ErrMissingDelivery), errors.Is(err, ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, ErrReferenceInUse):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func orderIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return 0, false
	}
	return uint(id), true
}

// POST /orders
func CreateOrderHandler(db *gorm.DB, deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		order, err := CreateOrder(db.WithContext(c.Request.Context()), deps, userID, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

// GET /orders
func GetOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		orders, err := GetOrders(db.WithContext(c.Request.Context()), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// GET /orders/:id
func GetOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}
		order, err := GetOrder(db.WithContext(c.Request.Context()), userID, middleware.IsAdmin(c), orderID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// GET /orders/all (admin)
func GetAllOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := GetAllOrders(db.WithContext(c.Request.Context()))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// PATCH /orders/:id/status (admin)
func UpdateOrderStatusHandler(db *gorm.DB, events Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}
		var req UpdateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		order, err := UpdateOrderStatus(db.WithContext(c.Request.Context()), orderID, req.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		if events != nil {
			events.Publish(realtime.EventOrderUpdated, order)
		}
		c.JSON(http.StatusOK, order)
	}
}
