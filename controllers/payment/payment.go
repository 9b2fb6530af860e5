package paymentControllers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	orderControllers "github.com/DelightGeorge/Ikeya-Backend/controllers/order"
	"github.com/DelightGeorge/Ikeya-Backend/middleware"
	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/DelightGeorge/Ikeya-Backend/payments/paystack"
	"github.com/DelightGeorge/Ikeya-Backend/realtime"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Gateway is the subset of the Paystack client the handlers call.
type Gateway interface {
	Initialize(ctx context.Context, email string, amount int64) (*paystack.Response, error)
	Verify(ctx context.Context, reference string) (*paystack.Response, error)
}

var ErrOrderNotPayable = errors.New("order is not awaiting payment")

// InitializeRequest carries an amount in kobo, or an order whose total is
// charged instead.
type InitializeRequest struct {
	Email   string `json:"email"`
	Amount  int64  `json:"amount"`
	OrderID uint   `json:"orderId"`
}

func respondGatewayError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, paystack.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, paystack.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("Paystack request failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

// payableOrder loads a PENDING order owned by userID.
func payableOrder(db *gorm.DB, userID, orderID uint) (models.Order, error) {
	order, err := orderControllers.GetOrder(db, userID, false, orderID)
	if err != nil {
		return order, err
	}
	if order.Status != models.OrderStatusPending {
		return order, ErrOrderNotPayable
	}
	return order, nil
}

// POST /payments/initialize
func InitializePayment(db *gorm.DB, gateway Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req InitializeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx := c.Request.Context()
		db := db.WithContext(ctx)

		if req.Email == "" {
			if claims, ok := middleware.ClaimsFrom(c); ok {
				req.Email = claims.Email
			}
		}
		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
			return
		}

		var order models.Order
		if req.OrderID != 0 {
			userID, _ := middleware.UserID(c)
			var err error
			order, err = payableOrder(db, userID, req.OrderID)
			switch {
			case errors.Is(err, orderControllers.ErrOrderNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
				return
			case errors.Is(err, ErrOrderNotPayable):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			case err != nil:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			req.Amount = order.TotalAmount
		}

		resp, err := gateway.Initialize(ctx, req.Email, req.Amount)
		if err != nil {
			respondGatewayError(c, err)
			return
		}

		if order.ID != 0 && resp.Status {
			if ref := resp.Reference(); ref != "" {
				if err := db.Model(&order).Update("paystack_reference", ref).Error; err != nil {
					slog.Error("Failed to attach Paystack reference", "order", order.Reference, "error", err)
				}
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GET /payments/verify/:reference
func VerifyPayment(db *gorm.DB, gateway Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		reference := c.Param("reference")
		resp, err := gateway.Verify(c.Request.Context(), reference)
		if err != nil {
			respondGatewayError(c, err)
			return
		}

		if amount, ok := successfulCharge(resp.Data); resp.Status && ok {
			if _, err := orderControllers.MarkPaid(db.WithContext(c.Request.Context()), reference, amount); err != nil {
				slog.Error("Failed to mark order paid", "reference", reference, "error", err)
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

// successfulCharge reports the kobo amount of a verified transaction whose
// status is "success".
func successfulCharge(data json.RawMessage) (int64, bool) {
	var tx struct {
		Status string `json:"status"`
		Amount int64  `json:"amount"`
	}
	if len(data) == 0 || json.Unmarshal(data, &tx) != nil || tx.Status != "success" {
		return 0, false
	}
	return tx.Amount, true
}

// POST /payments/webhook, behind middleware.PaystackWebhookAuth.
func Webhook(db *gorm.DB, events orderControllers.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, _ := c.Get(middleware.ContextRawBody)
		body, _ := raw.([]byte)

		event, err := paystack.ParseEvent(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload"})
			return
		}
		if event.Event != paystack.EventChargeSuccess {
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}

		db := db.WithContext(c.Request.Context())
		updated, err := orderControllers.MarkPaid(db, event.Data.Reference, event.Data.Amount)
		if err != nil {
			// Non-2xx makes Paystack retry the delivery.
			slog.Error("Webhook failed to mark order paid", "reference", event.Data.Reference, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		slog.Info("Paystack charge.success", "reference", event.Data.Reference, "amount", event.Data.Amount, "updated", updated)

		if updated && events != nil {
			var order models.Order
			if err := db.Where("paystack_reference = ?", event.Data.Reference).First(&order).Error; err == nil {
				events.Publish(realtime.EventOrderUpdated, order)
			}
		}
		c.JSON(http.StatusOK, gin.H{"received": true, "updated": updated})
	}
}
