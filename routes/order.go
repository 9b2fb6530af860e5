package routes

import (
	orderControllers "github.com/DelightGeorge/Ikeya-Backend/controllers/order"
	paymentControllers "github.com/DelightGeorge/Ikeya-Backend/controllers/payment"
	"github.com/DelightGeorge/Ikeya-Backend/middleware"
	"github.com/gin-gonic/gin"
)

func (d Dependencies) publisher() orderControllers.Publisher {
	if d.Hub == nil {
		return nil
	}
	return d.Hub
}

func SetupOrderRoutes(r *gin.Engine, deps Dependencies) {
	db := deps.DB
	requireAuth := middleware.RequireAuth(deps.Issuer, db)
	orderDeps := orderControllers.Deps{
		Outbox:      deps.Outbox,
		Events:      deps.publisher(),
		DeliveryFee: deps.Config.DeliveryFee,
	}

	orders := r.Group("/orders", requireAuth)
	{
		orders.POST("", orderControllers.CreateOrderHandler(db, orderDeps))
		orders.GET("", orderControllers.GetOrdersHandler(db))
		orders.GET("/:id", orderControllers.GetOrderHandler(db))
	}

	payments := r.Group("/payments")
	{
		payments.POST("/initialize", requireAuth, paymentControllers.InitializePayment(db, deps.Payments))
		payments.GET("/verify/:reference", requireAuth, paymentControllers.VerifyPayment(db, deps.Payments))
		payments.POST("/webhook",
			middleware.PaystackWebhookAuth(deps.Config.PaystackSecret),
			paymentControllers.Webhook(db, deps.publisher()))
	}
}
