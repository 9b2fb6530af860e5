package routes

import (
	cartControllers "github.com/DelightGeorge/Ikeya-Backend/controllers/cart"
	productcontroller "github.com/DelightGeorge/Ikeya-Backend/controllers/product"
	userControllers "github.com/DelightGeorge/Ikeya-Backend/controllers/user"
	"github.com/DelightGeorge/Ikeya-Backend/middleware"
	"github.com/gin-gonic/gin"
)

// SetupUserRoutes registers endpoints for any signed-in user.
func SetupUserRoutes(r *gin.Engine, deps Dependencies) {
	db := deps.DB
	requireAuth := middleware.RequireAuth(deps.Issuer, db)

	r.GET("/users/profile", requireAuth, userControllers.GetProfile(db))

	// ──────────────── Shopping Cart ────────────────
	cart := r.Group("/cart", requireAuth)
	{
		cart.GET("", cartControllers.GetCartHandler(db))
		cart.POST("", cartControllers.AddToCartHandler(db))
		cart.DELETE("", cartControllers.ClearCartHandler(db))
		cart.PATCH("/:id", cartControllers.UpdateCartItemHandler(db))
		cart.DELETE("/:id", cartControllers.RemoveCartItemHandler(db))
	}

	// ──────────────── Categories ────────────────
	r.GET("/categories", productcontroller.GetCategories(db))
	r.POST("/categories", requireAuth, productcontroller.AddCategory(db))
}
