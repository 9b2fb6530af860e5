package routes

import (
	cartControllers "github.com/DelightGeorge/Ikeya-Backend/controllers/cart"
	orderControllers "github.com/DelightGeorge/Ikeya-Backend/controllers/order"
	productcontroller "github.com/DelightGeorge/Ikeya-Backend/controllers/product"
	userControllers "github.com/DelightGeorge/Ikeya-Backend/controllers/user"
	"github.com/DelightGeorge/Ikeya-Backend/middleware"
	"github.com/gin-gonic/gin"
)

// SetupAdminRoutes registers every endpoint that needs the ADMIN role.
func SetupAdminRoutes(r *gin.Engine, deps Dependencies) {
	db := deps.DB
	admin := []gin.HandlerFunc{middleware.RequireAuth(deps.Issuer, db), middleware.RequireAdmin()}

	// ─────────── User Management ───────────
	users := r.Group("/users/users", admin...)
	{
		users.GET("", userControllers.GetAllUsers(db))
		users.GET("/:id", userControllers.GetUser(db))
		users.DELETE("/:id", userControllers.DeleteUserHandler(db))
		users.PUT("/:id/role", userControllers.UpdateUserRole(db))
		users.GET("/:id/cart", cartControllers.GetUserCartAdminHandler(db))
	}

	// ─────────── Product Management ───────────
	products := r.Group("/products", admin...)
	{
		products.POST("/add", productcontroller.AddProduct(db, deps.Store))
		products.PUT("/:id", productcontroller.UpdateProduct(db, deps.Store))
		products.DELETE("/:id", productcontroller.DeleteProductHandler(db, deps.Store))
		products.GET("/export", productcontroller.ExportProductsToExcel(db))
		products.POST("/import", productcontroller.ImportProductsFromExcel(db))
	}

	// ─────────── Order Management ───────────
	orders := r.Group("/orders", admin...)
	{
		orders.GET("/all", orderControllers.GetAllOrdersHandler(db))
		orders.PATCH("/:id/status", orderControllers.UpdateOrderStatusHandler(db, deps.publisher()))
		if deps.Hub != nil {
			orders.GET("/ws", deps.Hub.ServeWS)
		}
	}
}
