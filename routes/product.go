package routes

import (
	productcontroller "github.com/DelightGeorge/Ikeya-Backend/controllers/product"
	"github.com/gin-gonic/gin"
)

// SetupProductRoutes registers the public catalog.
func SetupProductRoutes(r *gin.Engine, deps Dependencies) {
	db := deps.DB
	products := r.Group("/products")
	{
		products.GET("", productcontroller.GetProducts(db))
		products.GET("/recentProducts", productcontroller.GetRecentProducts(db))
		products.GET("/type/:type", productcontroller.GetProductsByType(db))
		products.GET("/:id", productcontroller.GetProduct(db))
	}
}
