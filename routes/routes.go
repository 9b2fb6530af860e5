package routes

import (
	"net/http"
	"time"

	"github.com/DelightGeorge/Ikeya-Backend/auth"
	"github.com/DelightGeorge/Ikeya-Backend/config"
	paymentControllers "github.com/DelightGeorge/Ikeya-Backend/controllers/payment"
	"github.com/DelightGeorge/Ikeya-Backend/middleware"
	"github.com/DelightGeorge/Ikeya-Backend/notifications"
	"github.com/DelightGeorge/Ikeya-Backend/realtime"
	"github.com/DelightGeorge/Ikeya-Backend/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies is everything the route groups hand to their controllers.
type Dependencies struct {
	DB       *gorm.DB
	Config   *config.Config
	Issuer   *auth.Issuer
	Outbox   *notifications.Outbox
	Google   auth.GoogleVerifier
	Store    storage.Store
	Payments paymentControllers.Gateway
	Hub      *realtime.Hub
	// Limiter guards login, forgot-password and newsletter. Nil disables it.
	Limiter *middleware.RateLimiter
}

func (d Dependencies) rateLimit() gin.HandlerFunc {
	if d.Limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return d.Limiter.Middleware()
}

// NewRouter builds the gin engine with CORS, logging and every route group.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	// Product images
	r.MaxMultipartMemory = 32 << 20

	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.Config.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if _, ok := deps.Store.(*storage.LocalStore); ok {
		r.Static("/uploads", deps.Config.UploadsDir)
	}

	SetupRoutes(r, deps)
	return r
}

// SetupRoutes is the single entry-point that wires up every route group.
func SetupRoutes(r *gin.Engine, deps Dependencies) {
	r.GET("/health", health(deps.DB))

	// Public account endpoints
	SetupAuthRoutes(r, deps)

	// Signed-in customers
	SetupUserRoutes(r, deps)

	// Catalog browsing
	SetupProductRoutes(r, deps)

	// Orders and payments
	SetupOrderRoutes(r, deps)

	// ADMIN role
	SetupAdminRoutes(r, deps)
}

func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
