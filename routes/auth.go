package routes

import (
	newsletterControllers "github.com/DelightGeorge/Ikeya-Backend/controllers/newsletter"
	userControllers "github.com/DelightGeorge/Ikeya-Backend/controllers/user"
	"github.com/gin-gonic/gin"
)

func (d Dependencies) userDeps() userControllers.Deps {
	return userControllers.Deps{
		Issuer:      d.Issuer,
		Outbox:      d.Outbox,
		Google:      d.Google,
		LoginMode:   d.Config.LoginMode,
		FrontendURL: d.Config.FrontendURL,
	}
}

// SetupAuthRoutes registers the public "/users/*" account endpoints.
func SetupAuthRoutes(r *gin.Engine, deps Dependencies) {
	db := deps.DB
	accounts := deps.userDeps()
	limited := deps.rateLimit()

	users := r.Group("/users")
	{
		users.POST("/register", userControllers.Register(db, accounts))
		users.POST("/login", limited, userControllers.Login(db, accounts))
		users.POST("/verify-login", userControllers.VerifyLogin(db, accounts))
		users.POST("/forgot-password", limited, userControllers.ForgotPassword(db, accounts))
		users.POST("/reset-password", userControllers.ResetPassword(db, accounts))
		users.POST("/google", userControllers.Google(db, accounts))
	}

	r.POST("/newsletter/subscribe", limited, newsletterControllers.SubscribeHandler(db, deps.Outbox))
}
