package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jenkinph/procedure-passport/controllers"
	"github.com/jenkinph/procedure-passport/middlewares"
	"github.com/jenkinph/procedure-passport/services"
)

func RegisterPagesRoutes(app *fiber.App, svc *services.Services) {
	// Login page, or a redirect for an already signed-in user
	app.Get("/", middlewares.OptionalAuth(svc.Tokens), controllers.LoginPage)
	app.Post("/login", middlewares.LoginRateLimiter(), controllers.Login)
	app.Get("/logout", controllers.Logout)
	app.Get("/home", middlewares.AuthMiddleware(svc.Tokens, controllers.Log), controllers.Home)

	app.Get("/health", controllers.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

// Register installs every route group.
func Register(app *fiber.App, svc *services.Services) {
	RegisterPagesRoutes(app, svc)
	RegisterAdminRoutes(app, svc)
	RegisterResidentRoutes(app, svc)
	RegisterEvaluateRoutes(app)
}
