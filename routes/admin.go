package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jenkinph/procedure-passport/controllers"
	"github.com/jenkinph/procedure-passport/middlewares"
	"github.com/jenkinph/procedure-passport/services"
)

func RegisterAdminRoutes(app *fiber.App, svc *services.Services) {
	adminGroup := app.Group("/admin", middlewares.AuthMiddleware(svc.Tokens, controllers.Log, services.RoleAdmin))
	adminGroup.Get("/", controllers.AdminPage)
	adminGroup.Post("/residents", controllers.AdminAddResident)
	adminGroup.Post("/residents/delete", controllers.AdminDeleteResident)
	adminGroup.Post("/evaluators", controllers.AdminAddEvaluator)
	adminGroup.Post("/evaluators/delete", controllers.AdminDeleteEvaluator)
	adminGroup.Post("/procedures", controllers.AdminAddProcedure)
	adminGroup.Post("/procedures/delete", controllers.AdminDeleteProcedure)
	// Signed deep link for an external evaluator
	adminGroup.Post("/links", controllers.AdminCreateLink)
}
