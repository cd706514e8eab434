package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jenkinph/procedure-passport/controllers"
	"github.com/jenkinph/procedure-passport/middlewares"
	"github.com/jenkinph/procedure-passport/services"
)

func RegisterResidentRoutes(app *fiber.App, svc *services.Services) {
	assessment := app.Group("/assessment", middlewares.AuthMiddleware(svc.Tokens, controllers.Log, services.RoleResident))
	assessment.Get("/start", controllers.StartPage)
	assessment.Post("/start", controllers.StartSubmit)
	assessment.Get("/", controllers.AssessmentPage)
	assessment.Post("/", controllers.AssessmentSubmit)
	assessment.Get("/dashboard", controllers.DashboardPage)

	// Admins read the same reports with ?resident=
	reports := app.Group("/reports", middlewares.AuthMiddleware(svc.Tokens, controllers.Log, services.RoleResident, services.RoleAdmin))
	reports.Get("/cumulative", controllers.CumulativePage)
	reports.Get("/cumulative.xlsx", controllers.CumulativeExport)
	reports.Get("/comments", controllers.CommentsPage)
	reports.Get("/comments.xlsx", controllers.CommentsExport)

	app.Get("/ws/dashboard",
		middlewares.AuthMiddleware(svc.Tokens, controllers.Log),
		controllers.DashboardUpgrade,
		controllers.DashboardSocket,
	)
}
