package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jenkinph/procedure-passport/controllers"
)

// RegisterEvaluateRoutes serves the external evaluation form. The deep link
// carries the context, so no login is needed.
func RegisterEvaluateRoutes(app *fiber.App) {
	app.Get("/evaluate", controllers.EvaluatePage)
	app.Post("/evaluate", controllers.EvaluateSubmit)
}
