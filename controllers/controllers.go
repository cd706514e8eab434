// Package controllers holds the HTTP handlers. main wires the package
// variables before the routes are registered.
package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/jenkinph/procedure-passport/logger"
	"github.com/jenkinph/procedure-passport/middlewares"
	"github.com/jenkinph/procedure-passport/services"
)

var (
	SessionStore *session.Store
	Svc          *services.Services
	Log          = logger.Nop()
)

func reqCtx(c *fiber.Ctx) context.Context {
	return c.UserContext()
}

func identity(c *fiber.Ctx) services.Identity {
	id, _ := middlewares.CurrentIdentity(c)
	return id
}

// loadForm returns the session and its form state.
func loadForm(c *fiber.Ctx) (*session.Session, services.FormState, error) {
	sess, err := SessionStore.Get(c)
	if err != nil {
		return nil, services.FormState{}, err
	}
	return sess, services.LoadForm(sess), nil
}

// flashRedirect stores msg for the next page and redirects to path.
func flashRedirect(c *fiber.Ctx, path, msg string) error {
	sess, form, err := loadForm(c)
	if err != nil {
		return err
	}
	form.Flash = msg
	if err := services.SaveForm(sess, form); err != nil {
		return err
	}
	return c.Redirect(path, fiber.StatusSeeOther)
}

// takeFlash pops the pending flash message, if any.
func takeFlash(c *fiber.Ctx) string {
	sess, form, err := loadForm(c)
	if err != nil {
		return ""
	}
	msg := form.TakeFlash()
	if msg != "" {
		_ = services.SaveForm(sess, form)
	}
	return msg
}

// failOrFlash shows validation and not-found errors as a flash on path and
// hands everything else to the error handler.
func failOrFlash(c *fiber.Ctx, path string, err error) error {
	apiErr := services.ToAPIError(err)
	if apiErr.Status < fiber.StatusInternalServerError && apiErr.Status != fiber.StatusUnauthorized {
		return flashRedirect(c, path, apiErr.Error())
	}
	return err
}

func wantsJSON(c *fiber.Ctx) bool {
	return c.Is("json") || c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}

// ErrorHandler renders errors as JSON for API clients and as the error page
// otherwise.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, code, msg := fiber.StatusInternalServerError, "internal", "Something went wrong."
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status, code, msg = fe.Code, "http", fe.Message
	} else {
		apiErr := services.ToAPIError(err)
		status, code = apiErr.Status, apiErr.Code
		if status < fiber.StatusInternalServerError {
			msg = apiErr.Error()
		}
	}
	if status >= fiber.StatusInternalServerError {
		Log.Error("request failed", "path", c.Path(), "method", c.Method(), "error", err)
	}
	if wantsJSON(c) {
		return c.Status(status).JSON(fiber.Map{"error": msg, "code": code})
	}
	c.Status(status)
	return services.Render(c, "error", fiber.Map{"Status": status, "Message": msg})
}
