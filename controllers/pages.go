package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jenkinph/procedure-passport/middlewares"
	"github.com/jenkinph/procedure-passport/services"
)

var loginErrors = map[string]string{
	"login_required":  "Please sign in.",
	"session_expired": "Your session has expired. Please sign in again.",
}

// LoginPage renders the sign-in form, or forwards a signed-in user.
func LoginPage(c *fiber.Ctx) error {
	if id, ok := middlewares.CurrentIdentity(c); ok {
		return c.Redirect(landing(id))
	}
	return services.Render(c, "login", fiber.Map{
		"Error": loginErrors[c.Query("error")],
		"Flash": takeFlash(c),
	})
}

func landing(id services.Identity) string {
	if id.IsAdmin() {
		return "/admin"
	}
	return "/home"
}

// Login accepts an email from the admin allow-list or the resident roster
// and sets the access cookie.
func Login(c *fiber.Ctx) error {
	var input struct {
		Email string `json:"email" form:"email"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid login form")
	}

	id, err := Svc.Catalog.Identify(reqCtx(c), input.Email)
	if err != nil {
		if !errors.Is(err, services.ErrUnknownIdentity) && !errors.Is(err, services.ErrValidation) {
			return err
		}
		if c.Is("json") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unknown_identity"})
		}
		c.Status(fiber.StatusUnauthorized)
		return services.Render(c, "login", fiber.Map{
			"Email": input.Email,
			"Error": "This email is not an administrator or a registered resident.",
		})
	}

	token, err := Svc.Tokens.IssueAccess(id)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     middlewares.AccessCookie,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		SameSite: "Lax",
		Expires:  time.Now().Add(Svc.Tokens.AccessTTL()),
	})
	Log.Info("login", "email", id.Email, "role", id.Role)

	if c.Is("json") {
		return c.JSON(fiber.Map{"success": true, "link": landing(id)})
	}
	return c.Redirect(landing(id), fiber.StatusSeeOther)
}

// Logout clears the cookie and the session.
func Logout(c *fiber.Ctx) error {
	c.ClearCookie(middlewares.AccessCookie)
	if sess, err := SessionStore.Get(c); err == nil {
		_ = sess.Destroy()
	}
	return c.Redirect("/")
}

type homeCase struct {
	Date      string
	Procedure string
	Evaluator string
	Overall   services.Cell
}

// Home is the resident landing page with the latest cases.
func Home(c *fiber.Ctx) error {
	id := identity(c)
	in, err := Svc.Reports.Load(reqCtx(c), id.Email)
	if err != nil {
		return err
	}
	var recent []homeCase
	for i, r := range services.BuildComments(in) {
		if i == 5 {
			break
		}
		recent = append(recent, homeCase{Date: r.Date, Procedure: r.Procedure, Evaluator: r.Evaluator, Overall: r.Overall})
	}
	return services.Render(c, "home", fiber.Map{
		"Cases": recent,
		"Flash": takeFlash(c),
	})
}

func Health(c *fiber.Ctx) error {
	return c.SendString("ok")
}
