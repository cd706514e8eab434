package controllers

import (
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/jenkinph/procedure-passport/models"
	"github.com/jenkinph/procedure-passport/services"
)

const adminPath = "/admin"

// AdminPage lists the roster and the catalog with their add/delete forms.
func AdminPage(c *fiber.Ctx) error {
	ctx := reqCtx(c)
	cat, err := Svc.Catalog.Catalog(ctx)
	if err != nil {
		return err
	}
	residents, err := Svc.Catalog.ListResidents(ctx)
	if err != nil {
		return err
	}
	sess, form, err := loadForm(c)
	if err != nil {
		return err
	}
	flash := form.TakeFlash()
	link := c.Query("link")
	if err := services.SaveForm(sess, form); err != nil {
		return err
	}
	return services.Render(c, "admin", fiber.Map{
		"Title":     "Admin",
		"Catalog":   cat,
		"Residents": residents,
		"Flash":     flash,
		"Link":      link,
	})
}

func AdminAddResident(c *fiber.Ctx) error {
	var in services.ResidentInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form")
	}
	created, err := Svc.Catalog.EnsureResident(reqCtx(c), in)
	if err != nil {
		return failOrFlash(c, adminPath, err)
	}
	msg := "Resident " + models.NormalizeEmail(in.Email) + " added."
	if !created {
		msg = "Resident " + models.NormalizeEmail(in.Email) + " already exists."
	}
	return flashRedirect(c, adminPath, msg)
}

func AdminDeleteResident(c *fiber.Ctx) error {
	email := c.FormValue("email")
	if err := Svc.Catalog.DeleteResident(reqCtx(c), email); err != nil {
		return failOrFlash(c, adminPath, err)
	}
	Log.Info("resident deleted", "email", email)
	return flashRedirect(c, adminPath, "Resident "+email+" deleted.")
}

func AdminAddEvaluator(c *fiber.Ctx) error {
	var in services.EvaluatorInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form")
	}
	e, created, err := Svc.Catalog.EnsureEvaluator(reqCtx(c), in)
	if err != nil {
		return failOrFlash(c, adminPath, err)
	}
	msg := fmt.Sprintf("Attending %s added as %s.", e.Name, e.ID)
	if !created {
		msg = fmt.Sprintf("Attending %s already exists.", e.ID)
	}
	return flashRedirect(c, adminPath, msg)
}

func AdminDeleteEvaluator(c *fiber.Ctx) error {
	id := c.FormValue("attending_id")
	if err := Svc.Catalog.DeleteEvaluator(reqCtx(c), id); err != nil {
		return failOrFlash(c, adminPath, err)
	}
	Log.Info("attending deleted", "attending_id", id)
	return flashRedirect(c, adminPath, "Attending "+id+" deleted.")
}

func AdminAddProcedure(c *fiber.Ctx) error {
	var in services.ProcedureInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form")
	}
	created, err := Svc.Catalog.EnsureProcedure(reqCtx(c), in)
	if err != nil {
		return failOrFlash(c, adminPath, err)
	}
	msg := "Procedure added."
	if !created {
		msg = "Procedure already exists; its steps were left unchanged."
	}
	return flashRedirect(c, adminPath, msg)
}

func AdminDeleteProcedure(c *fiber.Ctx) error {
	id := c.FormValue("procedure_id")
	if err := Svc.Catalog.DeleteProcedure(reqCtx(c), id); err != nil {
		return failOrFlash(c, adminPath, err)
	}
	Log.Info("procedure deleted", "procedure_id", id)
	return flashRedirect(c, adminPath, "Procedure "+id+" and its steps deleted.")
}

// AdminCreateLink signs an external evaluation link and shows it on the
// admin page.
func AdminCreateLink(c *fiber.Ctx) error {
	link := models.EvaluationLink{
		ResidentEmail: c.FormValue("resident"),
		ProcedureID:   c.FormValue("procedure"),
		SpecialtyID:   c.FormValue("specialty_id", c.FormValue("specialty")),
		EvaluatorName: c.FormValue("evaluator"),
	}
	token, err := Svc.Tokens.IssueLink(link)
	if err != nil {
		return failOrFlash(c, adminPath, err)
	}
	u := services.LinkURL(Svc.Config.PublicBaseURL, token)
	if wantsJSON(c) {
		return c.JSON(fiber.Map{"link": u})
	}
	return c.Redirect(adminPath+"?link="+url.QueryEscape(u), fiber.StatusSeeOther)
}
