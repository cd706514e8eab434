package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jenkinph/procedure-passport/models"
	"github.com/jenkinph/procedure-passport/services"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// reportResident is the resident a report is about: admins pick one with
// ?resident=, residents always see their own.
func reportResident(c *fiber.Ctx) (email string, fromParam bool, err error) {
	id := identity(c)
	if !id.IsAdmin() {
		return id.Email, false, nil
	}
	email = models.NormalizeEmail(c.Query("resident"))
	if email == "" {
		return "", false, fiber.NewError(fiber.StatusBadRequest, "choose a resident")
	}
	return email, true, nil
}

// cumulative loads the grid for the requested procedure, defaulting to the
// first procedure with scores.
func cumulative(c *fiber.Ctx, email string) (services.CumulativeGrid, []models.Procedure, error) {
	in, err := Svc.Reports.Load(reqCtx(c), email)
	if err != nil {
		return services.CumulativeGrid{}, nil, err
	}
	procs := services.ProceduresWithScores(in)
	if len(procs) == 0 {
		return services.CumulativeGrid{}, nil, nil
	}
	chosen := procs[0].ID
	want := c.Query("procedure")
	for _, p := range procs {
		if p.ID == want {
			chosen = p.ID
		}
	}
	return services.BuildCumulative(in, chosen), procs, nil
}

func CumulativePage(c *fiber.Ctx) error {
	email, fromParam, err := reportResident(c)
	if err != nil {
		return err
	}
	grid, procs, err := cumulative(c, email)
	if err != nil {
		return err
	}
	return services.Render(c, "cumulative", fiber.Map{
		"Title":         "Cumulative dashboard",
		"Resident":      email,
		"ResidentParam": fromParam,
		"Procedures":    procs,
		"Grid":          grid,
	})
}

func CumulativeExport(c *fiber.Ctx) error {
	email, _, err := reportResident(c)
	if err != nil {
		return err
	}
	grid, procs, err := cumulative(c, email)
	if err != nil {
		return err
	}
	if len(procs) == 0 {
		return fiber.NewError(fiber.StatusNotFound, "no scored cases to export")
	}
	b, err := services.ExportCumulative(grid)
	if err != nil {
		return err
	}
	c.Attachment(services.CumulativeFileName(email, grid.ProcedureID))
	c.Set(fiber.HeaderContentType, xlsxMIME)
	return c.Send(b)
}

func comments(c *fiber.Ctx, email string) ([]services.CommentRow, error) {
	in, err := Svc.Reports.Load(reqCtx(c), email)
	if err != nil {
		return nil, err
	}
	return services.BuildComments(in), nil
}

func CommentsPage(c *fiber.Ctx) error {
	email, fromParam, err := reportResident(c)
	if err != nil {
		return err
	}
	rows, err := comments(c, email)
	if err != nil {
		return err
	}
	return services.Render(c, "comments", fiber.Map{
		"Title":         "Comments",
		"Resident":      email,
		"ResidentParam": fromParam,
		"Rows":          rows,
	})
}

func CommentsExport(c *fiber.Ctx) error {
	email, _, err := reportResident(c)
	if err != nil {
		return err
	}
	rows, err := comments(c, email)
	if err != nil {
		return err
	}
	b, err := services.ExportComments(rows)
	if err != nil {
		return err
	}
	c.Attachment(services.CommentsFileName(email))
	c.Set(fiber.HeaderContentType, xlsxMIME)
	return c.Send(b)
}
