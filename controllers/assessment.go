package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jenkinph/procedure-passport/models"
	"github.com/jenkinph/procedure-passport/services"
)

const (
	startPath      = "/assessment/start"
	assessmentPath = "/assessment"
	dashboardPath  = "/assessment/dashboard"
)

// ratingFormData is what the rating form partial needs.
func ratingFormData(cat models.Catalog, form services.FormState) fiber.Map {
	proc, _ := cat.Procedure(form.ProcedureID)
	return fiber.Map{
		"Form":         form,
		"Procedure":    proc,
		"Steps":        cat.StepsFor(form.ProcedureID),
		"Nonce":        form.Nonce,
		"Ratings":      models.RatingOptions,
		"Complexities": models.ComplexityOptions,
		"OScores":      models.OScoreOptions,
	}
}

// ratingsFromForm collects rating_<step id> fields for the procedure's steps.
func ratingsFromForm(c *fiber.Ctx, steps []models.Step) map[string]string {
	out := make(map[string]string, len(steps))
	for _, st := range steps {
		if v := c.FormValue("rating_" + st.ID); v != "" {
			out[st.ID] = v
		}
	}
	return out
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	return t, nil
}

// StartPage lets a resident pick specialty, procedure, attending and date.
// Procedures and attendings are filtered by the chosen specialty.
func StartPage(c *fiber.Ctx) error {
	cat, err := Svc.Catalog.Catalog(reqCtx(c))
	if err != nil {
		return err
	}
	specialty := c.Query("specialty", identity(c).SpecialtyID)
	if _, ok := cat.Specialty(specialty); !ok {
		specialty = ""
	}
	return services.Render(c, "start", fiber.Map{
		"Title":       "Start assessment",
		"Catalog":     cat,
		"SpecialtyID": specialty,
		"Procedures":  cat.ProceduresFor(specialty),
		"Evaluators":  cat.EvaluatorsFor(specialty),
		"Today":       time.Now().Format(models.DateLayout),
		"Flash":       takeFlash(c),
	})
}

// StartSubmit fixes the context of a new case in the session form state.
func StartSubmit(c *fiber.Ctx) error {
	cat, err := Svc.Catalog.Catalog(reqCtx(c))
	if err != nil {
		return err
	}
	specialty := c.FormValue("specialty_id")
	proc, ok := cat.Procedure(c.FormValue("procedure_id"))
	if !ok || proc.SpecialtyID != specialty {
		return flashRedirect(c, startPath+"?specialty="+specialty, "Choose a procedure of the selected specialty.")
	}
	ev, ok := cat.Evaluator(c.FormValue("evaluator_id"))
	if !ok || ev.SpecialtyID != specialty {
		return flashRedirect(c, startPath+"?specialty="+specialty, "Choose an attending of the selected specialty.")
	}
	day, err := parseDate(c.FormValue("date"))
	if err != nil {
		return flashRedirect(c, startPath+"?specialty="+specialty, "Enter the date of the case.")
	}

	sess, form, err := loadForm(c)
	if err != nil {
		return err
	}
	id := identity(c)
	form = services.FormState{
		Stage:         services.StageAssessment,
		ResidentEmail: id.Email,
		ResidentName:  id.Name,
		SpecialtyID:   specialty,
		ProcedureID:   proc.ID,
		EvaluatorID:   ev.ID,
		EvaluatorName: ev.Name,
		Date:          day.Format(models.DateLayout),
	}
	form.Arm()
	if err := services.SaveForm(sess, form); err != nil {
		return err
	}
	return c.Redirect(assessmentPath, fiber.StatusSeeOther)
}

// AssessmentPage shows the step ratings form for the case being started.
func AssessmentPage(c *fiber.Ctx) error {
	sess, form, err := loadForm(c)
	if err != nil {
		return err
	}
	if form.Stage != services.StageAssessment || form.External {
		return c.Redirect(startPath)
	}
	cat, err := Svc.Catalog.Catalog(reqCtx(c))
	if err != nil {
		return err
	}
	flash := form.TakeFlash()
	if err := services.SaveForm(sess, form); err != nil {
		return err
	}
	data := ratingFormData(cat, form)
	data["Title"] = "Assessment"
	data["EvaluatorName"] = form.EvaluatorName
	data["Flash"] = flash
	return services.Render(c, "assessment", data)
}

// AssessmentSubmit stores the case. The form nonce makes a second submit of
// the same form a no-op.
func AssessmentSubmit(c *fiber.Ctx) error {
	sess, form, err := loadForm(c)
	if err != nil {
		return err
	}
	nonce := c.FormValue("nonce")
	if form.Stage != services.StageAssessment || form.External || form.Nonce == "" || nonce != form.Nonce {
		return flashRedirect(c, startPath, "This assessment was already submitted or has expired.")
	}
	id := identity(c)
	if form.ResidentEmail != id.Email {
		return fiber.NewError(fiber.StatusForbidden, "assessment belongs to another user")
	}
	cat, err := Svc.Catalog.Catalog(reqCtx(c))
	if err != nil {
		return err
	}
	day, err := parseDate(form.Date)
	if err != nil {
		return err
	}
	nc, err := services.CaseForm{
		ResidentEmail:      form.ResidentEmail,
		Date:               day,
		SpecialtyID:        form.SpecialtyID,
		ProcedureID:        form.ProcedureID,
		EvaluatorID:        form.EvaluatorID,
		RatingsByStep:      ratingsFromForm(c, cat.StepsFor(form.ProcedureID)),
		Notes:              c.FormValue("notes"),
		CaseComplexity:     c.FormValue("case_complexity"),
		OverallPerformance: c.FormValue("overall_performance"),
	}.Validate(cat)
	if err != nil {
		return failOrFlash(c, assessmentPath, err)
	}
	caseID, err := Svc.Records.SaveCase(reqCtx(c), nc)
	if err != nil {
		return err
	}

	form.Consume(nonce)
	form.Stage = services.StageSubmitted
	form.LastCaseID = caseID
	form.Flash = "Assessment saved."
	if err := services.SaveForm(sess, form); err != nil {
		return err
	}
	return c.Redirect(dashboardPath, fiber.StatusSeeOther)
}

// DashboardPage summarizes the case just submitted.
func DashboardPage(c *fiber.Ctx) error {
	sess, form, err := loadForm(c)
	if err != nil {
		return err
	}
	if form.LastCaseID == "" {
		return c.Redirect(startPath)
	}
	in, err := Svc.Reports.Load(reqCtx(c), identity(c).Email)
	if err != nil {
		return err
	}
	summary, ok := services.BuildCaseSummary(in, form.LastCaseID)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "case not found")
	}
	flash := form.TakeFlash()
	if err := services.SaveForm(sess, form); err != nil {
		return err
	}
	return services.Render(c, "dashboard", fiber.Map{
		"Title":   "Case dashboard",
		"Summary": summary,
		"Flash":   flash,
	})
}
