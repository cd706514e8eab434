package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jenkinph/procedure-passport/models"
	"github.com/jenkinph/procedure-passport/services"
)

// linkFromRequest reads the deep link parameters. A signed token, when
// present, overrides them.
func linkFromRequest(c *fiber.Ctx) (models.EvaluationLink, error) {
	if c.Query("mode") != "external" {
		return models.EvaluationLink{}, fiber.NewError(fiber.StatusBadRequest, "unsupported mode")
	}
	if tok := c.Query("token"); tok != "" {
		return Svc.Tokens.ParseLink(tok)
	}
	link := models.EvaluationLink{
		ResidentEmail: models.NormalizeEmail(c.Query("resident")),
		ProcedureID:   strings.ToUpper(strings.TrimSpace(c.Query("procedure"))),
		SpecialtyID:   strings.TrimSpace(c.Query("specialty")),
		EvaluatorName: strings.TrimSpace(c.Query("evaluator")),
	}
	if !link.Complete() {
		return link, fiber.NewError(fiber.StatusBadRequest, "link needs resident, procedure, specialty and evaluator")
	}
	return link, nil
}

// EvaluatePage opens a single-use evaluation form for an external
// evaluator. No login is needed.
func EvaluatePage(c *fiber.Ctx) error {
	link, err := linkFromRequest(c)
	if err != nil {
		return err
	}
	cat, err := Svc.Catalog.Catalog(reqCtx(c))
	if err != nil {
		return err
	}
	proc, ok := cat.Procedure(link.ProcedureID)
	if !ok || proc.SpecialtyID != link.SpecialtyID {
		return fiber.NewError(fiber.StatusNotFound, "unknown procedure for this specialty")
	}
	sess, _, err := loadForm(c)
	if err != nil {
		return err
	}
	form := services.FormState{
		Stage:         services.StageAssessment,
		External:      true,
		ResidentEmail: link.ResidentEmail,
		SpecialtyID:   link.SpecialtyID,
		ProcedureID:   proc.ID,
		EvaluatorID:   models.EvaluatorID(link.SpecialtyID, link.EvaluatorName),
		EvaluatorName: link.EvaluatorName,
		Date:          time.Now().Format(models.DateLayout),
	}
	form.Arm()
	if err := services.SaveForm(sess, form); err != nil {
		return err
	}
	data := ratingFormData(cat, form)
	data["Title"] = "External evaluation"
	return services.Render(c, "evaluate", data)
}

// EvaluateSubmit records the external evaluation, creating the resident and
// the evaluator if they are new.
func EvaluateSubmit(c *fiber.Ctx) error {
	sess, form, err := loadForm(c)
	if err != nil {
		return err
	}
	nonce := c.FormValue("nonce")
	if !form.External || form.Stage != services.StageAssessment || form.Nonce == "" || nonce != form.Nonce {
		return fiber.NewError(fiber.StatusConflict, "this evaluation form was already submitted or has expired")
	}
	ctx := reqCtx(c)
	day, err := parseDate(c.FormValue("date", form.Date))
	if err != nil {
		return err
	}
	cat, err := Svc.Catalog.Catalog(ctx)
	if err != nil {
		return err
	}
	caseForm := services.CaseForm{
		ResidentEmail:      form.ResidentEmail,
		Date:               day,
		SpecialtyID:        form.SpecialtyID,
		ProcedureID:        form.ProcedureID,
		EvaluatorID:        form.EvaluatorID,
		RatingsByStep:      ratingsFromForm(c, cat.StepsFor(form.ProcedureID)),
		Notes:              c.FormValue("notes"),
		CaseComplexity:     c.FormValue("case_complexity"),
		OverallPerformance: c.FormValue("overall_performance"),
	}
	nc, err := caseForm.Validate(cat)
	if err != nil {
		return err
	}

	if _, err := Svc.Catalog.EnsureResident(ctx, services.ResidentInput{
		Email:       form.ResidentEmail,
		SpecialtyID: form.SpecialtyID,
	}); err != nil {
		return err
	}
	ev, _, err := Svc.Catalog.EnsureEvaluator(ctx, services.EvaluatorInput{
		Name:        form.EvaluatorName,
		SpecialtyID: form.SpecialtyID,
	})
	if err != nil {
		return err
	}
	nc.EvaluatorID = ev.ID

	caseID, err := Svc.Records.SaveCase(ctx, nc)
	if err != nil {
		return err
	}
	form.Consume(nonce)
	form.Stage = services.StageSubmitted
	form.LastCaseID = caseID
	if err := services.SaveForm(sess, form); err != nil {
		return err
	}
	Log.Info("external evaluation saved", "case_id", caseID, "email", form.ResidentEmail, "evaluator", ev.ID)

	in, err := Svc.Reports.Load(ctx, form.ResidentEmail)
	if err != nil {
		return err
	}
	summary, _ := services.BuildCaseSummary(in, caseID)
	return services.Render(c, "evaluate_done", fiber.Map{
		"Title":   "Evaluation recorded",
		"Summary": summary,
	})
}
