package controllers_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jenkinph/procedure-passport/models"
)

func saveLapapp(t *testing.T, b *browser, day, notes string) string {
	t.Helper()
	d, err := time.Parse(models.DateLayout, day)
	require.NoError(t, err)
	id, err := b.svc.Records.SaveCase(context.Background(), models.NewCase{
		ResidentEmail: residentEmail,
		Date:          d,
		SpecialtyID:   "GS",
		ProcedureID:   "LAPAPP",
		EvaluatorID:   "A_GS_SMITH",
		RatingsByStep: map[string]models.Rating{
			"S_LAPAPP_01": models.RatingAuto,
			"S_LAPAPP_02": models.RatingPrompt,
		},
		Notes:              notes,
		CaseComplexity:     models.ComplexityComplex,
		OverallPerformance: models.OScorePrompt,
	})
	require.NoError(t, err)
	return id
}

func TestCumulativePage(t *testing.T) {
	b := newBrowser(t)
	first := saveLapapp(t, b, "2025-01-10", "first")
	second := saveLapapp(t, b, "2025-02-10", "second")
	b.login(residentEmail)

	resp, body := b.get("/reports/cumulative")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Establish pneumoperitoneum")
	require.Contains(t, body, first)
	require.Contains(t, body, second)
	assert.Less(t, strings.Index(body, first), strings.Index(body, second), "rows are oldest first")
}

func TestCumulativePageWithoutCases(t *testing.T) {
	b := newBrowser(t)
	b.login(residentEmail)

	resp, body := b.get("/reports/cumulative")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "No scored cases yet.")

	resp, _ = b.get("/reports/cumulative.xlsx")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCumulativeExport(t *testing.T) {
	b := newBrowser(t)
	caseID := saveLapapp(t, b, "2025-01-10", "")
	b.login(residentEmail)

	resp, body := b.get("/reports/cumulative.xlsx?procedure=LAPAPP")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "_LAPAPP_cumulative.xlsx")

	f, err := excelize.OpenReader(strings.NewReader(body))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Cumulative")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Date", "Evaluator", "Case ID", "Complexity", "Overall Performance"}, rows[0][:5])
	assert.Equal(t, "Establish pneumoperitoneum", rows[0][5])
	assert.Equal(t, caseID, rows[1][2])
	assert.Equal(t, "Auto", rows[1][5])
}

func TestCommentsExport(t *testing.T) {
	b := newBrowser(t)
	saveLapapp(t, b, "2025-01-10", "needs work on the base")
	b.login(residentEmail)

	resp, body := b.get("/reports/comments.xlsx")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "_comments.xlsx")

	f, err := excelize.OpenReader(strings.NewReader(body))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Comments")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "needs work on the base", rows[1][len(rows[1])-1])
}

func TestAdminReadsResidentReports(t *testing.T) {
	b := newBrowser(t)
	saveLapapp(t, b, "2025-01-10", "steady hands")
	b.login(adminEmail)

	resp, body := b.get("/reports/comments?resident=res@example.com")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "steady hands")

	resp, _ = b.get("/reports/comments")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestResidentCannotReadOthersReports(t *testing.T) {
	b := newBrowser(t)
	b.login(residentEmail)

	// The parameter is ignored for residents.
	resp, body := b.get("/reports/comments?resident=someone@example.com")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, residentEmail)
	assert.NotContains(t, body, "someone@example.com")
}
