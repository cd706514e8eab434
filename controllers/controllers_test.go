package controllers_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/require"

	"github.com/jenkinph/procedure-passport/config"
	"github.com/jenkinph/procedure-passport/controllers"
	"github.com/jenkinph/procedure-passport/middlewares"
	"github.com/jenkinph/procedure-passport/routes"
	"github.com/jenkinph/procedure-passport/services"
	"github.com/jenkinph/procedure-passport/store"
	"github.com/jenkinph/procedure-passport/store/storetest"
	"github.com/jenkinph/procedure-passport/views"
)

const (
	adminEmail    = "admin@example.com"
	residentEmail = "res@example.com"
)

// browser drives the app like a single user agent that keeps its cookies.
type browser struct {
	t       *testing.T
	app     *fiber.App
	svc     *services.Services
	store   store.Store
	cookies map[string]string
}

func newBrowser(t *testing.T) *browser {
	t.Helper()
	st := storetest.Seeded(t, storetest.Sheet(t))
	log := storetest.Logger(t)
	cfg := config.Config{
		RequestTimeout: 5 * time.Second,
		JWTSecret:      "test-secret",
		AccessTokenTTL: time.Hour,
		LinkTTL:        time.Hour,
		AdminEmails:    []string{adminEmail},
		PublicBaseURL:  "http://passport.test",
	}
	svc := services.New(cfg, st, log)

	app := fiber.New(fiber.Config{
		Views:        services.NewEngine(views.FS()),
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ErrorHandler: controllers.ErrorHandler,
	})
	middlewares.Setup(app, cfg.RequestTimeout)
	controllers.SessionStore = session.New()
	controllers.Svc = svc
	controllers.Log = log
	routes.Register(app, svc)

	_, err := svc.Catalog.EnsureResident(context.Background(), services.ResidentInput{
		Email: residentEmail, Name: "Jane Doe", SpecialtyID: "GS",
	})
	require.NoError(t, err)
	return &browser{t: t, app: app, svc: svc, store: st, cookies: map[string]string{}}
}

func (b *browser) do(method, path string, form url.Values, headers ...string) (*http.Response, string) {
	b.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	for name, value := range b.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	resp, err := b.app.Test(req, -1)
	require.NoError(b.t, err)
	for _, ck := range resp.Cookies() {
		if ck.Value == "" {
			delete(b.cookies, ck.Name)
			continue
		}
		b.cookies[ck.Name] = ck.Value
	}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp, string(raw)
}

func (b *browser) get(path string) (*http.Response, string) {
	return b.do(fiber.MethodGet, path, nil)
}

func (b *browser) post(path string, form url.Values) (*http.Response, string) {
	return b.do(fiber.MethodPost, path, form)
}

func (b *browser) login(email string) {
	b.t.Helper()
	resp, _ := b.post("/login", url.Values{"email": {email}})
	require.Equal(b.t, fiber.StatusSeeOther, resp.StatusCode)
	require.NotEmpty(b.t, b.cookies[middlewares.AccessCookie])
}

var nonceRe = regexp.MustCompile(`name="nonce" value="([^"]+)"`)

func nonceFrom(t *testing.T, page string) string {
	t.Helper()
	m := nonceRe.FindStringSubmatch(page)
	require.Len(t, m, 2, "form has no nonce")
	return m[1]
}

func lapappRatings(nonce string) url.Values {
	return url.Values{
		"nonce":               {nonce},
		"rating_S_LAPAPP_01":  {"Auto"},
		"rating_S_LAPAPP_02":  {"Steer"},
		"rating_S_LAPAPP_03":  {"Not Assessed"},
		"case_complexity":     {"Moderate"},
		"overall_performance": {"4 - Backup"},
		"notes":               {"Good port placement, slow on the base"},
	}
}

func location(resp *http.Response) string {
	return resp.Header.Get(fiber.HeaderLocation)
}
