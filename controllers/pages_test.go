package controllers_test

import (
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	b := newBrowser(t)
	resp, body := b.get("/health")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)
}

func TestLoginUnknownEmail(t *testing.T) {
	b := newBrowser(t)
	resp, body := b.post("/login", url.Values{"email": {"nobody@example.com"}})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "not an administrator or a registered resident")
	assert.Empty(t, resp.Header.Get(fiber.HeaderSetCookie))
}

func TestLoginJSON(t *testing.T) {
	b := newBrowser(t)
	req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(`{"email":"res@example.com"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := b.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out struct {
		Success bool   `json:"success"`
		Link    string `json:"link"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Success)
	assert.Equal(t, "/home", out.Link)
}

func TestLoginLandsByRole(t *testing.T) {
	tests := []struct {
		email   string
		landing string
	}{
		{residentEmail, "/home"},
		{"  ADMIN@example.com ", "/admin"},
	}
	for _, tt := range tests {
		t.Run(tt.landing, func(t *testing.T) {
			b := newBrowser(t)
			resp, _ := b.post("/login", url.Values{"email": {tt.email}})
			require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
			assert.Equal(t, tt.landing, location(resp))

			// A signed-in user opening the login page is forwarded.
			resp, _ = b.get("/")
			assert.Equal(t, fiber.StatusFound, resp.StatusCode)
			assert.Equal(t, tt.landing, location(resp))
		})
	}
}

func TestHomeShowsResident(t *testing.T) {
	b := newBrowser(t)
	b.login(residentEmail)
	resp, body := b.get("/home")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Welcome, Jane Doe")
}

func TestProtectedPagesNeedLogin(t *testing.T) {
	b := newBrowser(t)
	for _, path := range []string{"/home", "/admin", "/assessment/start", "/reports/cumulative"} {
		resp, _ := b.get(path)
		assert.Equal(t, fiber.StatusFound, resp.StatusCode, path)
		assert.Equal(t, "/?error=login_required", location(resp), path)
	}
}

func TestTamperedCookieExpiresSession(t *testing.T) {
	b := newBrowser(t)
	b.cookies["access_token"] = "not-a-jwt"
	resp, _ := b.get("/home")
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/?error=session_expired", location(resp))

	resp, body := b.get("/?error=session_expired")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Your session has expired")
}

func TestLogoutClearsIdentity(t *testing.T) {
	b := newBrowser(t)
	b.login(residentEmail)
	resp, _ := b.get("/logout")
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Empty(t, b.cookies["access_token"])

	resp, _ = b.get("/home")
	assert.Equal(t, "/?error=login_required", location(resp))
}

func TestRoleGates(t *testing.T) {
	b := newBrowser(t)
	b.login(residentEmail)
	resp, _ := b.get("/admin")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	a := newBrowser(t)
	a.login(adminEmail)
	resp, _ = a.get("/assessment/start")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestDashboardSocketNeedsUpgrade(t *testing.T) {
	b := newBrowser(t)
	b.login(residentEmail)
	resp, _ := b.get("/ws/dashboard")
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
