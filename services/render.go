package services

import (
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
)

// IdentityKey is the fiber.Ctx local holding the current Identity.
const IdentityKey = "identity"

const layout = "layouts/main"

var templateFuncs = map[string]interface{}{
	"add1":       func(i int) int { return i + 1 },
	"ucfirst":    ucfirst,
	"now":        time.Now,
	"formatDate": formatTime,
	"fillStyle":  fillStyle,
}

// NewEngine builds the page engine over fs with the helper funcs registered.
func NewEngine(fs http.FileSystem) *html.Engine {
	engine := html.NewFileSystem(fs, ".html")
	for name, fn := range templateFuncs {
		engine.AddFunc(name, fn)
	}
	return engine
}

// Render renders page inside the main layout. The logged-in identity, if
// any, is available to templates as .Identity.
func Render(c *fiber.Ctx, page string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if id, ok := c.Locals(IdentityKey).(Identity); ok {
		data["Identity"] = id
	}
	if _, ok := data["Title"]; !ok {
		data["Title"] = "Procedure Passport"
	}
	return c.Render(page, data, layout)
}

func ucfirst(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

func fillStyle(f *Fill) template.CSS {
	return template.CSS(f.CSS())
}
