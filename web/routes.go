package web

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/contiq/contiq/content"
	"github.com/contiq/contiq/generate"
	"github.com/contiq/contiq/middleware/csrf"
	"github.com/contiq/contiq/middleware/guardware"
	"github.com/contiq/contiq/session"
)

// Deps carries everything route registration needs.
type Deps struct {
	Registry   *session.Registry
	Validator  guardware.TokenValidator
	Repo       *content.Repo
	Generator  *generate.Client
	CookieName string
	SessionTTL time.Duration

	// CSRFKey signs form tokens.
	CSRFKey []byte

	Logger session.Logger
}

// RegisterRoutes wires the public pages, the auth flow, the guarded
// dashboard, and the JSON API onto the app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	logger := deps.Logger
	if logger == nil {
		logger = session.DefaultLogger()
	}

	auth := NewAuthController(deps.Registry, deps.CookieName, deps.SessionTTL).WithLogger(logger)
	dashboard := NewDashboardController(deps.Repo).WithLogger(logger)
	api := NewAPIController(deps.Repo, deps.Generator).WithLogger(logger)

	// Form routes carry CSRF tokens. The JSON API relies on bearer tokens
	// and SameSite cookies instead.
	app.Use(csrf.New(csrf.Config{
		SecureKey:     deps.CSRFKey,
		SessionCookie: deps.CookieName,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/") || strings.HasPrefix(c.Path(), "/static/")
		},
	}))

	// Public surface
	app.Static("/static", "./web/static")
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Render("landing", fiber.Map{})
	})

	app.Get("/login", auth.LoginShow)
	app.Post("/login", auth.LoginPost)
	app.Get("/signup", auth.SignupShow)
	app.Post("/signup", auth.SignupPost)
	app.Post("/logout", auth.Logout)

	// Protected dashboard pages
	guarded := app.Group("/dashboard", guardware.New(guardware.Config{
		Registry:   deps.Registry,
		CookieName: deps.CookieName,
		Logger:     logger,
	}))

	guarded.Get("/", dashboard.Home)
	guarded.Get("/trending", dashboard.Trending)
	guarded.Get("/scripts", dashboard.Scripts)
	guarded.Get("/content-analyzer", dashboard.Analyzer)
	guarded.Get("/your-content", dashboard.YourContent)
	guarded.Get("/banners", dashboard.Banners)
	guarded.Get("/social-media", dashboard.SocialMedia)
	guarded.Get("/analytics", dashboard.Analytics)

	// JSON API for the dashboard pages and programmatic clients
	apiGroup := app.Group("/api", guardware.TokenOrSession(deps.Validator, deps.Registry, deps.CookieName))

	apiGroup.Post("/scripts/generate", api.GenerateScript)
	apiGroup.Post("/scripts", api.PublishScript)
	apiGroup.Get("/scripts", api.ListScripts)
	apiGroup.Post("/analyses", api.AnalyzeContent)
	apiGroup.Get("/analyses", api.ListAnalyses)
	apiGroup.Get("/content", api.ListContent)
	apiGroup.Get("/trending", api.ListTrending)
}
