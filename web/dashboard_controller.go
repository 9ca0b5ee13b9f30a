package web

import (
	"github.com/gofiber/fiber/v2"

	"github.com/contiq/contiq/content"
	"github.com/contiq/contiq/middleware/guardware"
	"github.com/contiq/contiq/session"
)

// DashboardController renders the authenticated dashboard pages.
type DashboardController struct {
	Repo   *content.Repo
	Logger session.Logger
}

func NewDashboardController(repo *content.Repo) *DashboardController {
	return &DashboardController{
		Repo:   repo,
		Logger: session.DefaultLogger(),
	}
}

func (d *DashboardController) WithLogger(logger session.Logger) *DashboardController {
	if logger != nil {
		d.Logger = logger
	}
	return d
}

func (d *DashboardController) render(c *fiber.Ctx, view string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	data["current_user"] = guardware.UserFromContext(c)
	return c.Render(view, data)
}

func (d *DashboardController) fail(c *fiber.Ctx, err error) error {
	d.Logger.Error("dashboard query failed", "error", err)
	return c.Status(fiber.StatusInternalServerError).Render("errors/500", fiber.Map{})
}

// Home renders the dashboard overview with its headline metrics.
func (d *DashboardController) Home(c *fiber.Ctx) error {
	metrics, err := d.Repo.ListMetrics(c.Context(), "dashboard")
	if err != nil {
		return d.fail(c, err)
	}

	return d.render(c, "dashboard/home", fiber.Map{
		"metrics": metrics,
	})
}

// Trending renders the trending topics page with category and search
// filters.
func (d *DashboardController) Trending(c *fiber.Ctx) error {
	category := c.Query("category", "all")
	search := c.Query("q")

	metrics, err := d.Repo.ListMetrics(c.Context(), "trending")
	if err != nil {
		return d.fail(c, err)
	}

	topics, err := d.Repo.ListTrendingTopics(c.Context(), category, search)
	if err != nil {
		return d.fail(c, err)
	}

	return d.render(c, "dashboard/trending", fiber.Map{
		"metrics":  metrics,
		"topics":   topics,
		"category": category,
		"query":    search,
	})
}

// Scripts renders the script generator page with the user's published
// scripts.
func (d *DashboardController) Scripts(c *fiber.Ctx) error {
	user := guardware.UserFromContext(c)

	scripts, err := d.Repo.ListScripts(c.Context(), user.ID)
	if err != nil {
		return d.fail(c, err)
	}

	return d.render(c, "dashboard/scripts", fiber.Map{
		"scripts": scripts,
	})
}

// Analyzer renders the content analyzer page with the user's analyses.
func (d *DashboardController) Analyzer(c *fiber.Ctx) error {
	user := guardware.UserFromContext(c)

	analyses, err := d.Repo.ListAnalyses(c.Context(), user.ID)
	if err != nil {
		return d.fail(c, err)
	}

	return d.render(c, "dashboard/analyzer", fiber.Map{
		"analyses": analyses,
	})
}

// YourContent renders the content library with type and search filters.
func (d *DashboardController) YourContent(c *fiber.Ctx) error {
	itemType := c.Query("type", "all")
	search := c.Query("q")

	items, err := d.Repo.ListItems(c.Context(), itemType, search)
	if err != nil {
		return d.fail(c, err)
	}

	return d.render(c, "dashboard/your_content", fiber.Map{
		"items":     items,
		"item_type": itemType,
		"query":     search,
	})
}

// Banners renders the banner creator page.
func (d *DashboardController) Banners(c *fiber.Ctx) error {
	return d.render(c, "dashboard/banners", nil)
}

// SocialMedia renders the social accounts page.
func (d *DashboardController) SocialMedia(c *fiber.Ctx) error {
	return d.render(c, "dashboard/social", nil)
}

// Analytics renders the analytics page with its headline metrics.
func (d *DashboardController) Analytics(c *fiber.Ctx) error {
	metrics, err := d.Repo.ListMetrics(c.Context(), "analytics")
	if err != nil {
		return d.fail(c, err)
	}

	return d.render(c, "dashboard/analytics", fiber.Map{
		"metrics": metrics,
	})
}
