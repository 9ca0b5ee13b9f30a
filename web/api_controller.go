package web

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/contiq/contiq/content"
	"github.com/contiq/contiq/generate"
	"github.com/contiq/contiq/middleware/guardware"
	"github.com/contiq/contiq/session"
)

// APIController serves the JSON endpoints behind the dashboard pages.
type APIController struct {
	Repo      *content.Repo
	Generator *generate.Client
	Logger    session.Logger
}

func NewAPIController(repo *content.Repo, generator *generate.Client) *APIController {
	return &APIController{
		Repo:      repo,
		Generator: generator,
		Logger:    session.DefaultLogger(),
	}
}

func (a *APIController) WithLogger(logger session.Logger) *APIController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

func (a *APIController) jsonError(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "unexpected server error").
			WithCode(goerrors.CodeInternal)
	}

	status := richErr.Code
	if status < 400 {
		status = fiber.StatusInternalServerError
	}

	if richErr.Category == goerrors.CategoryValidation || richErr.Category == goerrors.CategoryBadInput {
		status = fiber.StatusBadRequest
	}

	a.Logger.Info("api request failed", "category", richErr.Category, "error", richErr.Message)
	return c.Status(status).JSON(fiber.Map{
		"error": richErr.Message,
	})
}

// GenerateScript proxies the generation webhook and returns the script text.
func (a *APIController) GenerateScript(c *fiber.Ctx) error {
	request := generate.ScriptRequest{}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	script, err := a.Generator.GenerateScript(c.Context(), request)
	if err != nil {
		return a.jsonError(c, err)
	}

	return c.JSON(fiber.Map{
		"script": script,
	})
}

// PublishScriptRequest persists a generated script to the user's library.
type PublishScriptRequest struct {
	Topic    string `json:"topic"`
	Platform string `json:"platform"`
	Duration string `json:"duration"`
	Audience string `json:"audience"`
	Content  string `json:"content"`
}

func (r PublishScriptRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Topic, validation.Required),
		validation.Field(&r.Platform, validation.Required),
		validation.Field(&r.Content, validation.Required),
	)
}

// PublishScript stores a generated script for the signed-in user.
func (a *APIController) PublishScript(c *fiber.Ctx) error {
	user := guardware.UserFromContext(c)

	request := PublishScriptRequest{}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := request.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	script, err := a.Repo.PublishScript(c.Context(), &content.Script{
		UserID:   user.ID,
		Topic:    request.Topic,
		Platform: request.Platform,
		Duration: request.Duration,
		Audience: request.Audience,
		Content:  request.Content,
	})
	if err != nil {
		return a.jsonError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(script)
}

// ListScripts returns the user's published scripts.
func (a *APIController) ListScripts(c *fiber.Ctx) error {
	user := guardware.UserFromContext(c)

	scripts, err := a.Repo.ListScripts(c.Context(), user.ID)
	if err != nil {
		return a.jsonError(c, err)
	}

	return c.JSON(scripts)
}

// AnalyzeRequest carries content for the analyzer.
type AnalyzeRequest struct {
	Content string `json:"content"`
}

func (r AnalyzeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required, validation.Length(1, 100000)),
	)
}

// AnalyzeContent scores a piece of content and stores the report.
func (a *APIController) AnalyzeContent(c *fiber.Ctx) error {
	user := guardware.UserFromContext(c)

	request := AnalyzeRequest{}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := request.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	analysis, err := a.Repo.SaveAnalysis(c.Context(), content.NewAnalysis(user.ID, request.Content))
	if err != nil {
		return a.jsonError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(analysis)
}

// ListAnalyses returns the user's analyzer reports.
func (a *APIController) ListAnalyses(c *fiber.Ctx) error {
	user := guardware.UserFromContext(c)

	analyses, err := a.Repo.ListAnalyses(c.Context(), user.ID)
	if err != nil {
		return a.jsonError(c, err)
	}

	return c.JSON(analyses)
}

// ListContent returns library items with optional type and search filters.
func (a *APIController) ListContent(c *fiber.Ctx) error {
	items, err := a.Repo.ListItems(c.Context(), c.Query("type", "all"), c.Query("q"))
	if err != nil {
		return a.jsonError(c, err)
	}

	return c.JSON(items)
}

// ListTrending returns trending topics with optional category and search
// filters.
func (a *APIController) ListTrending(c *fiber.Ctx) error {
	topics, err := a.Repo.ListTrendingTopics(c.Context(), c.Query("category", "all"), c.Query("q"))
	if err != nil {
		return a.jsonError(c, err)
	}

	return c.JSON(topics)
}
