package router

import (
	"github.com/gofiber/fiber/v2"
	handler "github.com/krishkalaria12/snap-edit/handlers"
	"github.com/krishkalaria12/snap-edit/metrics"
	"github.com/krishkalaria12/snap-edit/middleware"
)

// Guards are the middleware protecting signed-in routes.
type Guards struct {
	Auth      fiber.Handler
	ApplyRate fiber.Handler
}

func SetupRoutes(app *fiber.App, h *handler.Handler, g Guards, m *metrics.Metrics) {
	if m != nil {
		app.Get("/metrics", m.Handler())
	}

	api := app.Group("/api")
	api.Get("/hello", handler.Hello)
	api.Get("/plans", handler.GetPlans)

	// Identity provider
	api.Post("/webhooks/identity", h.IdentityWebhook)

	// Images
	images := api.Group("/images")
	images.Get("/", h.ListImages)
	images.Post("/upload", g.Auth, h.UploadImage)
	images.Get("/:id", h.GetImage)
	images.Put("/:id", g.Auth, h.UpdateImage)
	images.Delete("/:id", g.Auth, h.DeleteImage)

	// User
	user := api.Group("/user", g.Auth)
	user.Get("/me", h.GetMe)
	user.Get("/me/images", h.GetMyImages)

	// Transformations
	tr := api.Group("/transformations", g.Auth)
	tr.Post("/", h.StartTransformation)
	tr.Get("/:sid", h.GetTransformation)
	tr.Put("/:sid/image", h.SetTransformationImage)
	tr.Put("/:sid/title", h.SetTransformationTitle)
	tr.Put("/:sid/aspect-ratio", h.SelectAspectRatio)
	tr.Patch("/:sid/fields", h.EditTransformationField)
	apply := []fiber.Handler{}
	if g.ApplyRate != nil {
		apply = append(apply, g.ApplyRate)
	}
	tr.Post("/:sid/apply", append(apply, h.ApplyTransformation)...)
}

// NewApp builds the Fiber app with the shared middleware stack.
func NewApp(m *metrics.Metrics, requestLog fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "snap-edit",
		BodyLimit: 12 << 20,
	})
	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	if requestLog != nil {
		app.Use(requestLog)
	}
	if m != nil {
		app.Use(m.Middleware())
	}
	return app
}
