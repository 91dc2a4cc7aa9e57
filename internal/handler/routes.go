package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberSwagger "github.com/gofiber/swagger"
)

// Routes groups every handler the HTTP surface mounts
type Routes struct {
	Generation  *GenerationHandler
	Queue       *QueueHandler
	Provider    *ProviderHandler
	Audio       *AudioHandler
	Health      *HealthHandler
	Stream      *StreamHandler
	SubmitLimit fiber.Handler
}

// NewApp creates the fiber app with the global middleware. Access logs are
// written when accessLog is set.
func NewApp(accessLog bool) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler,
		BodyLimit:    1 * 1024 * 1024, // 1MB
	})

	// Global middleware
	app.Use(recover.New())
	if accessLog {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	return app
}

// Mount registers the routes on app
func (r *Routes) Mount(app *fiber.App) {
	// Health check
	app.Get("/", r.Health.Root)
	app.Get("/health", r.Health.Health)

	// Swagger UI
	app.Get("/swagger/*", fiberSwagger.HandlerDefault)

	api := app.Group("/api")

	submit := []fiber.Handler{r.Generation.Submit}
	if r.SubmitLimit != nil {
		submit = append([]fiber.Handler{r.SubmitLimit}, submit...)
	}
	api.Post("/generate", submit...)

	// Job routes
	api.Get("/jobs", r.Generation.History)
	jobs := api.Group("/jobs")
	jobs.Get("/:jobId", r.Generation.Status)
	jobs.Get("/:jobId/preset", r.Generation.Preset)
	jobs.Post("/:jobId/cancel", r.Generation.Cancel)
	jobs.Delete("/:jobId", r.Generation.Remove)

	// Queue routes
	api.Get("/queue", r.Queue.List)
	queue := api.Group("/queue")
	queue.Put("/:jobId/position", r.Queue.Reorder)
	queue.Post("/:jobId/up", r.Queue.MoveUp)
	queue.Post("/:jobId/down", r.Queue.MoveDown)

	// Provider routes
	api.Get("/providers", r.Provider.List)
	api.Post("/providers/switch", r.Provider.Switch)

	api.Get("/versions/:versionId/audio", r.Audio.Version)

	// WebSocket routes
	if r.Stream != nil {
		app.Use("/ws", r.Stream.RequireUpgrade)
		app.Get("/ws/jobs/:jobId", r.Stream.RequireJob, r.Stream.Job())
	}
}
