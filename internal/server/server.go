package server

import (
	"context"
	"log"
	"strings"

	"ai-chatbot-be/internal/bootstrap"
	"ai-chatbot-be/internal/config"
	"ai-chatbot-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // 1MB
	})

	// Origins come from CORS_ALLOWED_ORIGINS plus those declared by active
	// agents at startup.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(cfg.App.CorsAllowedOrigins, container.Agents.AllowedOrigins()),
		AllowCredentials: false,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + serverutils.APIKeyHeader,
		AllowMethods:     "GET, POST, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type",
	}))

	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware(container.Logger))

	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("✅ Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")

	c.ChatbotController.RegisterRoutes(api, serverutils.APIKeyMiddleware(c.Agents))
}

func allowedOrigins(configured string, fromAgents []string) string {
	seen := make(map[string]struct{})
	var origins []string
	add := func(o string) {
		o = strings.TrimSpace(o)
		if o == "" {
			return
		}
		if _, ok := seen[o]; ok {
			return
		}
		seen[o] = struct{}{}
		origins = append(origins, o)
	}
	for _, o := range strings.Split(configured, ",") {
		add(o)
	}
	for _, o := range fromAgents {
		add(o)
	}
	if len(origins) == 0 {
		return "*"
	}
	return strings.Join(origins, ",")
}
