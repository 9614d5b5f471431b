// Package gateway owns the HTTP surface: the /ws WebSocket endpoint with the
// action dispatch loop, and the REST API (execute, problem proxy, rooms,
// stats, health).
package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	gonanoid "github.com/jaevor/go-nanoid"

	"github.com/example/collab-editor-demo/modules/problem"
	"github.com/example/collab-editor-demo/modules/relay"
	"github.com/example/collab-editor-demo/modules/runner"
	"github.com/example/collab-editor-demo/modules/session"
	"github.com/example/collab-editor-demo/modules/stats"
)

const roomIDLength = 12

// Module is the HTTP/WebSocket gateway.
type Module struct {
	app       *fiber.App
	session   *session.Module
	hub       *relay.Hub
	runner    *runner.Module
	problem   *problem.Module
	stats     *stats.Module
	port      string
	newRoomID func() string
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the gateway module wired to its collaborators.
func NewModule(sessionModule *session.Module, hub *relay.Hub, runnerModule *runner.Module, problemModule *problem.Module, statsModule *stats.Module) *Module {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	newRoomID, err := gonanoid.Standard(roomIDLength)
	if err != nil {
		log.Fatalf("[gateway] Failed to initialize room id generator: %v", err)
	}

	return &Module{
		session:   sessionModule,
		hub:       hub,
		runner:    runnerModule,
		problem:   problemModule,
		stats:     statsModule,
		port:      port,
		newRoomID: newRoomID,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "gateway"
}

// Start initializes and starts the Fiber server.
func (m *Module) Start(_ context.Context) error {
	m.app = fiber.New(fiber.Config{
		AppName:               "Collab Editor Demo",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	m.app.Use(recover.New())
	m.app.Use(loggerMiddleware())

	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:8080"
	}
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.registerRoutes()

	// Start server in goroutine with startup error detection
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(":" + m.port); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("gateway failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		// Server started successfully
	}

	log.Printf("[gateway] HTTP server started on :%s", m.port)
	return nil
}

// Stop gracefully shuts down the Fiber server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[gateway] Shutting down HTTP server...")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port":              m.port,
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// registerRoutes sets up all HTTP and WebSocket routes.
func (m *Module) registerRoutes() {
	m.app.Get("/health", m.healthHandler)

	// WebSocket upgrade middleware
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handleWebSocket))

	// Side APIs consumed by the editor
	api := m.app.Group("/api")
	api.Post("/execute", m.executeHandler)
	api.Post("/problem", m.problemHandler)

	// REST API v1
	v1 := m.app.Group("/api/v1")
	v1.Get("/rooms", m.listRooms)
	v1.Post("/rooms", m.createRoom)
	v1.Get("/rooms/:id/history", m.getHistory)
	v1.Get("/stats", m.getStats)
}

// errorHandler handles Fiber errors globally.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}

// loggerMiddleware returns a Fiber middleware for request logging.
func loggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip logging for WebSocket upgrade requests
		if c.Get("Upgrade") == "websocket" {
			return c.Next()
		}
		err := c.Next()
		log.Printf("[gateway] %s %s %d", c.Method(), c.Path(), c.Response().StatusCode())
		return err
	}
}
