package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/collab-editor-demo/modules/gateway"
	"github.com/example/collab-editor-demo/modules/problem"
	"github.com/example/collab-editor-demo/modules/relay"
	"github.com/example/collab-editor-demo/modules/runner"
	"github.com/example/collab-editor-demo/modules/session"
	"github.com/example/collab-editor-demo/modules/stats"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Collab Editor Demo - Fiber + EventBus Pubsub ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	relayModule := relay.NewModule()
	hub := relayModule.GetHub()
	sessionModule := session.NewModule(hub.Occupied)
	runnerModule := runner.NewModule()
	problemModule := problem.NewModule()
	statsModule := stats.NewModule()
	gatewayModule := gateway.NewModule(sessionModule, hub, runnerModule, problemModule, statsModule)

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - session: Room registry (usernames, transcripts, file trees) + event emitter
	// - relay: WebSocket hub + ExecutionFinished consumer
	// - runner: C++ compile-and-run + event emitter
	// - problem: Upstream problem proxy
	// - stats: Counter consumer for every emitted event
	// - gateway: Fiber HTTP/WebSocket surface, depends on all of the above
	app.Register(sessionModule)
	app.Register(relayModule)
	app.Register(runnerModule)
	app.Register(problemModule)
	app.Register(statsModule)
	app.Register(gatewayModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Event Bus: in-process pubsub (session/runner events -> relay/stats)")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health                   - Health check")
	log.Println("  POST   /api/execute              - Compile and run a C++ snippet")
	log.Println("  POST   /api/problem              - Fetch problem metadata by slug")
	log.Println("  GET    /api/v1/rooms             - List rooms with live state")
	log.Println("  POST   /api/v1/rooms             - Mint a new room id")
	log.Println("  GET    /api/v1/rooms/:id/history - Get chat history")
	log.Println("  GET    /api/v1/stats             - Process-lifetime counters")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Frames: {type, payload}; actions: join, code-change, sync-code,")
	log.Println("  send-message, typing-start/stop, drawing-update, question-change,")
	log.Println("  sync-input, signal-code, file-created/updated/renamed/deleted")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
