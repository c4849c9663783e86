// Package app provides application initialization and lifecycle management for
// the preprocessing service. It handles the orchestration of all major
// components including configuration loading, service initialization, and
// graceful shutdown procedures.
//
// # Architecture
//
// The app package follows a dependency injection pattern where all components
// are wired together at startup. This ensures loose coupling and testability.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from environment and files
//	2. Initialize logging and OpenTelemetry
//	3. Create the artifact store, dataset loader and matrix exporter
//	4. Initialize the pipeline and health services with their dependencies
//	5. Set up HTTP handlers and middleware
//	6. Configure the HTTP server
//
// # Usage
//
// The main entry point is typically:
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// The package handles SIGINT and SIGTERM signals to ensure:
//
//	- Active requests are completed before the server closes
//	- Pending telemetry is flushed through the OpenTelemetry shutdown
//
// # Error Handling
//
// All initialization errors are returned to the caller for proper
// handling. The app does not call os.Exit() directly, allowing
// the main function to control the exit process.
package app
