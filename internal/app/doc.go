// Package app wires wexport together: configuration, logging, telemetry,
// the SQLite store, services and the HTTP router.
//
// # Initialization Flow
//
//	1. Resolve paths and create the data, exports and logs directories
//	2. Initialize OpenTelemetry and the export metrics
//	3. Open the database and apply migrations
//	4. Create the services over their repositories
//	5. Build the router and the HTTP server
//
// # Usage
//
//	app, err := app.New(ctx, cfg, nil)
//	if err != nil {
//	    return err
//	}
//	return app.Run()
//
// # Graceful Shutdown
//
// Run stops on SIGINT or SIGTERM. In-flight requests get ShutdownTimeout to
// finish, the download janitor and export maintenance loops stop, telemetry
// is flushed and the database is closed.
package app
