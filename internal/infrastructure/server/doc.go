// Package server wires the grading backend together.
//
// Startup order:
//  1. Logger, metrics and tracer
//  2. Exercise registry from the content directory, then the optional
//     remote bundle
//  3. Skeleton validation; findings are logged, not fatal
//  4. Run history (SQLite when a path is configured, memory otherwise)
//  5. Execution host pool and grading coordinator
//  6. Middleware and routes
//
// Close reverses the order: HTTP server, sessions, hosts, history.
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go srv.Run()
//	defer srv.Close()
package server
