// Package server assembles the kernel service.
//
// It orchestrates all components:
//   - The kernel instance and its syscall gateway
//   - HTTP routing with Gin framework
//   - Middleware stack (recovery, request ids, metrics, CORS, rate limiting)
//   - The WebSocket event stream
//
// Server lifecycle:
//  1. Load configuration from environment
//  2. Initialize logger (production or development)
//  3. Build the kernel, boot the root process
//  4. Setup HTTP routes and middleware
//  5. Start HTTP server
//  6. Graceful shutdown on signal
//
// Example usage:
//
//	cfg := config.LoadOrDefault()
//	srv := server.New(cfg, logger)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
