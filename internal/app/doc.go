// Package app provides application initialization and lifecycle
// management for the almanac server. It wires configuration, logging,
// observability, the bar source stack and the HTTP transport together
// at startup and handles graceful shutdown.
//
// # Initialization Flow
//
//	1. Load configuration from environment and files
//	2. Initialize logging and observability
//	3. Assemble the bar source (CSV, chunked loading, cache chain)
//	4. Construct the query service with its dependencies
//	5. Set up HTTP handlers and middleware
//	6. Configure the HTTP server
//
// All wiring is constructor injection; no component reaches for
// process-wide state.
package app
