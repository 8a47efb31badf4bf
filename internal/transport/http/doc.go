// Package http implements HTTP request handlers for the almanac query
// service. It is a thin layer between transport and the service layer:
// handlers parse and validate requests, delegate to services, and
// render responses.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → Engine
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Error Handling
//
// Handler errors render the shared APIError envelope from
// internal/errors. Data-quality conditions inside the engine are not
// errors; they surface as smaller result sets and absent buckets.
package http
