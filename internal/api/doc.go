// Package api exposes the scene catalog, background jobs, and media files
// over HTTP.
//
// Routes are registered on a gorilla/mux router under /api. Every response
// passes through request-id, logging, CORS, and optional bearer-token
// middleware; errors are JSON objects of the form {"error": "..."}.
package api
