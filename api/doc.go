// Package api provides the wire types and OpenAPI documentation for the
// CacheFlow HTTP API.
//
// # API Overview
//
// CacheFlow provides a RESTful API for:
//   - Cache management (create, list, destroy, clear)
//   - Entry access (get, put, delete) with runtime type checking
//   - Configuration inspection and hot reload
//   - Health monitoring and metrics
//
// # Authentication
//
// Management endpoints require authentication via the X-API-Key header:
//
//	X-API-Key: your-api-key
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
//
// # Generating Documentation
//
// To regenerate Swagger documentation using swag:
//
//	swag init -g cmd/cacheflow/main.go -o api --parseDependency --parseInternal
package api
