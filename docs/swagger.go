// Package docs provides Swagger documentation for the API.
package docs

// @title IoT Dashboard API
// @version 1.0
// @description Multi-tenant IoT telemetry platform with access-key scoped data access

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
