package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

const (
	serviceName    = "recap-backend"
	serviceVersion = "1.0.0"
)

// HealthHandler handles health and service-info endpoints
type HealthHandler struct {
	templatesPath string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(templatesPath string) *HealthHandler {
	return &HealthHandler{templatesPath: templatesPath}
}

// Health returns basic health status
func (h *HealthHandler) Health(c *gin.Context) {
	exists := false
	if info, err := os.Stat(h.templatesPath); err == nil && info.IsDir() {
		exists = true
	}
	c.JSON(http.StatusOK, gin.H{
		"status":                     "healthy",
		"service":                    serviceName,
		"version":                    serviceVersion,
		"templates_directory_exists": exists,
	})
}

// Root returns API information and the endpoint map.
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Recap Template API",
		"version": serviceVersion,
		"status":  "operational",
		"endpoints": gin.H{
			"/cookiecutter":                 "List available templates",
			"/cookiecutter/{name}":          "Get template configuration",
			"/cookiecutter/{name}/download": "Generate a template and download it",
			"/cookiecutter/{name}/github":   "Generate a template and create a GitHub repository",
			"/auth/github/login":            "Start GitHub OAuth login flow",
			"/auth/github/callback":         "OAuth callback endpoint",
			"/auth/github/me":               "Get the authenticated GitHub user (if logged in)",
			"/auth/github/logout":           "Clear the stored GitHub session",
			"/health":                       "Service health",
			"/metrics":                      "Prometheus metrics",
		},
	})
}
