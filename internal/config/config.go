package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the backend service. It is built once
// in main and passed into components; nothing reads the environment after
// startup.
type Config struct {
	// Server
	Port        string
	Environment string

	// Templates
	TemplatesPath string

	// GitHub REST API
	GitHubAPIURL     string
	GitHubDefaultOrg string
	// Server-side fallback token for repository provisioning when the
	// request carries neither a bearer header nor a session token.
	GitHubToken string

	// GitHub OAuth app
	GitHubClientID     string
	GitHubClientSecret string
	GitHubRedirectURI  string
	GitHubAuthorizeURL string
	GitHubTokenURL     string
	OAuthSuccessURL    string

	// Sessions
	SessionSecret     string
	SessionCookieName string
	SessionSameSite   string
	SessionHTTPSOnly  bool
	SessionMaxAge     int

	// CORS
	AllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("GO_ENV", "development"),

		TemplatesPath: getEnv("TEMPLATES_PATH", "./cookiecutter"),

		GitHubAPIURL:     strings.TrimRight(getEnv("GITHUB_API_URL", "https://api.github.com"), "/"),
		GitHubDefaultOrg: getEnv("GITHUB_DEFAULT_ORG", ""),
		GitHubToken:      getEnv("GITHUB_TOKEN", ""),

		GitHubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
		GitHubRedirectURI:  getEnv("GITHUB_REDIRECT_URI", ""),
		GitHubAuthorizeURL: getEnv("GITHUB_AUTHORIZE_URL", "https://github.com/login/oauth/authorize"),
		GitHubTokenURL:     getEnv("GITHUB_TOKEN_URL", "https://github.com/login/oauth/access_token"),
		OAuthSuccessURL:    getEnv("OAUTH_SUCCESS_URL", "/"),

		SessionSecret:     getEnv("SESSION_SECRET_KEY", "change-this-in-production"),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "recap_session"),
		SessionSameSite:   getEnv("SESSION_SAME_SITE", "lax"),
		SessionHTTPSOnly:  getEnvBool("SESSION_HTTPS_ONLY", false),
		SessionMaxAge:     getEnvInt("SESSION_MAX_AGE", 14*24*60*60),

		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", "*"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvList(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
