package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	ServerPort            string
	ProjectEndpoint       string
	ProjectAPIKey         string
	AgentModelDeployment  string
	ResearchModel         string
	BingConnectionID      string
	BrowserMCPServerURL   string
	BrowserMCPServerLabel string
	ImageEndpoint         string
	ImageAPIKey           string
	ImageAPIVersion       string
	ImageModelDeployment  string
	PollInterval          time.Duration
	MaxWait               time.Duration
	ReportDir             string
	StoreDriver           string
	PostgresURL           string
}

// Required variables without which the orchestrator cannot talk to the
// remote agent runtime. Image generation and persistence stay optional.
var requiredVars = []string{
	"PROJECT_ENDPOINT",
	"PROJECT_API_KEY",
	"AGENT_MODEL_DEPLOYMENT_NAME",
	"DEEP_RESEARCH_MODEL_DEPLOYMENT_NAME",
	"BING_CONNECTION_ID",
}

func Load() Config {
	postgresURL := getEnv("POSTGRES_URL", "")
	if postgresURL == "" {
		postgresURL = buildPostgresURL()
	}
	return Config{
		ServerPort:            getEnv("RESEARCH_SERVER_PORT", "8080"),
		ProjectEndpoint:       getEnv("PROJECT_ENDPOINT", ""),
		ProjectAPIKey:         getEnv("PROJECT_API_KEY", ""),
		AgentModelDeployment:  getEnv("AGENT_MODEL_DEPLOYMENT_NAME", ""),
		ResearchModel:         getEnv("DEEP_RESEARCH_MODEL_DEPLOYMENT_NAME", ""),
		BingConnectionID:      getEnv("BING_CONNECTION_ID", ""),
		BrowserMCPServerURL:   getEnv("BROWSER_MCP_SERVER_URL", ""),
		BrowserMCPServerLabel: getEnv("BROWSER_MCP_SERVER_LABEL", "playwright"),
		ImageEndpoint:         getEnv("IMAGE_PROJECT_ENDPOINT", ""),
		ImageAPIKey:           getEnv("IMAGE_KEY", ""),
		ImageAPIVersion:       getEnv("IMAGE_API_VERSION", "2025-04-01-preview"),
		ImageModelDeployment:  getEnv("IMAGE_MODEL", ""),
		PollInterval:          getEnvDuration("RESEARCH_POLL_INTERVAL", 2*time.Second),
		MaxWait:               getEnvDuration("RESEARCH_MAX_WAIT", 30*time.Minute),
		ReportDir:             getEnv("REPORT_DIR", "./html"),
		StoreDriver:           getEnv("STORE_DRIVER", "memory"),
		PostgresURL:           postgresURL,
	}
}

// Validate reports every missing required variable in one error so a
// misconfigured deployment fails once with the complete list.
func Validate() error {
	missing := []string{}
	for _, name := range requiredVars {
		if strings.TrimSpace(os.Getenv(name)) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func buildPostgresURL() string {
	user := getEnv("POSTGRES_USER", "deepresearch")
	password := getEnv("POSTGRES_PASSWORD", "deepresearch")
	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	database := getEnv("POSTGRES_DB", "deepresearch")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, database)
}
