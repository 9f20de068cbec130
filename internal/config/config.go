// Package config loads flowcore configuration from environment variables
// and the watched-projects YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Store
	DBPath string `envconfig:"DB_PATH" default:"flowcore.db"`

	// Management API
	MgmtListenAddr  string `envconfig:"MGMT_LISTEN_ADDR" default:":8090"`
	MgmtAuthMode    string `envconfig:"MGMT_AUTH_MODE" default:"api-key"`
	MgmtAPIKey      string `envconfig:"MGMT_API_KEY"`
	MgmtCORSOrigins string `envconfig:"MGMT_CORS_ORIGINS"`

	// GitHub App (optional — review orchestration is disabled without it)
	GitHubAppID          int64  `envconfig:"GITHUB_APP_ID"`
	GitHubInstallationID int64  `envconfig:"GITHUB_INSTALLATION_ID"`
	GitHubPrivateKeyPath string `envconfig:"GITHUB_PRIVATE_KEY_PATH"`

	// Review orchestration
	ProjectsFile  string        `envconfig:"PROJECTS_FILE" default:"projects.yaml"`
	PollInterval  time.Duration `envconfig:"POLL_INTERVAL" default:"30s"`
	ReviewTimeout time.Duration `envconfig:"REVIEW_TIMEOUT" default:"30m"`

	// Slack notifications (optional)
	SlackBotToken string `envconfig:"SLACK_BOT_TOKEN"`
	SlackChannel  string `envconfig:"SLACK_CHANNEL"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// GitHubEnabled returns true if GitHub App credentials are configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubAppID != 0 && c.GitHubInstallationID != 0 && c.GitHubPrivateKeyPath != ""
}

// SlackEnabled returns true if Slack notifications are configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackChannel != ""
}

// Project is one watched repository in the projects file.
type Project struct {
	ID    string `yaml:"id"`
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`

	// ExternalReviewers are GitHub logins whose submitted reviews mean an
	// external reviewer/bot has taken over the run.
	ExternalReviewers []string `yaml:"external_reviewers"`
}

type projectsFile struct {
	Projects []Project `yaml:"projects"`
}

// LoadProjects parses the watched-projects YAML file.
func LoadProjects(path string) ([]Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading projects file: %w", err)
	}

	var pf projectsFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing projects file: %w", err)
	}

	for i, p := range pf.Projects {
		if p.ID == "" || p.Owner == "" || p.Repo == "" {
			return nil, fmt.Errorf("projects[%d]: id, owner and repo are required", i)
		}
	}

	return pf.Projects, nil
}
