package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8090", cfg.MgmtListenAddr)
	assert.Equal(t, "flowcore.db", cfg.DBPath)
	assert.False(t, cfg.GitHubEnabled())
	assert.False(t, cfg.SlackEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GITHUB_APP_ID", "1234")
	t.Setenv("GITHUB_INSTALLATION_ID", "5678")
	t.Setenv("GITHUB_PRIVATE_KEY_PATH", "/tmp/key.pem")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_CHANNEL", "#reviews")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.GitHubEnabled())
	assert.True(t, cfg.SlackEnabled())
}

func TestLoadProjects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.yaml")
	content := `
projects:
  - id: flowcore
    owner: p-blackswan
    repo: flowcore
    external_reviewers:
      - copilot-pull-request-reviewer
  - id: dashboard
    owner: p-blackswan
    repo: dashboard
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	projects, err := LoadProjects(path)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "flowcore", projects[0].ID)
	assert.Equal(t, []string{"copilot-pull-request-reviewer"}, projects[0].ExternalReviewers)
	assert.Empty(t, projects[1].ExternalReviewers)
}

func TestLoadProjects_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.yaml")
	require.NoError(t, os.WriteFile(path, []byte("projects:\n  - id: broken\n"), 0o600))

	_, err := LoadProjects(path)
	assert.Error(t, err)

	_, err = LoadProjects(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
