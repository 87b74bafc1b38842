package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vesaa/sysadvisor/internal/errors"
)

// chdir moves into an empty temp dir so no stray config.yaml is picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdir(t)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("EMAIL_USERNAME", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.SampleInterval)
	assert.Equal(t, 30*time.Second, cfg.AnalysisTimeout)
	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAIModel)
	assert.Equal(t, 500, cfg.MaxTokens)
	assert.InDelta(t, 0.3, cfg.Temperature, 0.0001)
	assert.Equal(t, "smtp.gmail.com", cfg.SMTPHost)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, "system_performance.csv", cfg.CSVPath)
	assert.Empty(t, cfg.DBPath)
}

func TestLoadEnvAliases(t *testing.T) {
	chdir(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("EMAIL_USERNAME", "ops@example.com")
	t.Setenv("SYSADVISOR_EMAIL_TO", "oncall@example.com")
	t.Setenv("SYSADVISOR_SMTP_PORT", "2525")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, "ops@example.com", cfg.EmailUsername)
	assert.Equal(t, "oncall@example.com", cfg.EmailTo)
	assert.Equal(t, 2525, cfg.SMTPPort)
}

func TestLoadConfigFile(t *testing.T) {
	dir := chdir(t)
	t.Setenv("OPENAI_API_KEY", "")
	yaml := "openai_model: gpt-4o-mini\nsample_interval: 2s\ndb_path: history.db\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 2*time.Second, cfg.SampleInterval)
	assert.Equal(t, "history.db", cfg.DBPath)
}

func TestRequireMail(t *testing.T) {
	cfg := &Config{EmailUsername: "a@example.com"}

	err := cfg.RequireMail()
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
	assert.Contains(t, err.Error(), "EMAIL_PASSWORD, EMAIL_TO")
	assert.NotContains(t, err.Error(), "EMAIL_USERNAME")

	cfg.EmailPassword = "secret"
	cfg.EmailTo = "b@example.com"
	assert.NoError(t, cfg.RequireMail())
}

func TestRequireAnalysis(t *testing.T) {
	err := (&Config{}).RequireAnalysis()
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
	assert.NoError(t, (&Config{OpenAIAPIKey: "sk"}).RequireAnalysis())
}

func TestSubprocessTimeoutCoversChildWorstCase(t *testing.T) {
	chdir(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Greater(t, cfg.InvokeTimeout, cfg.SampleInterval+cfg.AnalysisTimeout)
	assert.Greater(t, cfg.SubprocessTimeout(), cfg.SampleInterval+cfg.AnalysisTimeout)

	short := &Config{SampleInterval: time.Second, AnalysisTimeout: time.Minute, InvokeTimeout: 30 * time.Second}
	assert.Greater(t, short.SubprocessTimeout(), short.SampleInterval+short.AnalysisTimeout)

	long := &Config{SampleInterval: time.Second, AnalysisTimeout: time.Second, InvokeTimeout: 2 * time.Minute}
	assert.Equal(t, 2*time.Minute, long.SubprocessTimeout())
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdir(t)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("EMAIL_TO", "")
	t.Setenv("EMAIL_USERNAME", "")
	dotenv := "OPENAI_API_KEY=sk-dotenv\nEMAIL_TO=oncall@example.com\nEMAIL_USERNAME=ops@example.com\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0o600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-dotenv", cfg.OpenAIAPIKey)
	assert.Equal(t, "oncall@example.com", cfg.EmailTo)
	assert.Equal(t, "ops@example.com", cfg.EmailUsername)
}

func TestEnvironmentOverridesDotEnv(t *testing.T) {
	dir := chdir(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENAI_API_KEY=sk-dotenv\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.OpenAIAPIKey)
}
