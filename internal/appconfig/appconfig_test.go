package appconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
host: 0.0.0.0:8080
database:
  driver: postgres
  source: postgres://mooover:{{.DB_PASSWORD}}@db:5432/mooover?sslmode=disable
auth:
  issuer: https://mooover.example.com/
  audience: https://api.mooover.example.com
scheduler:
  enabled: true
  timezone: UTC
  timeout: 30s
rateLimit:
  requestsPerSecond: 5
  burst: 10
`

func TestParse_TemplateAndDefaults(t *testing.T) {
	cfg, err := Parse(sample, map[string]string{"DB_PASSWORD": "s3cr&t"})
	require.NoError(t, err)

	assert.Equal(t, "postgres://mooover:s3cr&t@db:5432/mooover?sslmode=disable", cfg.Database.Source)
	assert.Equal(t, "/api/v1", cfg.BasePath)
	assert.Equal(t, "/api/docs", cfg.DocsPath)
	assert.Equal(t, AllServices, cfg.Services)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "RS256", cfg.Auth.Algorithm)
	assert.Equal(t, "https://mooover.example.com/.well-known/jwks.json", cfg.Auth.JWKSURL)
	assert.Equal(t, "0 0 * * *", cfg.Scheduler.Daily)
	assert.Equal(t, "0 0 * * 1", cfg.Scheduler.Weekly)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.Timeout)
	assert.Equal(t, 5.0, cfg.RateLimit.RequestsPerSecond)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestParse_ServicesSubset(t *testing.T) {
	cfg, err := Parse(`
services: [steps, auth]
database: {driver: memory}
auth: {issuer: https://issuer/, audience: api}
`, nil)
	require.NoError(t, err)

	assert.True(t, cfg.Serves(ServiceSteps))
	assert.False(t, cfg.Serves(ServiceUser))
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown service": "services: [billing]\ndatabase: {driver: memory}\nauth: {issuer: i, audience: a}",
		"unknown driver":  "database: {driver: neo4j}\nauth: {issuer: i, audience: a}",
		"missing source":  "database: {driver: postgres}\nauth: {issuer: i, audience: a}",
		"missing auth":    "database: {driver: memory}",
		"bad timezone":    "database: {driver: memory}\nauth: {issuer: i, audience: a}\nscheduler: {timezone: Mars/Olympus}",
		"bad yaml":        "database: [",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(data, nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_PasswordFile(t *testing.T) {
	dir := t.TempDir()
	passwordFile := filepath.Join(dir, "password")
	require.NoError(t, os.WriteFile(passwordFile, []byte("from-file\nignored\n"), 0o600))
	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(sample), 0o600))

	t.Setenv("DB_PASSWORD_FILE", passwordFile)
	t.Setenv("DB_PASSWORD", "")
	os.Unsetenv("DB_PASSWORD")

	cfg, err := LoadConfig(configFile)
	require.NoError(t, err)
	assert.Contains(t, cfg.Database.Source, "mooover:from-file@db")
}

func TestLoadConfig_MissingPath(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)
}
