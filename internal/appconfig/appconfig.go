package appconfig

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/template"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"
)

const (
	ServiceUser  = "user"
	ServiceGroup = "group"
	ServiceSteps = "steps"
	ServiceAuth  = "auth"
)

// AllServices lists every façade the server can expose.
var AllServices = []string{ServiceUser, ServiceGroup, ServiceSteps, ServiceAuth}

// Config holds all configuration details
type Config struct {
	Host           string          `yaml:"host"`
	BasePath       string          `yaml:"basePath"`
	DocsPath       string          `yaml:"docsPath"`
	Services       []string        `yaml:"services"`
	RequestTimeout time.Duration   `yaml:"requestTimeout"`
	Database       DatabaseConfig  `yaml:"database"`
	Auth           AuthConfig      `yaml:"auth"`
	Pulsar         PulsarConfig    `yaml:"pulsar"`
	Scheduler      SchedulerConfig `yaml:"scheduler"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	AWS            AWSConfig       `yaml:"aws"`
}

// DatabaseConfig defines the database connection details
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Source string `yaml:"source"`
	// PasswordSecret names a Secrets Manager secret holding the database password.
	PasswordSecret string `yaml:"passwordSecret"`
}

// AuthConfig defines how bearer tokens are validated
type AuthConfig struct {
	Issuer          string        `yaml:"issuer"`
	Audience        string        `yaml:"audience"`
	Algorithm       string        `yaml:"algorithm"`
	JWKSURL         string        `yaml:"jwksURL"`
	RefreshInterval time.Duration `yaml:"refreshInterval"`
}

// PulsarConfig defines the messaging system connection details
type PulsarConfig struct {
	URL           string `yaml:"url"`
	TopicProducer string `yaml:"topicProducer"`
	TopicConsumer string `yaml:"topicConsumer"`
	Subscription  string `yaml:"subscription"`
}

type SchedulerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Timezone string        `yaml:"timezone"`
	Daily    string        `yaml:"daily"`
	Weekly   string        `yaml:"weekly"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RateLimitConfig bounds requests per authenticated subject. Zero disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

type AWSConfig struct {
	Region string `yaml:"region"`
}

// LoadConfig loads and parses the configuration from a given file path
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		err := errors.New("config file path is required")
		log.Error().Err(err).Msg("config file not provided")
		return nil, err
	}

	// Parse the template file
	tmpl, err := template.ParseFiles(path)
	if err != nil {
		log.Error().Err(err).Msg("error parsing config file template")
		return nil, err
	}

	return render(tmpl, loadEnvVars())
}

// Parse renders and parses configuration held in memory.
func Parse(data string, env map[string]string) (*Config, error) {
	tmpl, err := template.New("config").Parse(data)
	if err != nil {
		return nil, err
	}
	return render(tmpl, env)
}

func render(tmpl *template.Template, env map[string]string) (*Config, error) {
	// Execute the template with environment variables
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, env); err != nil {
		log.Error().Err(err).Msg("error executing config file template")
		return nil, err
	}

	// Load and unmarshal the YAML
	var config Config
	if err := yaml.Unmarshal(buf.Bytes(), &config); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal config YAML")
		return nil, err
	}

	config.setDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) setDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api/v1"
	}
	if c.DocsPath == "" {
		c.DocsPath = "/api/docs"
	}
	if len(c.Services) == 0 {
		c.Services = append([]string(nil), AllServices...)
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Auth.Algorithm == "" {
		c.Auth.Algorithm = "RS256"
	}
	if c.Auth.JWKSURL == "" && c.Auth.Issuer != "" {
		c.Auth.JWKSURL = strings.TrimSuffix(c.Auth.Issuer, "/") + "/.well-known/jwks.json"
	}
	if c.Auth.RefreshInterval == 0 {
		c.Auth.RefreshInterval = 5 * time.Minute
	}
	if c.Scheduler.Daily == "" {
		c.Scheduler.Daily = "0 0 * * *"
	}
	if c.Scheduler.Weekly == "" {
		c.Scheduler.Weekly = "0 0 * * 1"
	}
	if c.Scheduler.Timeout == 0 {
		c.Scheduler.Timeout = time.Minute
	}
}

// Validate reports the first inconsistency in the configuration.
func (c *Config) Validate() error {
	for _, s := range c.Services {
		if !slices.Contains(AllServices, s) {
			return fmt.Errorf("unknown service %q, expected one of %s", s, strings.Join(AllServices, ", "))
		}
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Source == "" {
			return errors.New("database.source is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Auth.Issuer == "" || c.Auth.Audience == "" {
		return errors.New("auth.issuer and auth.audience are required")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rateLimit values must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Serves reports whether the façade named service is enabled.
func (c *Config) Serves(service string) bool {
	return slices.Contains(c.Services, service)
}

// Location resolves the scheduler timezone. An empty timezone is the local one.
func (c *Config) Location() (*time.Location, error) {
	if c.Scheduler.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", c.Scheduler.Timezone, err)
	}
	return loc, nil
}

// loadEnvVars loads environment variables into a map. When DB_PASSWORD is unset the first
// line of the file named by DB_PASSWORD_FILE stands in for it.
func loadEnvVars() map[string]string {
	envVars := make(map[string]string)
	for _, env := range os.Environ() {
		kv := strings.SplitN(env, "=", 2)
		if len(kv) == 2 {
			envVars[kv[0]] = kv[1]
		}
	}

	if _, ok := envVars["DB_PASSWORD"]; !ok && envVars["DB_PASSWORD_FILE"] != "" {
		password, err := readFirstLine(envVars["DB_PASSWORD_FILE"])
		if err != nil {
			log.Warn().Err(err).Str("file", envVars["DB_PASSWORD_FILE"]).Msg("failed to read database password file")
		} else {
			envVars["DB_PASSWORD"] = password
		}
	}
	return envVars
}

func readFirstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	return "", scanner.Err()
}
