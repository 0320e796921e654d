package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Web      WebConfig      `yaml:"web"`
	Oracle   OracleConfig   `yaml:"oracle"`
	Matching MatchingConfig `yaml:"matching"`
	Session  SessionConfig  `yaml:"session"`
	Log      LogConfig      `yaml:"log"`
	Client   ClientConfig   `yaml:"-"`
}

type WebConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"` // CORS whitelist, localhost is always allowed
}

type OracleConfig struct {
	URL            string        `yaml:"url"`             // face embedding server base URL
	Timeout        time.Duration `yaml:"timeout"`         // per request
	DistanceMetric string        `yaml:"distance_metric"` // euclidean or cosine
	MaxImageSize   int           `yaml:"max_image_size"`  // longest edge in pixels before upload
}

type MatchingConfig struct {
	BatchThreshold  float64 `yaml:"batch_threshold"`
	SingleThreshold float64 `yaml:"single_threshold"` // used by the CLI when printing a verdict for one image
}

type SessionConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

type LogConfig struct {
	Format  string `yaml:"format"` // console or json
	Verbose bool   `yaml:"verbose"`
}

type ClientConfig struct {
	URL string // face-compare API base URL used by CLI subcommands
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a positive float, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads a positive time.ParseDuration value, falling back to defaultVal.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Defaults returns the configuration embedded in the binary, without environment overrides.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return &cfg
}

func Load() *Config {
	cfg := Defaults()

	cfg.Web.Host = envString("WEB_HOST", cfg.Web.Host)
	cfg.Web.Port = envInt("WEB_PORT", cfg.Web.Port)
	if env := os.Getenv("WEB_ALLOWED_ORIGINS"); env != "" {
		cfg.Web.AllowedOrigins = splitList(env)
	}

	cfg.Oracle.URL = strings.TrimSuffix(envString("FACE_ORACLE_URL", cfg.Oracle.URL), "/")
	cfg.Oracle.Timeout = envDuration("FACE_ORACLE_TIMEOUT", cfg.Oracle.Timeout)
	cfg.Oracle.DistanceMetric = strings.ToLower(envString("FACE_DISTANCE_METRIC", cfg.Oracle.DistanceMetric))
	cfg.Oracle.MaxImageSize = envInt("FACE_MAX_IMAGE_SIZE", cfg.Oracle.MaxImageSize)

	cfg.Matching.BatchThreshold = envFloat("FACE_MATCH_THRESHOLD", cfg.Matching.BatchThreshold)
	cfg.Matching.SingleThreshold = envFloat("FACE_SINGLE_THRESHOLD", cfg.Matching.SingleThreshold)

	cfg.Session.TTL = envDuration("SESSION_TTL", cfg.Session.TTL)
	cfg.Session.CleanupInterval = envDuration("SESSION_CLEANUP_INTERVAL", cfg.Session.CleanupInterval)

	cfg.Log.Format = strings.ToLower(envString("LOG_FORMAT", cfg.Log.Format))
	cfg.Log.Verbose = envBool("LOG_VERBOSE", cfg.Log.Verbose)

	cfg.Client.URL = strings.TrimSuffix(envString("FACE_COMPARE_URL", "http://localhost:8080"), "/")

	return cfg
}

// Addr returns the host:port the web server listens on.
func (c *WebConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
