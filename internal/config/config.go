// Package config loads docserver configuration from CLI flags and environment
// variables, validates it, and fills in defaults.
//
// Flags pick the content source (--root for a directory, --s3 for a bucket);
// environment variables carry the rest, including AWS credentials.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/diplodoc-platform/testpack/internal/ratelimit"
)

const (
	defaultPort     = "3000"
	defaultS3Region = "auto"
)

// Config holds all server configuration.
type Config struct {
	// Server settings
	ListenAddr string
	BaseURL    string
	LogLevel   string

	// Content root. Root is a local directory (PROJECT); when UseS3 is set the
	// site is read from SiteBucket under SitePrefix instead.
	Root       string
	UseS3      bool
	SiteBucket string // SITE_S3_BUCKET, falls back to BUCKET_NAME
	SitePrefix string // SITE_S3_PREFIX

	// S3 connection (AWS_ env vars)
	AWSEndpointS3      string // AWS_ENDPOINT_URL_S3
	AWSRegion          string // AWS_REGION
	AWSAccessKeyID     string // AWS_ACCESS_KEY_ID
	AWSSecretAccessKey string // AWS_SECRET_ACCESS_KEY

	// Search suggest
	EnableSearch    bool
	SearchMaxResult int
	RateLimitConfig ratelimit.Config

	// Optional MCP endpoint at /-/mcp
	EnableMCP bool

	ShutdownTimeout time.Duration
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// ParseFlags parses CLI flags and returns them. Call before LoadConfig.
func ParseFlags() (root, addr string, useS3 bool) {
	flag.StringVar(&root, "root", "", "Directory with the built site (overrides PROJECT env var)")
	flag.StringVar(&addr, "addr", "", "Listen address (default :3000, overrides PORT and LISTEN_ADDR)")
	flag.BoolVar(&useS3, "s3", false, "Serve the site from SITE_S3_BUCKET instead of a directory")
	flag.Parse()
	return root, addr, useS3
}

// LoadConfig loads configuration from environment variables and CLI flag values.
// Non-empty flag values override their environment counterparts.
func LoadConfig(root, addr string, useS3 bool) (*Config, error) {
	cfg := &Config{}

	// Server settings
	cfg.ListenAddr = getEnvOrDefault("LISTEN_ADDR", ":"+getEnvOrDefault("PORT", defaultPort))
	if addr != "" {
		cfg.ListenAddr = addr
	}
	cfg.BaseURL = strings.TrimSpace(os.Getenv("BASE_URL"))
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost" + cfg.ListenAddr
	}
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.ShutdownTimeout = parseDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second)

	// Content root
	cfg.Root = getEnvOrDefault("PROJECT", "")
	if root != "" {
		cfg.Root = root
	}
	cfg.UseS3 = useS3 || parseBoolOrDefault("SITE_S3", false)
	cfg.SiteBucket = getEnvOrDefault("SITE_S3_BUCKET", getEnvOrDefault("BUCKET_NAME", ""))
	cfg.SitePrefix = strings.Trim(getEnvOrDefault("SITE_S3_PREFIX", ""), "/")

	cfg.AWSEndpointS3 = getEnvOrDefault("AWS_ENDPOINT_URL_S3", "")
	cfg.AWSRegion = getEnvOrDefault("AWS_REGION", defaultS3Region)
	cfg.AWSAccessKeyID = getEnvOrDefault("AWS_ACCESS_KEY_ID", "")
	cfg.AWSSecretAccessKey = getEnvOrDefault("AWS_SECRET_ACCESS_KEY", "")

	// Search suggest
	cfg.EnableSearch = parseBoolOrDefault("ENABLE_SEARCH", true)
	cfg.SearchMaxResult = parseIntOrDefault("SEARCH_MAX_RESULTS", 10)
	cfg.RateLimitConfig = ratelimit.Config{
		RPS:             parseFloat64OrDefault("SEARCH_RATE_RPS", ratelimit.DefaultConfig.RPS),
		Burst:           parseIntOrDefault("SEARCH_RATE_BURST", ratelimit.DefaultConfig.Burst),
		CleanupInterval: parseDurationOrDefault("SEARCH_RATE_CLEANUP_INTERVAL", ratelimit.DefaultConfig.CleanupInterval),
	}

	cfg.EnableMCP = parseBoolOrDefault("ENABLE_MCP", false)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.UseS3 {
		if c.SiteBucket == "" {
			errs = append(errs, "SITE_S3_BUCKET is required when serving from S3 (--s3)")
		}
		if c.AWSAccessKeyID == "" {
			errs = append(errs, "AWS_ACCESS_KEY_ID is required when serving from S3 (--s3)")
		}
		if c.AWSSecretAccessKey == "" {
			errs = append(errs, "AWS_SECRET_ACCESS_KEY is required when serving from S3 (--s3)")
		}
	} else if c.Root == "" {
		errs = append(errs, "PROJECT is required (set env var, pass --root, or use --s3)")
	}

	if c.ListenAddr == "" {
		errs = append(errs, "listen address must not be empty")
	} else if _, port, ok := strings.Cut(c.ListenAddr, ":"); !ok || port == "" {
		errs = append(errs, fmt.Sprintf("listen address %q must include a port", c.ListenAddr))
	}

	if c.SearchMaxResult <= 0 || c.SearchMaxResult > 20 {
		errs = append(errs, "SEARCH_MAX_RESULTS must be between 1 and 20")
	}
	if c.RateLimitConfig.RPS <= 0 {
		errs = append(errs, "SEARCH_RATE_RPS must be positive")
	}
	if c.RateLimitConfig.Burst <= 0 {
		errs = append(errs, "SEARCH_RATE_BURST must be positive")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// PrintStartupSummary prints a human-readable summary of the configuration to stderr.
func (c *Config) PrintStartupSummary() {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "docserver starting...")
	if c.UseS3 {
		fmt.Fprintf(os.Stderr, "  Content: s3://%s/%s (endpoint: %s)\n", c.SiteBucket, c.SitePrefix, c.AWSEndpointS3)
	} else {
		fmt.Fprintf(os.Stderr, "  Content: %s\n", c.Root)
	}
	if c.EnableSearch {
		fmt.Fprintf(os.Stderr, "  Search:  on (%.0f rps, burst %d)\n", c.RateLimitConfig.RPS, c.RateLimitConfig.Burst)
	} else {
		fmt.Fprintln(os.Stderr, "  Search:  off")
	}
	if c.EnableMCP {
		fmt.Fprintln(os.Stderr, "  MCP:     /-/mcp")
	}
	fmt.Fprintf(os.Stderr, "  Listen:  %s\n", c.ListenAddr)
	fmt.Fprintf(os.Stderr, "  Base:    %s\n", c.BaseURL)
	fmt.Fprintln(os.Stderr, "")
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int) int {
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

func parseFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
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

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
