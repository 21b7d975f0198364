package config

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/diplodoc-platform/testpack/internal/ratelimit"
	"pgregory.net/rapid"
)

func validTestConfig() Config {
	return Config{
		ListenAddr:      ":3000",
		Root:            "/srv/site",
		EnableSearch:    true,
		SearchMaxResult: 10,
		RateLimitConfig: ratelimit.DefaultConfig,
	}
}

func TestValidate_LocalRootPasses(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}
}

func TestValidate_RequiresRootOrBucket(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	cfg.Root = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "PROJECT") {
		t.Fatalf("expected PROJECT error, got %v", err)
	}

	cfg.UseS3 = true
	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected S3 validation errors")
	}
	for _, token := range []string{"SITE_S3_BUCKET", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY"} {
		if !strings.Contains(err.Error(), token) {
			t.Fatalf("expected error mentioning %q, got: %v", token, err)
		}
	}
	if strings.Contains(err.Error(), "PROJECT") {
		t.Fatalf("S3 mode must not require PROJECT: %v", err)
	}
}

func testValidate_RejectsOutOfRangeSearchSettings(t *rapid.T) {
	cfg := validTestConfig()
	cfg.SearchMaxResult = rapid.OneOf(rapid.IntRange(-50, 0), rapid.IntRange(21, 500)).Draw(t, "max_results")
	cfg.RateLimitConfig.RPS = rapid.Float64Range(-10, 0).Draw(t, "rps")
	cfg.RateLimitConfig.Burst = rapid.IntRange(-10, 0).Draw(t, "burst")

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, token := range []string{"SEARCH_MAX_RESULTS", "SEARCH_RATE_RPS", "SEARCH_RATE_BURST"} {
		if !strings.Contains(err.Error(), token) {
			t.Fatalf("expected error mentioning %q, got: %v", token, err)
		}
	}
}

func TestValidate_RejectsOutOfRangeSearchSettings(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testValidate_RejectsOutOfRangeSearchSettings)
}

func TestLoadConfig_PortAndFlagPrecedence(t *testing.T) {
	t.Setenv("PROJECT", "/srv/from-env")
	t.Setenv("PORT", "4100")
	t.Setenv("LISTEN_ADDR", "")

	cfg, err := LoadConfig("", "", false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ListenAddr != ":4100" || cfg.Root != "/srv/from-env" {
		t.Fatalf("env values not applied: addr=%q root=%q", cfg.ListenAddr, cfg.Root)
	}
	if cfg.BaseURL != "http://localhost:4100" {
		t.Fatalf("BaseURL = %q", cfg.BaseURL)
	}

	cfg, err = LoadConfig("/srv/from-flag", "127.0.0.1:5000", false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:5000" || cfg.Root != "/srv/from-flag" {
		t.Fatalf("flag values not applied: addr=%q root=%q", cfg.ListenAddr, cfg.Root)
	}
}

func TestLoadConfig_DefaultPort(t *testing.T) {
	t.Setenv("PROJECT", "/srv/site")
	t.Setenv("PORT", "")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("BASE_URL", "")

	cfg, err := LoadConfig("", "", false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ListenAddr != ":3000" {
		t.Fatalf("default listen address = %q, want :3000", cfg.ListenAddr)
	}
}

func TestHelperParsers_DefaultOnBadInput(t *testing.T) {
	t.Setenv("CFG_TEST_INT", "not-an-int")
	t.Setenv("CFG_TEST_FLOAT", "not-a-float")
	t.Setenv("CFG_TEST_BOOL", "maybe")
	t.Setenv("CFG_TEST_DUR", "not-a-duration")
	if got := parseIntOrDefault("CFG_TEST_INT", 7); got != 7 {
		t.Fatalf("parseIntOrDefault fallback mismatch: got=%d want=7", got)
	}
	if got := parseFloat64OrDefault("CFG_TEST_FLOAT", 3.5); got != 3.5 {
		t.Fatalf("parseFloat64OrDefault fallback mismatch: got=%v want=3.5", got)
	}
	if got := parseBoolOrDefault("CFG_TEST_BOOL", true); !got {
		t.Fatal("parseBoolOrDefault fallback mismatch: got=false want=true")
	}
	if got := parseDurationOrDefault("CFG_TEST_DUR", 2*time.Minute); got != 2*time.Minute {
		t.Fatalf("parseDurationOrDefault fallback mismatch: got=%v want=%v", got, 2*time.Minute)
	}
}

func TestGetEnvOrDefault_TrimsWhitespace(t *testing.T) {
	key := "CFG_TEST_STR_" + strconv.FormatInt(time.Now().UnixNano(), 10)
	t.Setenv(key, "   value   ")
	if got := getEnvOrDefault(key, "fallback"); got != "value" {
		t.Fatalf("getEnvOrDefault trim mismatch: got=%q want=%q", got, "value")
	}
}
