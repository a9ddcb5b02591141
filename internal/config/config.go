// Package config loads run configuration from CLI flags and environment
// variables, validates it, and provides defaults that reproduce the
// reference run against the public site.
//
// Flags override environment variables; environment variables override defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kuitang/dms-e2e/internal/driver"
	"github.com/kuitang/dms-e2e/internal/fill"
	"github.com/kuitang/dms-e2e/internal/logutil"
	"github.com/kuitang/dms-e2e/internal/ratelimit"
)

const (
	DefaultBaseURL = "http://www.rgs.ru"

	DriverPlaywright = "playwright"
	DriverRod        = "rod"
)

// Config holds all run configuration.
type Config struct {
	BaseURL string
	Driver  string
	// Fixture serves the built-in replica site locally and tests it instead
	// of BaseURL.
	Fixture bool

	// Browser
	Headless        bool
	WindowWidth     int
	WindowHeight    int
	PageLoadTimeout time.Duration
	WaitTimeout     time.Duration

	// Form filling
	DateMode     fill.DateMode
	StrictPicker bool

	// Action pacing
	Pacing ratelimit.Config

	// Failure artifacts: local directory, S3 bucket, or neither.
	ArtifactsDir       string
	ArtifactsPrefix    string
	AWSEndpointS3      string // AWS_ENDPOINT_URL_S3
	AWSRegion          string // AWS_REGION
	AWSAccessKeyID     string // AWS_ACCESS_KEY_ID
	AWSSecretAccessKey string // AWS_SECRET_ACCESS_KEY
	AWSBucketName      string // BUCKET_NAME
}

// Flags are the CLI overrides. Empty values leave the environment in charge.
type Flags struct {
	BaseURL      string
	Driver       string
	DateMode     string
	Headless     string
	StrictPicker bool
	Fixture      bool
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// ParseFlags parses CLI arguments (without the program name).
func ParseFlags(args []string) (Flags, error) {
	var f Flags
	fs := flag.NewFlagSet("dms-e2e", flag.ContinueOnError)
	fs.StringVar(&f.BaseURL, "base-url", "", "Site to test (default "+DefaultBaseURL+", overrides DMS_BASE_URL)")
	fs.StringVar(&f.Driver, "driver", "", "Browser backend: playwright or rod (overrides DMS_DRIVER)")
	fs.StringVar(&f.DateMode, "date-mode", "", "Contact date entry: direct or picker (overrides DMS_DATE_MODE)")
	fs.StringVar(&f.Headless, "headless", "", "Run the browser headless: true or false (overrides DMS_HEADLESS)")
	fs.BoolVar(&f.StrictPicker, "strict-picker", false, "Fail when the calendar has no cell for the contact day")
	fs.BoolVar(&f.Fixture, "fixture", false, "Test the built-in replica site served on a local port (overrides DMS_FIXTURE)")
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	if fs.NArg() > 0 {
		return Flags{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return f, nil
}

// LoadConfig loads configuration from environment variables and flag values.
func LoadConfig(f Flags) (*Config, error) {
	cfg := &Config{}

	cfg.BaseURL = getEnvOrDefault("DMS_BASE_URL", DefaultBaseURL)
	if f.BaseURL != "" {
		cfg.BaseURL = strings.TrimSpace(f.BaseURL)
	}
	cfg.Driver = strings.ToLower(getEnvOrDefault("DMS_DRIVER", DriverPlaywright))
	if f.Driver != "" {
		cfg.Driver = strings.ToLower(strings.TrimSpace(f.Driver))
	}

	cfg.Fixture = parseBoolOrDefault("DMS_FIXTURE", false) || f.Fixture

	cfg.Headless = parseBoolOrDefault("DMS_HEADLESS", true)
	var flagErrs []string
	if f.Headless != "" {
		h, err := strconv.ParseBool(f.Headless)
		if err != nil {
			flagErrs = append(flagErrs, fmt.Sprintf("-headless must be true or false, got %q", f.Headless))
		} else {
			cfg.Headless = h
		}
	}
	cfg.WindowWidth = parseIntOrDefault("DMS_WINDOW_WIDTH", 1920)
	cfg.WindowHeight = parseIntOrDefault("DMS_WINDOW_HEIGHT", 1080)
	cfg.PageLoadTimeout = parseDurationOrDefault("DMS_PAGE_LOAD_TIMEOUT", 10*time.Second)
	cfg.WaitTimeout = parseDurationOrDefault("DMS_WAIT_TIMEOUT", 10*time.Second)

	cfg.DateMode = fill.DateMode(strings.ToLower(getEnvOrDefault("DMS_DATE_MODE", string(fill.DateModePicker))))
	if f.DateMode != "" {
		cfg.DateMode = fill.DateMode(strings.ToLower(strings.TrimSpace(f.DateMode)))
	}
	cfg.StrictPicker = parseBoolOrDefault("DMS_STRICT_PICKER", false) || f.StrictPicker

	cfg.Pacing = ratelimit.Config{
		ActionsPerSecond: parseFloat64OrDefault("DMS_ACTIONS_PER_SECOND", ratelimit.DefaultConfig.ActionsPerSecond),
		Burst:            parseIntOrDefault("DMS_ACTIONS_BURST", ratelimit.DefaultConfig.Burst),
	}

	cfg.ArtifactsDir = strings.TrimSpace(os.Getenv("DMS_ARTIFACTS_DIR"))
	cfg.ArtifactsPrefix = getEnvOrDefault("DMS_ARTIFACTS_PREFIX", "dms-e2e")
	cfg.AWSEndpointS3 = strings.TrimSpace(os.Getenv("AWS_ENDPOINT_URL_S3"))
	cfg.AWSRegion = getEnvOrDefault("AWS_REGION", "us-east-1")
	cfg.AWSAccessKeyID = strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID"))
	cfg.AWSSecretAccessKey = strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY"))
	cfg.AWSBucketName = strings.TrimSpace(os.Getenv("BUCKET_NAME"))

	if err := cfg.Validate(); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			ve.Errors = append(flagErrs, ve.Errors...)
		}
		return nil, err
	}
	if len(flagErrs) > 0 {
		return nil, &ValidationError{Errors: flagErrs}
	}

	return cfg, nil
}

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	var errs []string

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("DMS_BASE_URL must be an absolute http(s) URL, got %q", c.BaseURL))
	}

	switch c.Driver {
	case DriverPlaywright, DriverRod:
	default:
		errs = append(errs, fmt.Sprintf("DMS_DRIVER must be %q or %q, got %q", DriverPlaywright, DriverRod, c.Driver))
	}

	if _, err := fill.ParseDateMode(string(c.DateMode)); err != nil {
		errs = append(errs, fmt.Sprintf("DMS_DATE_MODE must be direct or picker, got %q", c.DateMode))
	}

	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		errs = append(errs, "DMS_WINDOW_WIDTH and DMS_WINDOW_HEIGHT must be positive")
	}
	if c.PageLoadTimeout <= 0 {
		errs = append(errs, "DMS_PAGE_LOAD_TIMEOUT must be positive")
	}
	if c.WaitTimeout <= 0 {
		errs = append(errs, "DMS_WAIT_TIMEOUT must be positive")
	}
	if c.Pacing.ActionsPerSecond < 0 {
		errs = append(errs, "DMS_ACTIONS_PER_SECOND must not be negative")
	}

	// S3 artifacts are all-or-nothing once a bucket is named.
	if c.AWSBucketName != "" {
		if c.AWSAccessKeyID == "" {
			errs = append(errs, "AWS_ACCESS_KEY_ID is required when BUCKET_NAME is set")
		}
		if c.AWSSecretAccessKey == "" {
			errs = append(errs, "AWS_SECRET_ACCESS_KEY is required when BUCKET_NAME is set")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// UseS3Artifacts reports whether failure artifacts go to S3.
func (c *Config) UseS3Artifacts() bool {
	return c.AWSBucketName != ""
}

// LaunchOptions returns the browser launch options.
func (c *Config) LaunchOptions() driver.LaunchOptions {
	return driver.LaunchOptions{
		Headless:        c.Headless,
		WindowWidth:     c.WindowWidth,
		WindowHeight:    c.WindowHeight,
		PageLoadTimeout: c.PageLoadTimeout,
	}
}

// FillOptions returns field-fill options; the caller supplies the pacer.
func (c *Config) FillOptions() fill.Options {
	return fill.Options{
		WaitTimeout:  c.WaitTimeout,
		DateMode:     c.DateMode,
		StrictPicker: c.StrictPicker,
	}
}

// PrintStartupSummary prints a human-readable summary of the configuration.
func (c *Config) PrintStartupSummary(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "dms-e2e starting...")
	if c.Fixture {
		fmt.Fprintln(w, "  Site:      built-in fixture")
	} else {
		fmt.Fprintf(w, "  Site:      %s\n", c.BaseURL)
	}
	fmt.Fprintf(w, "  Driver:    %s (headless=%t, %dx%d)\n", c.Driver, c.Headless, c.WindowWidth, c.WindowHeight)
	fmt.Fprintf(w, "  Waits:     page load %s, element %s\n", c.PageLoadTimeout, c.WaitTimeout)
	fmt.Fprintf(w, "  Date:      %s (strict picker: %t)\n", c.DateMode, c.StrictPicker)
	switch {
	case c.UseS3Artifacts():
		fmt.Fprintf(w, "  Artifacts: S3 bucket %s (key id %s)\n", c.AWSBucketName, logutil.RedactValue("AWS_ACCESS_KEY_ID", c.AWSAccessKeyID))
	case c.ArtifactsDir != "":
		fmt.Fprintf(w, "  Artifacts: %s\n", c.ArtifactsDir)
	default:
		fmt.Fprintln(w, "  Artifacts: off")
	}
	fmt.Fprintln(w, "")
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
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
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
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
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
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
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
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return parsed
}
