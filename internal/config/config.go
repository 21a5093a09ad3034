// Package config loads runtime settings from flags, the environment, and an
// optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/hammamikhairi/cocinia/internal/domain"
	"github.com/hammamikhairi/cocinia/internal/logger"
)

// Environment variables.
const (
	EnvEndpointURL   = "RECIPE_ENDPOINT_URL"
	EnvEndpointToken = "RECIPE_ENDPOINT_TOKEN"
	EnvORTLibrary    = "ONNXRUNTIME_SHARED_LIBRARY_PATH"
)

// Camera backends.
const (
	CameraGst    = "gst"
	CameraStills = "stills"
)

// Config holds everything main needs to wire the application.
type Config struct {
	EndpointURL   string
	EndpointToken string
	HTTPTimeout   time.Duration

	ModelPath  string
	LabelsPath string
	ORTLibPath string

	Camera      string
	BackDevice  string
	FrontDevice string
	StillsDir   string
	FPS         int

	Chime    bool
	LogLevel logger.Level
	LogFile  string
}

// Load parses args (without the program name) and reads the environment.
// Variables already set in the process environment win over the .env file.
func Load(args []string) (*Config, error) {
	return load(args, os.LookupEnv)
}

func load(args []string, lookupEnv func(string) (string, bool)) (*Config, error) {
	flags := flag.NewFlagSet("cocinia", flag.ContinueOnError)

	cfg := &Config{}
	envFile := flags.String("env-file", ".env", "dotenv file to read before the environment")
	flags.StringVar(&cfg.ModelPath, "model", "models/model.onnx", "path to the ONNX classifier")
	flags.StringVar(&cfg.LabelsPath, "labels", "models/classes.json", "path to the JSON label array")
	flags.StringVar(&cfg.ORTLibPath, "ort-lib", "", "onnxruntime shared library (default $"+EnvORTLibrary+")")
	flags.StringVar(&cfg.Camera, "camera", CameraGst, "camera backend: gst or stills")
	flags.StringVar(&cfg.BackDevice, "back-device", "/dev/video0", "v4l2 device for the back camera")
	flags.StringVar(&cfg.FrontDevice, "front-device", "", "v4l2 device for the front camera (default: back device)")
	flags.StringVar(&cfg.StillsDir, "stills-dir", "stills", "image directory used by the stills camera")
	flags.IntVar(&cfg.FPS, "fps", 30, "classification ticks per second")
	flags.BoolVar(&cfg.Chime, "chime", true, "play audio cues with notifications")
	flags.DurationVar(&cfg.HTTPTimeout, "timeout", 0, "recipe request timeout (0 = none)")
	verbose := flags.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flags.Bool("quiet", false, "disable all logging")
	flags.StringVar(&cfg.LogFile, "log-file", ".cocinia-logs/cocinia.log", "file to write logs to (use \"stderr\" to log to console)")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	dotenv, err := readDotenv(*envFile)
	if err != nil {
		return nil, err
	}
	get := func(key string) string {
		if v, ok := lookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	}

	cfg.EndpointURL = get(EnvEndpointURL)
	cfg.EndpointToken = get(EnvEndpointToken)
	if cfg.ORTLibPath == "" {
		cfg.ORTLibPath = get(EnvORTLibrary)
	}
	if cfg.FrontDevice == "" {
		cfg.FrontDevice = cfg.BackDevice
	}

	cfg.LogLevel = logger.LevelNormal
	if *verbose {
		cfg.LogLevel = logger.LevelVerbose
	}
	if *quiet {
		cfg.LogLevel = logger.LevelOff
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readDotenv reads path without touching the process environment. A missing
// file is not an error.
func readDotenv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	vals, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return vals, nil
}

// Validate checks the settings the application cannot start without.
func (c *Config) Validate() error {
	if c.EndpointURL == "" {
		return fmt.Errorf("config: %w: set %s", domain.ErrMissingEndpoint, EnvEndpointURL)
	}
	u, err := url.Parse(c.EndpointURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: %s must be an absolute http(s) URL, got %q", EnvEndpointURL, c.EndpointURL)
	}

	switch c.Camera {
	case CameraGst:
		if c.BackDevice == "" {
			return fmt.Errorf("config: -back-device is required for the gst camera")
		}
	case CameraStills:
		if c.StillsDir == "" {
			return fmt.Errorf("config: -stills-dir is required for the stills camera")
		}
	default:
		return fmt.Errorf("config: unknown camera %q (want %s or %s)", c.Camera, CameraGst, CameraStills)
	}

	if c.FPS < 1 || c.FPS > 120 {
		return fmt.Errorf("config: -fps must be between 1 and 120, got %d", c.FPS)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("config: -timeout must not be negative")
	}
	return nil
}
