package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Smashrun.ClientID = "sr-client"
	cfg.Smashrun.ClientSecret = "sr-secret"
	cfg.Smashrun.RefreshToken = "sr-refresh"
	cfg.Strava.AccessToken = "st-access"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Primary != "smashrun" {
		t.Errorf("Primary = %q, want smashrun", cfg.Primary)
	}
	if cfg.BaseTag != "dayonerun" {
		t.Errorf("BaseTag = %q, want dayonerun", cfg.BaseTag)
	}
	if cfg.Matching.MaxStartTimeDelta != 90*time.Second {
		t.Errorf("Matching.MaxStartTimeDelta = %v, want 90s", cfg.Matching.MaxStartTimeDelta)
	}
	if cfg.Matching.MaxDistanceDeltaMeters != 150 {
		t.Errorf("Matching.MaxDistanceDeltaMeters = %v, want 150", cfg.Matching.MaxDistanceDeltaMeters)
	}
	if cfg.Display.DistanceUnit != "mi" {
		t.Errorf("Display.DistanceUnit = %q, want mi", cfg.Display.DistanceUnit)
	}
	if cfg.Strava.PhotoSize != 1000 {
		t.Errorf("Strava.PhotoSize = %d, want 1000", cfg.Strava.PhotoSize)
	}
	if cfg.Strava.ClientID != "" {
		t.Errorf("Strava.ClientID should be empty, got %q", cfg.Strava.ClientID)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
primary: smashrun
journal: Running
display:
  distance_unit: km
matching:
  max_start_time_delta: 2m
  manual:
    - smashrun: 12345678
      strava: 987654321
smashrun:
  client_id: abc
  client_secret: def
  refresh_token: ghi
strava:
  access_token: xyz
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Journal != "Running" {
		t.Errorf("Journal = %q", cfg.Journal)
	}
	if cfg.Display.DistanceUnit != "km" {
		t.Errorf("Display.DistanceUnit = %q, want km", cfg.Display.DistanceUnit)
	}
	if cfg.Matching.MaxStartTimeDelta != 2*time.Minute {
		t.Errorf("MaxStartTimeDelta = %v, want 2m", cfg.Matching.MaxStartTimeDelta)
	}
	// Unset keys keep their defaults.
	if cfg.Matching.MaxDistanceDeltaMeters != 150 {
		t.Errorf("MaxDistanceDeltaMeters = %v, want default 150", cfg.Matching.MaxDistanceDeltaMeters)
	}
	if cfg.BaseTag != "dayonerun" || len(cfg.ActivityTypes) != 1 {
		t.Errorf("defaults lost: base_tag=%q activity_types=%v", cfg.BaseTag, cfg.ActivityTypes)
	}
	if len(cfg.Matching.Manual) != 1 || cfg.Matching.Manual[0]["strava"] != "987654321" {
		t.Errorf("Matching.Manual = %v", cfg.Matching.Manual)
	}
	if !cfg.Strava.Enabled || cfg.Strava.PhotoSize != 1000 {
		t.Errorf("Strava = %+v", cfg.Strava)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "strava:\n  access_token: from-file\n")
	t.Setenv("RUNJOURNAL_STRAVA__ACCESS_TOKEN", "from-env")
	t.Setenv("RUNJOURNAL_JOURNAL", "Training")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Strava.AccessToken != "from-env" {
		t.Errorf("Strava.AccessToken = %q, want from-env", cfg.Strava.AccessToken)
	}
	if cfg.Journal != "Training" {
		t.Errorf("Journal = %q, want Training", cfg.Journal)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, ErrNoConfig) {
		t.Errorf("Load error = %v, want ErrNoConfig", err)
	}
}

func TestCreateExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	if err := CreateExample(path); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("example does not load: %v", err)
	}
	// The example ships placeholders, which must not validate.
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "smashrun") {
		t.Errorf("Validate = %v, want smashrun credential error", err)
	}

	// An existing file is left alone.
	os.WriteFile(path, []byte("journal: Mine\n"), 0600)
	if err := CreateExample(path); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "journal: Mine\n" {
		t.Error("CreateExample overwrote an existing config")
	}
}

func TestSaveTokens(t *testing.T) {
	path := writeConfig(t, `
journal: Running
matching:
  manual:
    - smashrun: "1"
      strava: "2"
smashrun:
  client_id: abc
  client_secret: def
  refresh_token: old-refresh
strava:
  access_token: xyz
`)

	if err := SaveTokens(path, "smashrun", "new-access", "new-refresh"); err != nil {
		t.Fatal(err)
	}
	if err := SaveTokens(path, "strava", "rotated", ""); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Smashrun.AccessToken != "new-access" || cfg.Smashrun.RefreshToken != "new-refresh" {
		t.Errorf("Smashrun tokens = %q/%q", cfg.Smashrun.AccessToken, cfg.Smashrun.RefreshToken)
	}
	if cfg.Strava.AccessToken != "rotated" {
		t.Errorf("Strava.AccessToken = %q, want rotated", cfg.Strava.AccessToken)
	}
	if cfg.Smashrun.ClientID != "abc" || cfg.Journal != "Running" {
		t.Errorf("other keys lost: client_id=%q journal=%q", cfg.Smashrun.ClientID, cfg.Journal)
	}
	if len(cfg.Matching.Manual) != 1 || cfg.Matching.Manual[0]["strava"] != "2" {
		t.Errorf("Matching.Manual = %v", cfg.Matching.Manual)
	}
}

func TestSaveTokensMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	if err := SaveTokens(path, "strava", "a", "b"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:        "unknown primary",
			mutate:      func(c *Config) { c.Primary = "garmin" },
			errContains: "primary",
		},
		{
			name:        "bad distance unit",
			mutate:      func(c *Config) { c.Display.DistanceUnit = "furlong" },
			errContains: "display.distance_unit",
		},
		{
			name:        "zero time delta",
			mutate:      func(c *Config) { c.Matching.MaxStartTimeDelta = 0 },
			errContains: "matching.max_start_time_delta",
		},
		{
			name:        "no activity types",
			mutate:      func(c *Config) { c.ActivityTypes = nil },
			errContains: "activity_types",
		},
		{
			name:        "primary disabled",
			mutate:      func(c *Config) { c.Smashrun.Enabled = false },
			errContains: "smashrun.enabled",
		},
		{
			name:        "placeholder refresh token and no access token",
			mutate:      func(c *Config) { c.Smashrun.RefreshToken = "YOUR_REFRESH_TOKEN" },
			errContains: "smashrun.refresh_token",
		},
		{
			name:        "refresh without client id",
			mutate:      func(c *Config) { c.Smashrun.ClientID = "" },
			errContains: "smashrun.client_id",
		},
		{
			name: "strava disabled needs no credentials",
			mutate: func(c *Config) {
				c.Strava.Enabled = false
				c.Strava.AccessToken = ""
			},
		},
		{
			name:        "manual entry with one service",
			mutate:      func(c *Config) { c.Matching.Manual = []map[string]string{{"strava": "1"}} },
			errContains: "matching.manual[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.errContains == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.errContains)
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error %q should contain %q", err.Error(), tt.errContains)
			}
		})
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"RUNJOURNAL_PRIMARY":                "primary",
		"RUNJOURNAL_STRAVA__PHOTO_SIZE":     "strava.photo_size",
		"RUNJOURNAL_DISPLAY__DISTANCE_UNIT": "display.distance_unit",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}
