package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment overrides. A double underscore separates
// nesting levels: RUNJOURNAL_STRAVA__REFRESH_TOKEN sets strava.refresh_token.
const EnvPrefix = "RUNJOURNAL_"

// Config represents the application configuration
type Config struct {
	Primary          string         `koanf:"primary" validate:"oneof=smashrun strava"`
	Journal          string         `koanf:"journal"`
	BaseTag          string         `koanf:"base_tag" validate:"required"`
	TitleMarker      string         `koanf:"title_marker" validate:"required"`
	ActivityTypes    []string       `koanf:"activity_types" validate:"min=1,dive,required"`
	Display          DisplayConfig  `koanf:"display"`
	Matching         MatchingConfig `koanf:"matching"`
	Smashrun         SmashrunConfig `koanf:"smashrun"`
	Strava           StravaConfig   `koanf:"strava"`
	GoogleMapsAPIKey string         `koanf:"google_maps_api_key"`
	Sink             SinkConfig     `koanf:"sink"`
	Logging          LoggingConfig  `koanf:"logging"`
}

// DisplayConfig holds display preferences
type DisplayConfig struct {
	DistanceUnit string `koanf:"distance_unit" validate:"oneof=mi km"`
}

// MatchingConfig tunes how secondary activities are paired with primary ones
type MatchingConfig struct {
	MaxStartTimeDelta      time.Duration `koanf:"max_start_time_delta" validate:"gt=0"`
	MaxDistanceDeltaMeters float64       `koanf:"max_distance_delta_meters" validate:"gt=0"`
	// Manual lists overrides, each mapping service id to activity id
	Manual []map[string]string `koanf:"manual"`
}

// SmashrunConfig holds Smashrun API credentials
type SmashrunConfig struct {
	Enabled      bool   `koanf:"enabled"`
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	AccessToken  string `koanf:"access_token"`
	RefreshToken string `koanf:"refresh_token"`
}

// StravaConfig holds Strava API credentials and photo settings
type StravaConfig struct {
	Enabled      bool   `koanf:"enabled"`
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	AccessToken  string `koanf:"access_token"`
	RefreshToken string `koanf:"refresh_token"`
	PhotoSize    int    `koanf:"photo_size" validate:"gt=0"`
}

// SinkConfig names the journaling command
type SinkConfig struct {
	Command string `koanf:"command" validate:"required"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=console json"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Primary:       "smashrun",
		BaseTag:       "dayonerun",
		TitleMarker:   "::Location=",
		ActivityTypes: []string{"run"},
		Display: DisplayConfig{
			DistanceUnit: "mi",
		},
		Matching: MatchingConfig{
			MaxStartTimeDelta:      90 * time.Second,
			MaxDistanceDeltaMeters: 150,
		},
		Smashrun: SmashrunConfig{Enabled: true},
		Strava:   StravaConfig{Enabled: true, PhotoSize: 1000},
		Sink:     SinkConfig{Command: "dayone2"},
		Logging:  LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load reads the configuration from path, or ~/.runjournal/config.yaml when
// path is empty. Defaults fill missing keys and RUNJOURNAL_ environment
// variables override the file.
func Load(path string) (*Config, error) {
	path, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoConfig
	}

	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := k.Load(structs.Provider(&defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return &cfg, nil
}

// envKey maps RUNJOURNAL_STRAVA__PHOTO_SIZE to strava.photo_size
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// CreateExample writes an example config file to path if none exists
func CreateExample(path string) error {
	path, err := resolvePath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(exampleYAML), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

var saveMu sync.Mutex

// SaveTokens writes a refreshed token pair for service ("smashrun" or
// "strava") back into the config file at path. Only keys present in the file
// are kept. Comments are not preserved.
func SaveTokens(path, service, accessToken, refreshToken string) error {
	path, err := resolvePath(path)
	if err != nil {
		return err
	}

	saveMu.Lock()
	defer saveMu.Unlock()

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := k.Set(service+".access_token", accessToken); err != nil {
		return err
	}
	if refreshToken != "" {
		if err := k.Set(service+".refresh_token", refreshToken); err != nil {
			return err
		}
	}

	b, err := k.Marshal(yaml.Parser())
	if err != nil {
		return fmt.Errorf("encoding config file: %w", err)
	}
	if err := os.WriteFile(path, b, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

const exampleYAML = `# runjournal configuration
primary: smashrun
journal: Running
base_tag: dayonerun
activity_types: [run]

display:
  distance_unit: mi

matching:
  max_start_time_delta: 90s
  max_distance_delta_meters: 150
  manual:
    # - smashrun: 12345678
    #   strava: 987654321

smashrun:
  enabled: true
  client_id: YOUR_CLIENT_ID
  client_secret: YOUR_CLIENT_SECRET
  refresh_token: YOUR_REFRESH_TOKEN

strava:
  enabled: true
  client_id: YOUR_CLIENT_ID
  client_secret: YOUR_CLIENT_SECRET
  refresh_token: YOUR_REFRESH_TOKEN
  photo_size: 1000

google_maps_api_key: ""

sink:
  command: dayone2

logging:
  level: info
  format: console
`

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks if the config has required fields
func (c *Config) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return err
		}
		msgs := make([]string, 0, len(ves))
		for _, fe := range ves {
			msgs = append(msgs, fieldMessage(fe))
		}
		return errors.New(strings.Join(msgs, "; "))
	}

	if c.Primary == "smashrun" && !c.Smashrun.Enabled {
		return errors.New("smashrun.enabled must be true when smashrun is the primary service")
	}
	if c.Primary == "strava" && !c.Strava.Enabled {
		return errors.New("strava.enabled must be true when strava is the primary service")
	}
	if c.Smashrun.Enabled {
		if err := checkCredentials("smashrun", c.Smashrun.ClientID, c.Smashrun.ClientSecret, c.Smashrun.AccessToken, c.Smashrun.RefreshToken); err != nil {
			return err
		}
	}
	if c.Strava.Enabled {
		if err := checkCredentials("strava", c.Strava.ClientID, c.Strava.ClientSecret, c.Strava.AccessToken, c.Strava.RefreshToken); err != nil {
			return err
		}
	}

	for i, entry := range c.Matching.Manual {
		if len(entry) < 2 {
			return fmt.Errorf("matching.manual[%d] must name at least two services, got %v", i, entry)
		}
	}
	return nil
}

func checkCredentials(service, clientID, clientSecret, accessToken, refreshToken string) error {
	if placeholder(refreshToken) && placeholder(accessToken) {
		return fmt.Errorf("%s.refresh_token or %s.access_token is required", service, service)
	}
	if placeholder(refreshToken) {
		return nil
	}
	if placeholder(clientID) {
		return fmt.Errorf("%s.client_id is required to refresh tokens", service)
	}
	if placeholder(clientSecret) {
		return fmt.Errorf("%s.client_secret is required to refresh tokens", service)
	}
	return nil
}

func placeholder(s string) bool {
	return s == "" || strings.HasPrefix(s, "YOUR_")
}

// fieldMessage renders "Config.display.distance_unit" failures as
// "display.distance_unit must be one of: mi km"
func fieldMessage(fe validator.FieldError) string {
	_, field, _ := strings.Cut(fe.Namespace(), ".")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s, got %q", field, fe.Param(), fmt.Sprint(fe.Value()))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return getConfigPath()
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".runjournal"), nil
}
