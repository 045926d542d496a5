// Package config loads visimos settings from defaults, an optional YAML
// file, .env files and VISIMOS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "VISIMOS"

// Config is the full runtime configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	Profile ProfileConfig `mapstructure:"profile"`
	Signal  SignalConfig  `mapstructure:"signal"`
	Render  RenderConfig  `mapstructure:"render"`
	Web     WebConfig     `mapstructure:"web"`
	Speech  SpeechConfig  `mapstructure:"speech"`
	Console ConsoleConfig `mapstructure:"console"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// File receives logs when the terminal renderer owns the screen.
	File string `mapstructure:"file"`
}

type MQTTConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Broker    string        `mapstructure:"broker"`
	Port      int           `mapstructure:"port"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	ClientID  string        `mapstructure:"client_id"`
	Prefix    string        `mapstructure:"prefix"`
	FrameRate time.Duration `mapstructure:"frame_rate"` // minimum gap between frame publishes
	Discovery bool          `mapstructure:"discovery"`
}

type ProfileConfig struct {
	Backend string `mapstructure:"backend"` // file, sqlite or memory
	Path    string `mapstructure:"path"`
	Key     string `mapstructure:"key"`
}

type SignalConfig struct {
	Microphone bool    `mapstructure:"microphone"`
	SampleRate float64 `mapstructure:"sample_rate"`
	FFTSize    int     `mapstructure:"fft_size"`
}

type RenderConfig struct {
	Mode              string        `mapstructure:"mode"` // terminal or headless
	FrameInterval     time.Duration `mapstructure:"frame_interval"`
	BreathInterval    time.Duration `mapstructure:"breath_interval"`
	TelemetryInterval time.Duration `mapstructure:"telemetry_interval"`
	Width             float64       `mapstructure:"width"`  // headless viewport
	Height            float64       `mapstructure:"height"` // headless viewport
	CellWidth         float64       `mapstructure:"cell_width"`
	CellHeight        float64       `mapstructure:"cell_height"`
}

type WebConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type SpeechConfig struct {
	Chimes   bool          `mapstructure:"chimes"`
	Cooldown time.Duration `mapstructure:"cooldown"`
	Volume   float64       `mapstructure:"volume"` // gain in doublings, 0 is unity
}

type ConsoleConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	HistoryFile string `mapstructure:"history_file"`
}

// Render modes
const (
	ModeTerminal = "terminal"
	ModeHeadless = "headless"
)

// Profile backends
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Default returns the built-in configuration.
func Default() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dataDir, "visimos.log"),
		},
		MQTT: MQTTConfig{
			Enabled:   false,
			Broker:    "homeassistant.lan",
			Port:      1883,
			Prefix:    "visimos",
			FrameRate: 250 * time.Millisecond,
			Discovery: true,
		},
		Profile: ProfileConfig{
			Backend: BackendFile,
			Path:    filepath.Join(dataDir, "storage.json"),
			Key:     "visimos_v6_profile",
		},
		Signal: SignalConfig{
			Microphone: true,
			SampleRate: 44100,
			FFTSize:    1024,
		},
		Render: RenderConfig{
			Mode:              ModeTerminal,
			FrameInterval:     16 * time.Millisecond,
			BreathInterval:    3 * time.Second,
			TelemetryInterval: 5 * time.Second,
			Width:             1280,
			Height:            720,
			CellWidth:         8,
			CellHeight:        16,
		},
		Web: WebConfig{
			Enabled: true,
			Addr:    "127.0.0.1:8089",
		},
		Speech: SpeechConfig{
			Chimes:   true,
			Cooldown: 2 * time.Second,
			Volume:   -1,
		},
		Console: ConsoleConfig{
			Enabled:     false,
			HistoryFile: filepath.Join(cacheDir(), "console_history"),
		},
	}
}

// LoadDotenv loads .env files into the process environment. Missing files
// are reported but harmless.
func LoadDotenv(files ...string) error {
	return godotenv.Load(files...)
}

// Load builds the configuration. An empty path searches for visimos.yaml in
// the working directory and the user config directory.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	setDefaults(v, cfg)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Same credentials the broker's other clients use
	_ = v.BindEnv("mqtt.username", envPrefix+"_MQTT_USERNAME", "MQTT_USERNAME")
	_ = v.BindEnv("mqtt.password", envPrefix+"_MQTT_PASSWORD", "MQTT_PASSWORD")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("visimos")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "visimos"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the workers cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Render.Mode {
	case ModeTerminal, ModeHeadless:
	default:
		errs = append(errs, fmt.Errorf("render.mode %q: want %s or %s", c.Render.Mode, ModeTerminal, ModeHeadless))
	}
	switch c.Profile.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("profile.backend %q: want file, sqlite or memory", c.Profile.Backend))
	}
	if c.Render.FrameInterval <= 0 || c.Render.BreathInterval <= 0 || c.Render.TelemetryInterval <= 0 {
		errs = append(errs, errors.New("render intervals must be positive"))
	}
	if c.Render.CellWidth <= 0 || c.Render.CellHeight <= 0 {
		errs = append(errs, errors.New("render cell size must be positive"))
	}
	if c.Speech.Cooldown < 0 {
		errs = append(errs, errors.New("speech.cooldown must not be negative"))
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required when mqtt is enabled"))
	}
	return errors.Join(errs...)
}

// BrokerURL is the paho broker address.
func (m MQTTConfig) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", m.Broker, m.Port)
}

// Topic joins suffix onto the configured prefix.
func (m MQTTConfig) Topic(suffix string) string {
	return strings.TrimSuffix(m.Prefix, "/") + "/" + suffix
}

func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.file", c.Log.File)

	v.SetDefault("mqtt.enabled", c.MQTT.Enabled)
	v.SetDefault("mqtt.broker", c.MQTT.Broker)
	v.SetDefault("mqtt.port", c.MQTT.Port)
	v.SetDefault("mqtt.username", c.MQTT.Username)
	v.SetDefault("mqtt.password", c.MQTT.Password)
	v.SetDefault("mqtt.client_id", c.MQTT.ClientID)
	v.SetDefault("mqtt.prefix", c.MQTT.Prefix)
	v.SetDefault("mqtt.frame_rate", c.MQTT.FrameRate)
	v.SetDefault("mqtt.discovery", c.MQTT.Discovery)

	v.SetDefault("profile.backend", c.Profile.Backend)
	v.SetDefault("profile.path", c.Profile.Path)
	v.SetDefault("profile.key", c.Profile.Key)

	v.SetDefault("signal.microphone", c.Signal.Microphone)
	v.SetDefault("signal.sample_rate", c.Signal.SampleRate)
	v.SetDefault("signal.fft_size", c.Signal.FFTSize)

	v.SetDefault("render.mode", c.Render.Mode)
	v.SetDefault("render.frame_interval", c.Render.FrameInterval)
	v.SetDefault("render.breath_interval", c.Render.BreathInterval)
	v.SetDefault("render.telemetry_interval", c.Render.TelemetryInterval)
	v.SetDefault("render.width", c.Render.Width)
	v.SetDefault("render.height", c.Render.Height)
	v.SetDefault("render.cell_width", c.Render.CellWidth)
	v.SetDefault("render.cell_height", c.Render.CellHeight)

	v.SetDefault("web.enabled", c.Web.Enabled)
	v.SetDefault("web.addr", c.Web.Addr)

	v.SetDefault("speech.chimes", c.Speech.Chimes)
	v.SetDefault("speech.cooldown", c.Speech.Cooldown)
	v.SetDefault("speech.volume", c.Speech.Volume)

	v.SetDefault("console.enabled", c.Console.Enabled)
	v.SetDefault("console.history_file", c.Console.HistoryFile)
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "visimos")
	}
	return "."
}

func cacheDir() string {
	dir := os.Getenv("XDG_CACHE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		dir = filepath.Join(home, ".cache")
	}
	return filepath.Join(dir, "visimos")
}
