package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type SpeechConfig struct {
	Endpoint       string  `yaml:"endpoint" jsonschema:"description=OpenAI-compatible speech synthesis endpoint"`
	APIKey         string  `yaml:"api_key" jsonschema:"description=Bearer token sent with every request"`
	Model          string  `yaml:"model"`
	Voice          string  `yaml:"voice"`
	Speed          float64 `yaml:"speed" jsonschema:"exclusiveMinimum=0"`
	ResponseFormat string  `yaml:"response_format" jsonschema:"enum=mp3,enum=wav"`
	TimeoutMS      int     `yaml:"timeout_ms" jsonschema:"minimum=1"`
}

type PlaybackConfig struct {
	Backend string  `yaml:"backend" jsonschema:"enum=miniaudio,enum=portaudio"`
	Volume  float64 `yaml:"volume" jsonschema:"minimum=0,maximum=1"`
}

type SourceConfig struct {
	Mode           string `yaml:"mode" jsonschema:"enum=clipboard,enum=nats"`
	PollIntervalMS int    `yaml:"poll_interval_ms" jsonschema:"minimum=1"`
	NATSURL        string `yaml:"nats_url"`
	NATSSubject    string `yaml:"nats_subject"`
	// NATSEmbedded runs a NATS server inside the process, for setups where
	// nothing else provides one
	NATSEmbedded bool `yaml:"nats_embedded"`
	NATSPort     int  `yaml:"nats_port"`
}

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	LogFile      string `yaml:"log_file"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type Config struct {
	Enabled   bool            `yaml:"enabled"`
	Speech    SpeechConfig    `yaml:"speech"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Source    SourceConfig    `yaml:"source"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

func Default() Config {
	return Config{
		Enabled: true,
		Speech: SpeechConfig{
			Endpoint:       "http://localhost:8880/v1/audio/speech",
			Model:          "kokoro",
			Voice:          "af_bella",
			Speed:          1.0,
			ResponseFormat: "mp3",
			TimeoutMS:      30000,
		},
		Playback: PlaybackConfig{
			Backend: "miniaudio",
			Volume:  1.0,
		},
		Source: SourceConfig{
			Mode:           "clipboard",
			PollIntervalMS: 250,
			NATSURL:        "nats://127.0.0.1:4222",
			NATSSubject:    "clipspeak.text",
			NATSPort:       4222,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			LogFile:      "clipspeak.log",
			OTLPInsecure: true,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// so they can act as CLIPSPEAK_* overrides. Variables that are already set
// win, and a missing file is not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Save writes cfg as YAML, creating or truncating path.
func Save(path string, cfg Config) error {
	if err := validate(cfg); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c SpeechConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func (c SourceConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

func applyEnvOverrides(cfg *Config) {
	overrideBool(&cfg.Enabled, "CLIPSPEAK_ENABLED")
	overrideString(&cfg.Speech.Endpoint, "CLIPSPEAK_SPEECH_ENDPOINT")
	overrideString(&cfg.Speech.APIKey, "CLIPSPEAK_SPEECH_API_KEY")
	overrideString(&cfg.Speech.Model, "CLIPSPEAK_SPEECH_MODEL")
	overrideString(&cfg.Speech.Voice, "CLIPSPEAK_SPEECH_VOICE")
	overrideFloat(&cfg.Speech.Speed, "CLIPSPEAK_SPEECH_SPEED")
	overrideString(&cfg.Speech.ResponseFormat, "CLIPSPEAK_SPEECH_RESPONSE_FORMAT")
	overrideInt(&cfg.Speech.TimeoutMS, "CLIPSPEAK_SPEECH_TIMEOUT_MS")
	overrideString(&cfg.Playback.Backend, "CLIPSPEAK_PLAYBACK_BACKEND")
	overrideFloat(&cfg.Playback.Volume, "CLIPSPEAK_PLAYBACK_VOLUME")
	overrideString(&cfg.Source.Mode, "CLIPSPEAK_SOURCE_MODE")
	overrideInt(&cfg.Source.PollIntervalMS, "CLIPSPEAK_SOURCE_POLL_INTERVAL_MS")
	overrideString(&cfg.Source.NATSURL, "CLIPSPEAK_SOURCE_NATS_URL")
	overrideString(&cfg.Source.NATSSubject, "CLIPSPEAK_SOURCE_NATS_SUBJECT")
	overrideBool(&cfg.Source.NATSEmbedded, "CLIPSPEAK_SOURCE_NATS_EMBEDDED")
	overrideInt(&cfg.Source.NATSPort, "CLIPSPEAK_SOURCE_NATS_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "CLIPSPEAK_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.LogFile, "CLIPSPEAK_TELEMETRY_LOG_FILE")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "CLIPSPEAK_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "CLIPSPEAK_TELEMETRY_OTLP_INSECURE")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	endpoint, err := url.Parse(strings.TrimSpace(cfg.Speech.Endpoint))
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return errors.New("speech.endpoint must be an absolute URL")
	}
	if cfg.Speech.Speed <= 0 {
		return errors.New("speech.speed must be positive")
	}
	switch cfg.Speech.ResponseFormat {
	case "mp3", "wav":
	default:
		return errors.New("speech.response_format must be one of mp3|wav")
	}
	if cfg.Speech.TimeoutMS <= 0 {
		return errors.New("speech.timeout_ms must be positive")
	}
	switch cfg.Playback.Backend {
	case "miniaudio", "portaudio":
	default:
		return errors.New("playback.backend must be one of miniaudio|portaudio")
	}
	if cfg.Playback.Volume < 0 || cfg.Playback.Volume > 1 {
		return errors.New("playback.volume must be between 0 and 1")
	}
	switch cfg.Source.Mode {
	case "clipboard":
		if cfg.Source.PollIntervalMS <= 0 {
			return errors.New("source.poll_interval_ms must be positive")
		}
	case "nats":
		if cfg.Source.NATSSubject == "" {
			return errors.New("source.nats_subject must not be empty when mode=nats")
		}
		if cfg.Source.NATSEmbedded {
			if cfg.Source.NATSPort <= 0 || cfg.Source.NATSPort > 65535 {
				return errors.New("source.nats_port must be between 1 and 65535 when nats_embedded is enabled")
			}
		} else if cfg.Source.NATSURL == "" {
			return errors.New("source.nats_url must be set when nats_embedded is disabled")
		}
	default:
		return errors.New("source.mode must be one of clipboard|nats")
	}
	switch strings.ToLower(cfg.Telemetry.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("telemetry.log_level must be one of debug|info|warn|error")
	}
	return nil
}
