package config

import (
	"io/ioutil"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rincatpp/deepdrone/internal/assistant"
	"github.com/rincatpp/deepdrone/internal/mission"
	"github.com/rincatpp/deepdrone/internal/vehicle"
	"gopkg.in/yaml.v3"
)

const (
	LinkSim  = "sim"
	LinkMQTT = "mqtt"

	ProviderHF          = "hf"
	ProviderPlaceholder = "placeholder"
)

type Vehicle struct {
	Link           string           `yaml:"link"`
	Address        string           `yaml:"address"`
	ConnectTimeout time.Duration    `yaml:"connect_timeout"`
	TakeoffTimeout time.Duration    `yaml:"takeoff_timeout"`
	Home           mission.Location `yaml:"home"`
	AutoConnect    bool             `yaml:"auto_connect"`
}

type Model struct {
	Provider    string  `yaml:"provider"`
	ModelID     string  `yaml:"model_id"`
	BaseURL     string  `yaml:"base_url"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
	Token       string  `yaml:"-"`
}

type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Config struct {
	DeviceID          string        `yaml:"device_id"`
	MQTTBroker        string        `yaml:"mqtt_broker"`
	PrivateKey        string        `yaml:"private_key"`
	Console           bool          `yaml:"console"`
	TelemetryInterval time.Duration `yaml:"telemetry_interval"`
	Vehicle           Vehicle       `yaml:"vehicle"`
	Model             Model         `yaml:"model"`
	Log               Log           `yaml:"log"`
}

func Default() Config {
	return Config{
		DeviceID:          "deepdrone",
		Console:           true,
		TelemetryInterval: time.Second,
		Vehicle: Vehicle{
			Link:           LinkSim,
			Address:        "udp:127.0.0.1:14550",
			ConnectTimeout: 30 * time.Second,
			TakeoffTimeout: 60 * time.Second,
			Home:           vehicle.DefaultSimHome,
		},
		Model: Model{
			Provider:    ProviderHF,
			ModelID:     assistant.DefaultModelID,
			BaseURL:     assistant.DefaultBaseURL,
			MaxTokens:   assistant.DefaultMaxTokens,
			Temperature: assistant.DefaultTemperature,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads defaults, then the YAML file at path (if any), then .env
// and the process environment, then applies overrides in order. The
// result is validated.
func Load(path string, overrides ...func(*Config)) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := ioutil.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "could not read config")
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "could not parse %s", path)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "could not load .env")
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	for _, o := range overrides {
		o(&cfg)
	}

	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("HF_TOKEN"); v != "" {
		c.Model.Token = v
	}
	if v := os.Getenv("DEEPDRONE_DEVICE_ID"); v != "" {
		c.DeviceID = v
	}
	if v := os.Getenv("DEEPDRONE_MQTT_BROKER"); v != "" {
		c.MQTTBroker = v
	}
	if v := os.Getenv("DEEPDRONE_VEHICLE_ADDRESS"); v != "" {
		c.Vehicle.Address = v
	}
	if v := os.Getenv("DEEPDRONE_MODEL_ID"); v != "" {
		c.Model.ModelID = v
	}
	if v := os.Getenv("DEEPDRONE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("DEEPDRONE_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "DEEPDRONE_MAX_TOKENS")
		}
		c.Model.MaxTokens = n
	}
	return nil
}

func (c Config) Validate() error {
	if c.DeviceID == "" {
		return errors.New("device_id must be set")
	}
	switch c.Vehicle.Link {
	case LinkSim:
	case LinkMQTT:
		if c.MQTTBroker == "" {
			return errors.New("the mqtt vehicle link needs mqtt_broker")
		}
	default:
		return errors.Errorf("unknown vehicle link %q", c.Vehicle.Link)
	}
	switch c.Model.Provider {
	case ProviderHF, ProviderPlaceholder:
	default:
		return errors.Errorf("unknown model provider %q", c.Model.Provider)
	}
	if c.TelemetryInterval <= 0 {
		return errors.New("telemetry_interval must be positive")
	}
	return nil
}
