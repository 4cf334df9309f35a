package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Web       WebConfig       `yaml:"web"`
	Messaging MessagingConfig `yaml:"messaging"`
	Map       MapConfig       `yaml:"map"`
	Robots    []RobotConfig   `yaml:"robots"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	SessionSecret string `yaml:"session_secret"`
}

// MessagingConfig defines the optional controller-facing message channel.
// An empty Backend disables it.
type MessagingConfig struct {
	Backend             string        `yaml:"backend"` // "mqtt" or "kafka"
	MQTT                MQTTConfig    `yaml:"mqtt"`
	Kafka               KafkaConfig   `yaml:"kafka"`
	CommandTopic        string        `yaml:"command_topic"`
	StateTopic          string        `yaml:"state_topic"`
	OutboxDrainInterval time.Duration `yaml:"outbox_drain_interval"`
	HubID               string        `yaml:"hub_id"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	GroupID string   `yaml:"group_id"`
}

// MapConfig tunes map decoding and snapshot retention.
type MapConfig struct {
	// DefaultPixelSizeMm substitutes for documents that declare no pixel
	// size; the coordinate transform refuses to guess on its own.
	DefaultPixelSizeMm float64 `yaml:"default_pixel_size_mm"`

	// SnapshotRetention is how many decoded snapshots to keep per robot.
	SnapshotRetention int `yaml:"snapshot_retention"`

	// SnapshotMinInterval throttles snapshot persistence; map updates
	// arriving faster than this refresh the cache but skip the database.
	SnapshotMinInterval time.Duration `yaml:"snapshot_min_interval"`
}

// RobotConfig describes one managed robot. Mode is "poll" or "sse".
type RobotConfig struct {
	ID           string        `yaml:"id"`
	Name         string        `yaml:"name"`
	BaseURL      string        `yaml:"base_url"`
	Mode         string        `yaml:"mode"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MapInterval  time.Duration `yaml:"map_interval"`
	Timeout      time.Duration `yaml:"timeout"`
}

func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "vachub.db"},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "vachub",
				User:     "vachub",
				Password: "",
				SSLMode:  "disable",
			},
		},
		Redis: RedisConfig{
			Address:  "localhost:6379",
			Password: "",
			DB:       0,
		},
		Web: WebConfig{
			Host:          "0.0.0.0",
			Port:          8084,
			SessionSecret: "change-me-in-production",
		},
		Messaging: MessagingConfig{
			Backend: "",
			MQTT: MQTTConfig{
				Broker: "localhost",
				Port:   1883,
			},
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
				GroupID: "vachub",
			},
			CommandTopic:        "vachub/commands",
			StateTopic:          "vachub/state",
			OutboxDrainInterval: 5 * time.Second,
			HubID:               "vachub",
		},
		Map: MapConfig{
			DefaultPixelSizeMm:  50,
			SnapshotRetention:   50,
			SnapshotMinInterval: 30 * time.Second,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyRobotDefaults()
	return cfg, nil
}

// applyRobotDefaults fills per-robot settings the file left out.
func (c *Config) applyRobotDefaults() {
	for i := range c.Robots {
		r := &c.Robots[i]
		if r.Mode == "" {
			r.Mode = "poll"
		}
		if r.PollInterval <= 0 {
			r.PollInterval = 5 * time.Second
		}
		if r.MapInterval <= 0 {
			r.MapInterval = 30 * time.Second
		}
		if r.Timeout <= 0 {
			r.Timeout = 10 * time.Second
		}
		if r.Name == "" {
			r.Name = r.ID
		}
	}
}

// Robot returns the configured robot with the given id.
func (c *Config) Robot(id string) (*RobotConfig, bool) {
	for i := range c.Robots {
		if c.Robots[i].ID == id {
			return &c.Robots[i], true
		}
	}
	return nil, false
}
