package config

import (
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	mu sync.RWMutex `yaml:"-"`

	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Messaging  MessagingConfig  `yaml:"messaging"`
	Web        WebConfig        `yaml:"web"`
	Connectors ConnectorsConfig `yaml:"connectors"`
	Singleton  SingletonConfig  `yaml:"singleton"`
	Log        LogConfig        `yaml:"log"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	Token    string         `yaml:"token"`
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

// MessagingConfig selects the transport behind the broker fabric. Endpoint
// addresses are never configured here; every process derives them from the
// cluster's broker host and start port.
type MessagingConfig struct {
	Backend        string        `yaml:"backend"` // kafka, mqtt or memory
	Kafka          KafkaConfig   `yaml:"kafka"`
	MQTT           MQTTConfig    `yaml:"mqtt"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type KafkaConfig struct {
	GroupID string `yaml:"group_id"`
}

type MQTTConfig struct {
	ClientID string `yaml:"client_id"`
	QoS      byte   `yaml:"qos"`
}

type WebConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Workers         int           `yaml:"workers"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type ConnectorsConfig struct {
	RepoLocation string        `yaml:"repo_location"`
	Executable   string        `yaml:"executable"`
	SettleDelay  time.Duration `yaml:"settle_delay"`
}

type SingletonConfig struct {
	Enabled  bool          `yaml:"enabled"`
	LeaseKey string        `yaml:"lease_key"`
	LeaseTTL time.Duration `yaml:"lease_ttl"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "busnode.db"},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "busnode",
				User:     "busnode",
				Password: "",
				SSLMode:  "disable",
			},
		},
		Redis: RedisConfig{
			Address:  "localhost:6379",
			Password: "",
			DB:       0,
		},
		Messaging: MessagingConfig{
			Backend:        "kafka",
			Kafka:          KafkaConfig{GroupID: "busnode"},
			MQTT:           MQTTConfig{ClientID: "busnode", QoS: 1},
			ConnectTimeout: 5 * time.Second,
		},
		Web: WebConfig{
			Host:            "0.0.0.0",
			Port:            17010,
			Workers:         10,
			PollInterval:    5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Connectors: ConnectorsConfig{
			RepoLocation: "./repo",
			Executable:   "busnode-connector",
			SettleDelay:  200 * time.Millisecond,
		},
		Singleton: SingletonConfig{
			Enabled:  false,
			LeaseKey: "busnode:singleton",
			LeaseTTL: 15 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
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
	return cfg, nil
}

func (c *Config) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Lock()   { c.mu.Lock() }
func (c *Config) Unlock() { c.mu.Unlock() }
