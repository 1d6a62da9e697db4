package config

import (
	"os"
	"time"

	"escape-room-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory    = "memory"
	DriverRedis     = "redis"
	DriverMongo     = "mongo"
	DriverFirestore = "firestore"
	DriverSQLite    = "sqlite"
)

// Identity providers.
const (
	ProviderJWT      = "jwt"
	ProviderFirebase = "firebase"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Store struct {
		Driver  string `yaml:"driver"`
		Timeout string `yaml:"timeout"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Firebase struct {
		ProjectID       string `yaml:"projectId"`
		CredentialsFile string `yaml:"credentialsFile"`
	} `yaml:"firebase"`
	Auth struct {
		Provider  string `yaml:"provider"`
		JWTSecret string `yaml:"jwtSecret"`
	} `yaml:"auth"`
	Game struct {
		QuestionSet string               `yaml:"questionSet"`
		CacheTTL    string               `yaml:"cacheTTL"`
		Positions   []domain.Position    `yaml:"positions"`
		Sets        []domain.QuestionSet `yaml:"sets"`
	} `yaml:"game"`
}

// Load reads YAML config from path and fills in defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Store.Driver == "" {
		c.Store.Driver = DriverMemory
	}
	if c.Auth.Provider == "" {
		c.Auth.Provider = ProviderJWT
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "escaperoom"
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = "./data/escaperoom.db"
	}
	if c.Game.QuestionSet == "" {
		c.Game.QuestionSet = "default"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// QuestionSets indexes the sets declared inline in the config by id.
func (c Config) QuestionSets() map[string]domain.QuestionSet {
	sets := make(map[string]domain.QuestionSet, len(c.Game.Sets))
	for _, set := range c.Game.Sets {
		sets[set.ID] = set
	}
	return sets
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
