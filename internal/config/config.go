package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port        string   `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type ParkingConfig struct {
	// DefaultZone is the zone a detection targets when the payload
	// carries no explicit zone id.
	DefaultZone   string        `mapstructure:"default_zone"`
	BusBuffer     int           `mapstructure:"bus_buffer"`
	PendingMaxAge time.Duration `mapstructure:"pending_max_age"`
	PurgeAfter    time.Duration `mapstructure:"purge_after"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type Config struct {
	Server   ServerConfig  `mapstructure:"server"`
	DB       DBConfig      `mapstructure:"db"`
	Auth     AuthConfig    `mapstructure:"auth"`
	Parking  ParkingConfig `mapstructure:"parking"`
	LogLevel string        `mapstructure:"log_level"`
}

// Load reads configuration from config.yaml (optional) and the
// environment. Environment variables use the PARKING_ prefix with
// underscores, e.g. PARKING_DB_HOST.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "parking")
	v.SetDefault("db.password", "parking")
	v.SetDefault("db.name", "parking_control")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("parking.default_zone", "Zone A")
	v.SetDefault("parking.bus_buffer", 64)
	v.SetDefault("parking.pending_max_age", 30*time.Minute)
	v.SetDefault("parking.purge_after", 7*24*time.Hour)
	v.SetDefault("parking.sweep_interval", time.Minute)
	v.SetDefault("log_level", "info")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/parking-control")

	v.SetEnvPrefix("PARKING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
