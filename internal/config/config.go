package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`

	// JWTSecret enables HS256 verification; JWTPublicKeyBase64 (base64-encoded
	// PEM) enables RS256 and takes precedence when both are set.
	JWTSecret          string `mapstructure:"jwt_secret"`
	JWTPublicKeyBase64 string `mapstructure:"jwt_public_key_base64"`

	AdminRoles      []string `mapstructure:"-"`
	AuditLogEnabled bool     `mapstructure:"-"`
	LogLevel        string   `mapstructure:"log_level"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
	Path     string `mapstructure:"path"` // directory for SQLite database files
}

// DSN returns the driver-specific data source name.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path + "/" + d.Name + ".db"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsSQLite returns true if the driver is sqlite.
func (d DatabaseConfig) IsSQLite() bool {
	return d.Driver == "sqlite"
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../..")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "dataservice")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.name", "dataservice")
	viper.SetDefault("database.pool_size", 10)
	viper.SetDefault("database.path", "./data")
	viper.SetDefault("jwt_secret", "")
	viper.SetDefault("jwt_public_key_base64", "")
	viper.SetDefault("rbac_admin_roles", "admin")
	viper.SetDefault("audit_log_enabled", "true")
	viper.SetDefault("log_level", "info")

	viper.AutomaticEnv()
	viper.BindEnv("server.port", "SERVER_PORT")                     //nolint:errcheck
	viper.BindEnv("database.driver", "DATABASE_DRIVER")             //nolint:errcheck
	viper.BindEnv("database.host", "DATABASE_HOST")                 //nolint:errcheck
	viper.BindEnv("database.port", "DATABASE_PORT")                 //nolint:errcheck
	viper.BindEnv("database.user", "DATABASE_USER")                 //nolint:errcheck
	viper.BindEnv("database.password", "DATABASE_PASSWORD")         //nolint:errcheck
	viper.BindEnv("database.name", "DATABASE_NAME")                 //nolint:errcheck
	viper.BindEnv("database.pool_size", "DATABASE_POOL_SIZE")       //nolint:errcheck
	viper.BindEnv("database.path", "DATABASE_PATH")                 //nolint:errcheck
	viper.BindEnv("jwt_secret", "JWT_SECRET")                       //nolint:errcheck
	viper.BindEnv("jwt_public_key_base64", "JWT_PUBLIC_KEY_BASE64") //nolint:errcheck
	viper.BindEnv("rbac_admin_roles", "RBAC_ADMIN_ROLES")           //nolint:errcheck
	viper.BindEnv("audit_log_enabled", "AUDIT_LOG_ENABLED")         //nolint:errcheck
	viper.BindEnv("log_level", "LOG_LEVEL")                         //nolint:errcheck

	// Config file is optional; everything has an env binding or a default.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.AdminRoles = splitRoles(viper.GetString("rbac_admin_roles"))
	if len(cfg.AdminRoles) == 0 {
		cfg.AdminRoles = []string{"admin"}
	}
	cfg.AuditLogEnabled = viper.GetString("audit_log_enabled") != "false"

	return &cfg, nil
}

func splitRoles(s string) []string {
	var roles []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			roles = append(roles, trimmed)
		}
	}
	return roles
}
