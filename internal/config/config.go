package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime settings read from the environment (and an optional .env file).
type Config struct {
	Port           string
	DatabaseDriver string // postgres or sqlite
	DatabaseURL    string
	SessionSecret  string
	LogLevel       string
	GinMode        string
	MaxTreeDepth   int
	TreeCacheSize  int
	TreeCacheTTL   time.Duration
	CORSOrigins    []string
}

const defaultPostgresDSN = "host=localhost user=postgres password=postgres dbname=inkwell port=5432 sslmode=disable TimeZone=UTC"

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("database_driver", "postgres")
	v.SetDefault("database_url", "")
	v.SetDefault("session_secret", "secret_key_change_me")
	v.SetDefault("log_level", "info")
	v.SetDefault("gin_mode", "release")
	v.SetDefault("max_tree_depth", 10)
	v.SetDefault("tree_cache_size", 500)
	v.SetDefault("tree_cache_ttl", time.Minute)
	v.SetDefault("cors_origins", "")
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Port:           v.GetString("port"),
		DatabaseDriver: strings.ToLower(v.GetString("database_driver")),
		DatabaseURL:    v.GetString("database_url"),
		SessionSecret:  v.GetString("session_secret"),
		LogLevel:       v.GetString("log_level"),
		GinMode:        v.GetString("gin_mode"),
		MaxTreeDepth:   v.GetInt("max_tree_depth"),
		TreeCacheSize:  v.GetInt("tree_cache_size"),
		TreeCacheTTL:   v.GetDuration("tree_cache_ttl"),
	}

	for _, origin := range strings.Split(v.GetString("cors_origins"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	if cfg.DatabaseURL == "" {
		switch cfg.DatabaseDriver {
		case "sqlite":
			cfg.DatabaseURL = "inkwell.db"
		default:
			// Fallback for local dev if not set
			cfg.DatabaseURL = defaultPostgresDSN
		}
	}
	if cfg.MaxTreeDepth < 1 {
		cfg.MaxTreeDepth = 10
	}
	if cfg.TreeCacheSize < 1 {
		cfg.TreeCacheSize = 500
	}
	return cfg
}
