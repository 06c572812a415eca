package config

import (
    "fmt"
    "os"
    "strconv"
    "time"

    "gopkg.in/yaml.v3"
)

// Config drives the worker binary. Loaded once at startup; the storage
// backend is selected here, not per call.
type Config struct {
    // DataDir holds the file store's town documents when no DatabaseURL
    // is set, and the demand-model drop directory under pulse/.
    DataDir     string `yaml:"data_dir"`
    DatabaseURL string `yaml:"database_url"`
    RedisURL    string `yaml:"redis_url"`
    PulseDir    string `yaml:"pulse_dir"`

    Listen  string `yaml:"listen"`
    Workers int    `yaml:"workers"`
    Batch   int    `yaml:"batch"`

    ScanIntervalMinutes int `yaml:"scan_interval_minutes"`

    ActiveSeasons []string `yaml:"active_seasons"`

    LogMode string `yaml:"log_mode"`
}

func Default() Config {
    return Config{
        DataDir:             "data",
        PulseDir:            "data/pulse",
        Listen:              ":8080",
        Workers:             5,
        Batch:               20,
        ScanIntervalMinutes: 5,
        LogMode:             "dev",
    }
}

// Load reads the yaml file at path (optional) and applies env overrides.
func Load(path string) (Config, error) {
    cfg := Default()
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err := yaml.Unmarshal(b, &cfg); err != nil {
            return cfg, fmt.Errorf("parse config: %w", err)
        }
    }
    if v := os.Getenv("DATABASE_URL"); v != "" {
        cfg.DatabaseURL = v
    }
    if v := os.Getenv("REDIS_URL"); v != "" {
        cfg.RedisURL = v
    }
    if v := os.Getenv("PORT"); v != "" {
        cfg.Listen = ":" + v
    }
    if v := os.Getenv("TOWNGRAPH_DATA_DIR"); v != "" {
        cfg.DataDir = v
    }
    if v := os.Getenv("TOWNGRAPH_WORKERS"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 {
            cfg.Workers = n
        }
    }
    if cfg.Workers <= 0 {
        cfg.Workers = 5
    }
    if cfg.Batch <= 0 {
        cfg.Batch = 20
    }
    if cfg.ScanIntervalMinutes <= 0 {
        cfg.ScanIntervalMinutes = 5
    }
    return cfg, nil
}

func (c Config) ScanInterval() time.Duration {
    return time.Duration(c.ScanIntervalMinutes) * time.Minute
}
