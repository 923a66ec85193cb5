package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CYKLON"

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	PGDSN              string
	StateFile          string
	EventsOut          string
	RedisURL           string
	RedisChannel       string
	LogLevel           string
	Accounting         string
	DefaultTickSpacing int32
	DefaultSqrtPrice   string
	BatchSize          uint64
	Workers            int
	Checkpoint         string
	CheckpointEnabled  bool
	Errors             string
}

// Load merges config file, environment variables, and flags into Config.
// Flags win over env, env over the file, the file over defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("state-file", "./data/state.json")
	v.SetDefault("log-level", "info")
	v.SetDefault("accounting", "scalar")
	v.SetDefault("default-tick-spacing", 1)
	v.SetDefault("batch-size", uint64(500))
	v.SetDefault("workers", 8)
	v.SetDefault("checkpoint", "./data/replay_checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("errors", "./data/replay_errors.jsonl")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		PGDSN:              v.GetString("pg-dsn"),
		StateFile:          v.GetString("state-file"),
		EventsOut:          v.GetString("events-out"),
		RedisURL:           v.GetString("redis-url"),
		RedisChannel:       v.GetString("redis-channel"),
		LogLevel:           v.GetString("log-level"),
		Accounting:         v.GetString("accounting"),
		DefaultTickSpacing: v.GetInt32("default-tick-spacing"),
		DefaultSqrtPrice:   v.GetString("default-sqrt-price"),
		BatchSize:          v.GetUint64("batch-size"),
		Workers:            v.GetInt("workers"),
		Checkpoint:         v.GetString("checkpoint"),
		CheckpointEnabled:  v.GetBool("checkpoint-enabled"),
		Errors:             v.GetString("errors"),
	}

	if cfg.DefaultTickSpacing <= 0 {
		return Config{}, fmt.Errorf("default tick spacing must be positive: %d", cfg.DefaultTickSpacing)
	}
	return cfg, nil
}
