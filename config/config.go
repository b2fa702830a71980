// Package config loads the process-global settings that sit outside the
// three declarative directories (networks/, monitors/, triggers/ are
// loaded by repository/): worker pool sizing, channel buffering, log
// level, and the paths to the declarative directories themselves. Grounded
// on the teacher's own viper-driven global settings convention, adapted
// here to a JSON root config (the teacher's own config.json shape) instead
// of the teacher's exchange-credential schema.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/thrasher-corp/chainmonitor/repository"
)

// Settings holds every process-global option not scoped to a single
// network, monitor, or trigger.
type Settings struct {
	NetworksDir        string `mapstructure:"networks_dir"`
	MonitorsDir        string `mapstructure:"monitors_dir"`
	TriggersDir        string `mapstructure:"triggers_dir"`
	NumWorkers         int    `mapstructure:"num_workers"`
	BlockChannelSize   int    `mapstructure:"block_channel_size"`
	TriggerChannelSize int    `mapstructure:"trigger_channel_size"`
	BlockHistorySize   int    `mapstructure:"block_history_size"`
	LogLevel           string `mapstructure:"log_level"`
	DatabaseDriver     string `mapstructure:"database_driver"`
	DatabaseDSN        string `mapstructure:"database_dsn"`
}

func defaults() Settings {
	return Settings{
		NetworksDir:        "networks",
		MonitorsDir:        "monitors",
		TriggersDir:        "triggers",
		NumWorkers:         4,
		BlockChannelSize:   256,
		TriggerChannelSize: 256,
		BlockHistorySize:   64,
		LogLevel:           "info",
	}
}

// Load reads configPath (a JSON file; empty uses built-in defaults alone)
// via viper, overlaying CHAINMONITOR_-prefixed environment variables, and
// returns the resolved Settings.
func Load(configPath string) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix("chainmonitor")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := defaults()
	v.SetDefault("networks_dir", d.NetworksDir)
	v.SetDefault("monitors_dir", d.MonitorsDir)
	v.SetDefault("triggers_dir", d.TriggersDir)
	v.SetDefault("num_workers", d.NumWorkers)
	v.SetDefault("block_channel_size", d.BlockChannelSize)
	v.SetDefault("trigger_channel_size", d.TriggerChannelSize)
	v.SetDefault("block_history_size", d.BlockHistorySize)
	v.SetDefault("log_level", d.LogLevel)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, repository.LoadError("reading config file "+configPath, err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, repository.LoadError("decoding config", err)
	}

	if settings.NumWorkers <= 0 {
		return nil, repository.ValidationError("num_workers must be positive")
	}
	if settings.BlockChannelSize <= 0 || settings.TriggerChannelSize <= 0 {
		return nil, repository.ValidationError("channel sizes must be positive")
	}

	return &settings, nil
}
