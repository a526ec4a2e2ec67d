package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the tool configuration, read from cqlforge.yml or the
// CQLFORGE_* environment.
type Config struct {
	Cluster     ClusterConfig     `mapstructure:"cluster"`
	Keys        map[string]string `mapstructure:"keys"`
	Replication map[string]any    `mapstructure:"replication"`
	Verbose     bool              `mapstructure:"verbose"`
}

// ClusterConfig holds the connection settings.
type ClusterConfig struct {
	Hosts       []string      `mapstructure:"hosts"`
	Port        int           `mapstructure:"port"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Consistency string        `mapstructure:"consistency"`
}

// LoadConfig reads cqlforge.yml from the working directory, falling back to
// defaults when no file exists. Environment variables override file values
// (CQLFORGE_CLUSTER_PORT and the like).
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("cluster.hosts", []string{"127.0.0.1"})
	v.SetDefault("cluster.port", 9042)
	v.SetDefault("cluster.timeout", "10s")
	v.SetDefault("cluster.consistency", "QUORUM")
	v.SetDefault("replication", map[string]any{"class": "SimpleStrategy", "replication_factor": 1})

	v.SetConfigName("cqlforge")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("cqlforge")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; defaults and environment apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if len(cfg.Cluster.Hosts) == 0 {
		return nil, fmt.Errorf("cluster.hosts must not be empty")
	}
	return &cfg, nil
}
