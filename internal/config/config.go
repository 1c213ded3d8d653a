package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "IMAGENET"

// Config holds the process-wide settings. The weights file is the
// serialized network and the meta file carries the label names, the
// mean image and the legacy flip flag that must match how the weights
// were trained.
type Config struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
	WeightsPath string `mapstructure:"weights_path"`
	MetaPath    string `mapstructure:"meta_path"`
}

func setDefaults() {
	viper.SetDefault("host", "0.0.0.0")
	viper.SetDefault("port", 8080)
	viper.SetDefault("environment", "dev")
	viper.SetDefault("weights_path", "models/imagenet.onnx")
	viper.SetDefault("meta_path", "models/imagenet.meta.json")
}

// Load resolves the configuration from flags already bound into viper,
// environment variables (IMAGENET_ prefix) and an optional .env file,
// in that order of precedence.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(`-`, `_`, `.`, `_`))
	viper.AutomaticEnv()
	setDefaults()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return cfg, nil
}
