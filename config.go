package odb

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the service configuration, intended to be mapped by viper.
type Config struct {
	InstanceName string      `mapstructure:"instance_name"`
	Environment  Environment `mapstructure:"environment"`

	Log Log `mapstructure:"log"`
	Bus Bus `mapstructure:"bus"`
}

const (
	LocalEnv      Environment = "local"
	TestEnv       Environment = "test"
	ProductionEnv Environment = "prod"
)

type Environment string

type (
	Log struct {
		// Level is one of debug, info, warn, error.
		Level string `mapstructure:"level"`
		// Format is json or text.
		Format string `mapstructure:"format"`
	}

	Bus struct {
		// Buffer is the event queue size of each subscriber.
		Buffer int `mapstructure:"buffer"`
	}
)

// DefaultViper returns a new viper instance with all default values of
// Config set.
func DefaultViper() *viper.Viper {
	vip := viper.New()

	vip.SetDefault("instance_name", "")
	vip.SetDefault("environment", "local")

	vip.SetDefault("log.level", "info")
	vip.SetDefault("log.format", "json")

	vip.SetDefault("bus.buffer", 64)

	return vip
}

// LoadConfig unmarshals the given viper instance into a Config.
func LoadConfig(vip *viper.Viper) (Config, error) {
	var conf Config

	err := vip.Unmarshal(&conf)
	if err != nil {
		return Config{}, fmt.Errorf("could not decode configuration into struct: %w", err)
	}

	return conf, nil
}
