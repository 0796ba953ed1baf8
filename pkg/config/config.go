// Package config loads the YAML configuration shared by the converter and
// player binaries.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Conversion ConversionConfig `mapstructure:"conversion"`
	Device     DeviceConfig     `mapstructure:"device"`
	Web        WebConfig        `mapstructure:"web"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ConversionConfig holds transcoding options
type ConversionConfig struct {
	TargetClock uint32 `mapstructure:"target_clock"` // YM2610B clock of the appliance
	ByteswapPCM bool   `mapstructure:"byteswap_pcm"` // Compensate for device ROM bus wiring
	WriteWAV    bool   `mapstructure:"write_wav"`    // Debug export of the DAC timeline
}

// DeviceConfig identifies the playback appliance
type DeviceConfig struct {
	VendorID  uint16 `mapstructure:"vendor_id"`
	ProductID uint16 `mapstructure:"product_id"`
}

// WebConfig holds status dashboard configuration
type WebConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// MetricsConfig holds Prometheus exposition configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// DatabaseConfig holds the conversion log configuration
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given file, falling back to defaults
// when no file is found.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("YM2610")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is OK, use defaults
		} else if os.IsNotExist(err) {
			// File explicitly specified but doesn't exist - also OK
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("conversion.target_clock", 8000000)
	v.SetDefault("conversion.byteswap_pcm", true)
	v.SetDefault("conversion.write_wav", false)

	v.SetDefault("device.vendor_id", 0x1d50)
	v.SetDefault("device.product_id", 0x6147)

	v.SetDefault("web.enabled", false)
	v.SetDefault("web.host", "127.0.0.1")
	v.SetDefault("web.port", 8090)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9095)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.path", "data/conversions.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}
