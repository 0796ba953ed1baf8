package config

import "fmt"

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Conversion.TargetClock == 0 {
		return fmt.Errorf("conversion.target_clock must be positive")
	}
	if cfg.Conversion.TargetClock > 8000000 {
		return fmt.Errorf("conversion.target_clock must not exceed 8000000")
	}

	if cfg.Web.Enabled {
		if cfg.Web.Port <= 0 || cfg.Web.Port > 65535 {
			return fmt.Errorf("web.port must be between 1 and 65535")
		}
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port <= 0 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be between 1 and 65535")
		}
		if cfg.Metrics.Path == "" {
			return fmt.Errorf("metrics.path is required when metrics are enabled")
		}
	}

	if cfg.Database.Enabled && cfg.Database.Path == "" {
		return fmt.Errorf("database.path is required when the database is enabled")
	}

	return nil
}
