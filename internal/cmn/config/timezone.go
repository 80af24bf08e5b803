package config

import (
	"fmt"
	"time"
)

// setTimezone resolves cfg.TZ into cfg.Location. An empty TZ means the
// local zone; its IANA name is recorded when the runtime knows it so new
// recurring reminders evaluate the same way in a daemon started elsewhere.
func setTimezone(cfg *Core) error {
	if cfg.TZ != "" {
		loc, err := time.LoadLocation(cfg.TZ)
		if err != nil {
			return fmt.Errorf("failed to load timezone %q: %w", cfg.TZ, err)
		}
		cfg.Location = loc
		return nil
	}

	cfg.Location = time.Local
	if name := time.Local.String(); name != "Local" {
		cfg.TZ = name
	}
	return nil
}
