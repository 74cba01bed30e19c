// internal/workers/claims/notify-claim-outcome/config.go
package notifyclaimoutcome

import "time"

type Config struct {
	EmailEnabled bool
	FromEmail    string
	Timeout      time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
	}
}
