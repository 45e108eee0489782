package config

import (
	"time"

	"github.com/dmitrijs2005/dentdocs/internal/envx"
)

// parseEnv overlays DENTDOCS_* variables. Malformed durations panic.
func parseEnv(cfg *Config) {
	if err := envx.LoadDotEnv(); err != nil {
		panic(err)
	}

	envx.String(&cfg.Transport, "TRANSPORT")
	envx.String(&cfg.ServerEndpointAddr, "SERVER_ADDR")
	envx.String(&cfg.BaseURL, "BASE_URL")
	envx.String(&cfg.AccessToken, "ACCESS_TOKEN")
	envx.String(&cfg.JournalPath, "JOURNAL_PATH")
	envx.String(&cfg.MetricsTextfile, "METRICS_TEXTFILE")
	envx.String(&cfg.LogLevel, "LOG_LEVEL")

	for name, dst := range map[string]*time.Duration{
		"RESERVE_TIMEOUT":  &cfg.ReserveTimeout,
		"TRANSFER_TIMEOUT": &cfg.TransferTimeout,
		"CONFIRM_TIMEOUT":  &cfg.ConfirmTimeout,
	} {
		if err := envx.Duration(dst, name); err != nil {
			panic(err)
		}
	}
}
