package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Transports understood by dentctl.
const (
	TransportGRPC = "grpc"
	TransportHTTP = "http"
)

// Config holds runtime settings for dentctl.
type Config struct {
	// Transport selects how the document store is reached: "grpc" or "http".
	Transport          string
	ServerEndpointAddr string
	BaseURL            string
	AccessToken        string

	ReserveTimeout  time.Duration
	TransferTimeout time.Duration
	ConfirmTimeout  time.Duration

	// JournalPath is the SQLite file recording orphaned uploads.
	JournalPath string
	// MetricsTextfile, when set, receives upload metrics in the Prometheus
	// text format after each command.
	MetricsTextfile string
	LogLevel        string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Transport = TransportGRPC
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.BaseURL = "http://127.0.0.1:8080"
	c.ReserveTimeout = 15 * time.Second
	c.TransferTimeout = 10 * time.Minute
	c.ConfirmTimeout = 30 * time.Second
	c.JournalPath = defaultJournalPath()
	c.LogLevel = "warn"
}

func defaultJournalPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "dentdocs", "journal.db")
}

// LoadConfig builds a Config from defaults, the JSON file named by -c and
// the environment. Flags are applied later by the command line.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	return cfg
}

// Validate reports settings no command can run with.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportGRPC:
		if c.ServerEndpointAddr == "" {
			return fmt.Errorf("server address is required for the %s transport", c.Transport)
		}
	case TransportHTTP:
		if c.BaseURL == "" {
			return fmt.Errorf("base URL is required for the %s transport", c.Transport)
		}
	default:
		return fmt.Errorf("unknown transport %q (want %q or %q)", c.Transport, TransportGRPC, TransportHTTP)
	}
	for name, d := range map[string]time.Duration{
		"reserve timeout":  c.ReserveTimeout,
		"transfer timeout": c.TransferTimeout,
		"confirm timeout":  c.ConfirmTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
