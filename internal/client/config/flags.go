package config

import "github.com/spf13/pflag"

// BindFlags registers persistent flags writing straight into c. Call it
// after LoadConfig so the current values become the flag defaults.
//
//	-c, --config string          JSON config file (read by LoadConfig)
//	-a, --addr string            gRPC address of the document store
//	    --base-url string        REST base URL of the document store
//	    --transport string       grpc or http
//	    --token string           access token
//	    --reserve-timeout dur    reserve phase timeout
//	    --transfer-timeout dur   transfer phase timeout
//	    --confirm-timeout dur    confirm phase timeout
//	    --journal string         orphan journal path
//	    --metrics-textfile path  write upload metrics here
//	    --log-level string       debug, info, warn or error
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	var configPath string
	fs.StringVarP(&configPath, "config", "c", "", "JSON config file")

	fs.StringVarP(&c.ServerEndpointAddr, "addr", "a", c.ServerEndpointAddr, "gRPC address of the document store")
	fs.StringVar(&c.BaseURL, "base-url", c.BaseURL, "REST base URL of the document store")
	fs.StringVar(&c.Transport, "transport", c.Transport, "transport to the document store (grpc or http)")
	fs.StringVar(&c.AccessToken, "token", c.AccessToken, "access token")
	fs.DurationVar(&c.ReserveTimeout, "reserve-timeout", c.ReserveTimeout, "reserve phase timeout")
	fs.DurationVar(&c.TransferTimeout, "transfer-timeout", c.TransferTimeout, "transfer phase timeout")
	fs.DurationVar(&c.ConfirmTimeout, "confirm-timeout", c.ConfirmTimeout, "confirm phase timeout")
	fs.StringVar(&c.JournalPath, "journal", c.JournalPath, "orphan journal path")
	fs.StringVar(&c.MetricsTextfile, "metrics-textfile", c.MetricsTextfile, "write upload metrics to this file")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
}
