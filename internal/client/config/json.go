package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/dentdocs/internal/flagx"
	"github.com/dmitrijs2005/dentdocs/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent
// fields leave the current value untouched.
type JsonConfig struct {
	Transport          *string         `json:"transport"`
	ServerEndpointAddr *string         `json:"server_endpoint_addr"`
	BaseURL            *string         `json:"base_url"`
	AccessToken        *string         `json:"access_token"`
	ReserveTimeout     *timex.Duration `json:"reserve_timeout"`
	TransferTimeout    *timex.Duration `json:"transfer_timeout"`
	ConfirmTimeout     *timex.Duration `json:"confirm_timeout"`
	JournalPath        *string         `json:"journal_path"`
	MetricsTextfile    *string         `json:"metrics_textfile"`
	LogLevel           *string         `json:"log_level"`
}

// parseJson overlays cfg with the JSON file given by -c/-config/--config.
// Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	for dst, src := range map[*string]*string{
		&cfg.Transport:          jc.Transport,
		&cfg.ServerEndpointAddr: jc.ServerEndpointAddr,
		&cfg.BaseURL:            jc.BaseURL,
		&cfg.AccessToken:        jc.AccessToken,
		&cfg.JournalPath:        jc.JournalPath,
		&cfg.MetricsTextfile:    jc.MetricsTextfile,
		&cfg.LogLevel:           jc.LogLevel,
	} {
		if src != nil {
			*dst = *src
		}
	}
	if jc.ReserveTimeout != nil {
		cfg.ReserveTimeout = jc.ReserveTimeout.Duration
	}
	if jc.TransferTimeout != nil {
		cfg.TransferTimeout = jc.TransferTimeout.Duration
	}
	if jc.ConfirmTimeout != nil {
		cfg.ConfirmTimeout = jc.ConfirmTimeout.Duration
	}
}
