package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"github.com/Aesylwinn/tox-forward/internal/crypto"
	"github.com/Aesylwinn/tox-forward/internal/domain"
	"github.com/Aesylwinn/tox-forward/internal/relay"
)

// Duration is a time.Duration that reads and writes as "10s" in JSON.
// Plain numbers are taken as nanoseconds.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", b)
	}
	*d = Duration(n)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config holds runtime wiring options for the forwarder.
type Config struct {
	DataDir string `json:"data_dir"` // identity lives here
	HubURL  string `json:"hub_url"`  // e.g. http://127.0.0.1:8080

	Name   string `json:"name"`   // published display name
	Status string `json:"status"` // published status text

	ResendInterval Duration `json:"resend_interval"`
	TickInterval   Duration `json:"tick_interval"`
	AckWindow      uint32   `json:"ack_window"`

	AllowedPeers []string `json:"allowed_peers"`

	MetricsAddr string `json:"metrics_addr,omitempty"` // empty disables /metrics
	LogLevel    string `json:"log_level"`

	HTTP *http.Client `json:"-"` // optional; defaults to a client with a timeout
}

// DefaultConfig returns a config with every tunable at its default.
func DefaultConfig() Config {
	return Config{
		DataDir:        "forwarder-data",
		HubURL:         "http://127.0.0.1:8080",
		Name:           "forwarder",
		Status:         "send !help for commands",
		ResendInterval: Duration(relay.DefaultResendInterval),
		TickInterval:   Duration(50 * time.Millisecond),
		AckWindow:      relay.DefaultAckWindow,
		LogLevel:       "info",
	}
}

// LoadConfig reads path on top of DefaultConfig. Unknown fields are errors.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every problem in c at once.
func (c Config) Validate() error {
	var errs error
	if c.DataDir == "" {
		errs = multierr.Append(errs, errors.New("data_dir is required"))
	}
	if u, err := url.Parse(c.HubURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = multierr.Append(errs, fmt.Errorf("hub_url %q is not an absolute URL", c.HubURL))
	}
	if c.ResendInterval <= 0 {
		errs = multierr.Append(errs, errors.New("resend_interval must be positive"))
	}
	if c.TickInterval <= 0 {
		errs = multierr.Append(errs, errors.New("tick_interval must be positive"))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("log_level: %w", err))
	}
	if _, err := c.AllowedKeys(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

// AllowedKeys parses the allow-list strictly.
func (c Config) AllowedKeys() ([]domain.PeerKey, error) {
	var (
		keys []domain.PeerKey
		errs error
	)
	for _, s := range c.AllowedPeers {
		k, err := crypto.ParsePeerKey(s)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("allowed_peers: %w", err))
			continue
		}
		keys = append(keys, k)
	}
	return keys, errs
}
