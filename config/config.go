// Package config is the JSON configuration file of onvifctl.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/viam-modules/onvifcore/device"
)

const (
	// DefaultListen is the address the HTTP API listens on.
	DefaultListen = "127.0.0.1:8090"
	// DefaultStorePath is the session store file, relative to the working directory.
	DefaultStorePath = "onvif-sessions.db"
)

// Device is one configured device.
type Device struct {
	Name                     string `json:"name"`
	Xaddr                    string `json:"xaddr"`
	Username                 string `json:"username,omitempty"`
	Password                 string `json:"password,omitempty"`
	SkipLocalTLSVerification bool   `json:"skip_local_tls_verification,omitempty"`
}

// Config is the onvifctl configuration.
type Config struct {
	Devices []Device `json:"devices"`
	// Credentials are tried, in order, against discovered devices that are not listed in Devices.
	Credentials []device.Credentials `json:"credentials,omitempty"`
	StorePath   string               `json:"store_path,omitempty"`
	Listen      string               `json:"listen,omitempty"`
	MDNS        bool                 `json:"mdns,omitempty"`
	MDNSCache   string               `json:"mdns_cache,omitempty"`
	// StepTimeout bounds each bootstrap request, e.g. "10s".
	StepTimeout string `json:"step_timeout,omitempty"`
}

// Load reads and validates the config at path, filling in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Template returns a config with one example device, for `onvifctl config init`.
func Template() *Config {
	cfg := &Config{
		Devices: []Device{{
			Name:     "front-door",
			Xaddr:    "http://192.168.1.10/onvif/device_service",
			Username: "admin",
			Password: "password",
		}},
		MDNS: false,
	}
	cfg.applyDefaults()
	return cfg
}

// Default returns an empty config with defaults filled in, for running without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.StorePath == "" {
		cfg.StorePath = DefaultStorePath
	}
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.StepTimeout == "" {
		cfg.StepTimeout = "10s"
	}
}

// Validate checks every device and the step timeout.
func (cfg *Config) Validate() error {
	names := map[string]struct{}{}
	for i, d := range cfg.Devices {
		if d.Name == "" {
			return fmt.Errorf("devices[%d]: name is required", i)
		}
		if _, dup := names[d.Name]; dup {
			return fmt.Errorf("devices[%d]: duplicate name %q", i, d.Name)
		}
		names[d.Name] = struct{}{}
		if _, err := d.URL(); err != nil {
			return fmt.Errorf("devices[%d]: %w", i, err)
		}
		if d.Password != "" && d.Username == "" {
			return fmt.Errorf("devices[%d]: password set without a username", i)
		}
	}
	for i, cred := range cfg.Credentials {
		if cred.Pass != "" && cred.User == "" {
			return fmt.Errorf("credentials[%d]: password set without a username", i)
		}
	}
	if cfg.StepTimeout != "" {
		if d, err := time.ParseDuration(cfg.StepTimeout); err != nil || d <= 0 {
			return fmt.Errorf("step_timeout %q must be a positive duration", cfg.StepTimeout)
		}
	}
	return nil
}

// StepTimeoutDuration returns the parsed step timeout, or 0 when unset.
func (cfg *Config) StepTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(cfg.StepTimeout)
	if err != nil {
		return 0
	}
	return d
}

// Device returns the device named name.
func (cfg *Config) Device(name string) (Device, bool) {
	for _, d := range cfg.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return Device{}, false
}

// URL parses the device xaddr. A bare host or host:port gets the standard device service path.
func (d Device) URL() (*url.URL, error) {
	if d.Xaddr == "" {
		return nil, errors.New("xaddr is required")
	}
	u, err := url.Parse(d.Xaddr)
	if err != nil || u.Host == "" {
		// "192.168.1.10" or "192.168.1.10:8080"
		u, err = url.Parse("http://" + d.Xaddr)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid xaddr %q", d.Xaddr)
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("xaddr %q must be http or https", d.Xaddr)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/onvif/device_service"
	}
	return u, nil
}

// Params returns the device connection parameters.
func (d Device) Params() (device.Params, error) {
	u, err := d.URL()
	if err != nil {
		return device.Params{}, err
	}
	return device.Params{
		Xaddr:                    u,
		Username:                 d.Username,
		Password:                 d.Password,
		SkipLocalTLSVerification: d.SkipLocalTLSVerification,
	}, nil
}

// Write saves cfg as indented JSON.
func (cfg *Config) Write(path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
