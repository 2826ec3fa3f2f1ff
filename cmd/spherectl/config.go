package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// cliConfig is the effective configuration after file and flag overlay.
type cliConfig struct {
	Port     string
	Baud     int
	Timeout  time.Duration
	Retries  int
	Metrics  string
	Debug    bool
	Simulate bool
}

func defaultCLIConfig() cliConfig {
	return cliConfig{
		Port:    "/dev/rfcomm0",
		Baud:    115200,
		Timeout: 500 * time.Millisecond,
		Retries: 3,
	}
}

// spherectl.toml key mapping.
type tomlConfig struct {
	Port     string `toml:"port"`
	Baud     int    `toml:"baud"`
	Timeout  string `toml:"timeout"`
	Retries  int    `toml:"retries"`
	Metrics  string `toml:"metrics"`
	Debug    bool   `toml:"debug"`
	Simulate bool   `toml:"simulate"`
}

// spherectl.hcl attributes. Absent attributes stay nil.
type hclConfig struct {
	Port     *string `hcl:"port,optional"`
	Baud     *int    `hcl:"baud,optional"`
	Timeout  *string `hcl:"timeout,optional"`
	Retries  *int    `hcl:"retries,optional"`
	Metrics  *string `hcl:"metrics,optional"`
	Debug    *bool   `hcl:"debug,optional"`
	Simulate *bool   `hcl:"simulate,optional"`
}

// loadConfig reads path over the defaults. The format follows the file
// extension: .hcl for HCL, anything else is TOML.
func loadConfig(path string) (cliConfig, error) {
	cfg := defaultCLIConfig()
	if path == "" {
		return cfg, nil
	}

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		err = loadHCL(path, &cfg)
	default:
		err = loadTOML(path, &cfg)
	}
	if err != nil {
		return cliConfig{}, fmt.Errorf("load config %s: %w", path, err)
	}

	return cfg, cfg.validate()
}

func loadTOML(path string, cfg *cliConfig) error {
	var raw tomlConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return err
	}

	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("baud") {
		cfg.Baud = raw.Baud
	}
	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if meta.IsDefined("retries") {
		cfg.Retries = raw.Retries
	}
	if meta.IsDefined("metrics") {
		cfg.Metrics = strings.TrimSpace(raw.Metrics)
	}
	if meta.IsDefined("debug") {
		cfg.Debug = raw.Debug
	}
	if meta.IsDefined("simulate") {
		cfg.Simulate = raw.Simulate
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	return nil
}

func loadHCL(path string, cfg *cliConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	file, diag := hclsyntax.ParseConfig(data, path, hcl.Pos{Line: 1, Column: 1})
	if diag.HasErrors() {
		return diag.Errs()[0]
	}

	var raw hclConfig
	diag = gohcl.DecodeBody(file.Body, nil, &raw)
	if diag.HasErrors() {
		return diag.Errs()[0]
	}

	if raw.Port != nil {
		cfg.Port = strings.TrimSpace(*raw.Port)
	}
	if raw.Baud != nil {
		cfg.Baud = *raw.Baud
	}
	if raw.Timeout != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*raw.Timeout))
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if raw.Retries != nil {
		cfg.Retries = *raw.Retries
	}
	if raw.Metrics != nil {
		cfg.Metrics = strings.TrimSpace(*raw.Metrics)
	}
	if raw.Debug != nil {
		cfg.Debug = *raw.Debug
	}
	if raw.Simulate != nil {
		cfg.Simulate = *raw.Simulate
	}
	return nil
}

func (c cliConfig) validate() error {
	if c.Baud <= 0 {
		return fmt.Errorf("baud must be positive, got %d", c.Baud)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Retries)
	}
	if !c.Simulate && c.Port == "" {
		return fmt.Errorf("no port configured")
	}
	return nil
}
