// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keycodec.
//
// go-keycodec is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package config loads the keycodec CLI defaults from YAML with environment
// overrides. Library packages never read configuration; the CLI turns a
// Config into explicit option structs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jeremyhahn/go-keycodec/pkg/codec"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/jwa"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/pem"
	"github.com/jeremyhahn/go-keycodec/pkg/logging"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvLogLevel   = "KEYCODEC_LOG_LEVEL"
	EnvPEMWidth   = "KEYCODEC_PEM_WIDTH"
	EnvPEMCipher  = "KEYCODEC_PEM_CIPHER"
	EnvSigningAlg = "KEYCODEC_SIGNING_ALG"
	EnvOutput     = "KEYCODEC_OUTPUT"
)

// Output formats
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Config represents the complete CLI configuration
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	PEM     PEMConfig     `yaml:"pem"`
	Signing SigningConfig `yaml:"signing"`
	JWE     JWEConfig     `yaml:"jwe"`
	Parser  ParserConfig  `yaml:"parser"`
	// Output is text or json.
	Output string `yaml:"output"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// PEMConfig controls armored output
type PEMConfig struct {
	// Width is the BASE64 line width.
	Width int `yaml:"width"`
	// Cipher is the RFC 1423 cipher used when a passphrase is given.
	Cipher string `yaml:"cipher"`
}

// SigningConfig controls JWS and certificate signatures
type SigningConfig struct {
	// Algorithm is a JWS "alg" name. Empty picks the key's default.
	Algorithm string `yaml:"algorithm"`
}

// JWEConfig controls JWE encryption defaults
type JWEConfig struct {
	// Encryption is the "enc" name. Empty picks by CPU AES support.
	Encryption string `yaml:"encryption"`
	// PBES2Count is the PBKDF2 iteration count for PBES2 recipients.
	PBES2Count int `yaml:"pbes2_count"`
}

// ParserConfig controls the key auto-parser
type ParserConfig struct {
	// Order lists format names in priority order. Empty uses the default.
	Order []string `yaml:"order,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		PEM:     PEMConfig{Width: pem.DefaultWidth, Cipher: codec.DefaultCipher},
		JWE:     JWEConfig{PBES2Count: 100_000},
		Output:  OutputText,
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		// #nosec G304 - Config file path is provided by the user
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) error {
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Logging.Level = level
	}
	if width := os.Getenv(EnvPEMWidth); width != "" {
		w, err := strconv.Atoi(width)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPEMWidth, err)
		}
		cfg.PEM.Width = w
	}
	if cipher := os.Getenv(EnvPEMCipher); cipher != "" {
		cfg.PEM.Cipher = cipher
	}
	if alg := os.Getenv(EnvSigningAlg); alg != "" {
		cfg.Signing.Algorithm = alg
	}
	if output := os.Getenv(EnvOutput); output != "" {
		cfg.Output = output
	}
	return nil
}

// Validate checks every name against the codec tables.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}

	if c.PEM.Width < 4 || c.PEM.Width > 1024 {
		return fmt.Errorf("invalid PEM width: %d (must be between 4 and 1024)", c.PEM.Width)
	}
	if c.PEM.Cipher != "" {
		if _, err := pem.CipherByName(c.PEM.Cipher); err != nil {
			return fmt.Errorf("invalid PEM cipher: %w", err)
		}
	}

	if c.Signing.Algorithm != "" {
		if _, err := jwa.SignatureByName(c.Signing.Algorithm); err != nil {
			return fmt.Errorf("invalid signing algorithm: %w", err)
		}
	}

	if c.JWE.Encryption != "" {
		if _, err := jwa.ContentEncryptionByName(c.JWE.Encryption); err != nil {
			return fmt.Errorf("invalid JWE encryption: %w", err)
		}
	}
	if c.JWE.PBES2Count < 1000 || c.JWE.PBES2Count > 1_000_000 {
		return fmt.Errorf("invalid PBES2 count: %d (must be between 1000 and 1000000)", c.JWE.PBES2Count)
	}

	if _, err := c.ParserOrder(); err != nil {
		return err
	}

	switch strings.ToLower(c.Output) {
	case OutputText, OutputJSON:
	default:
		return fmt.Errorf("invalid output format: %s (must be text or json)", c.Output)
	}
	return nil
}

// ParserOrder resolves Parser.Order. A nil result selects the default order.
func (c *Config) ParserOrder() ([]codec.Format, error) {
	if len(c.Parser.Order) == 0 {
		return nil, nil
	}
	out := make([]codec.Format, 0, len(c.Parser.Order))
	for _, name := range c.Parser.Order {
		f, err := codec.ParseFormat(name)
		if err != nil {
			return nil, fmt.Errorf("invalid parser order: %w", err)
		}
		out = append(out, f)
	}
	return out, nil
}

// Logger builds the configured logger on stderr.
func (c *Config) Logger() *logging.Logger {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return logging.DefaultLogger()
	}
	return logging.New(os.Stderr, level)
}
