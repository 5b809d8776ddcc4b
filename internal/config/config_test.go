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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jeremyhahn/go-keycodec/pkg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keycodec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 70, cfg.PEM.Width)
	assert.Equal(t, "AES-256-CBC", cfg.PEM.Cipher)
	assert.Equal(t, OutputText, cfg.Output)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
pem:
  width: 64
  cipher: DES-EDE3-CBC
signing:
  algorithm: ES384
jwe:
  encryption: A128CBC-HS256
  pbes2_count: 310000
parser:
  order: [pkcs8, spki, jwk]
output: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 64, cfg.PEM.Width)
	assert.Equal(t, "DES-EDE3-CBC", cfg.PEM.Cipher)
	assert.Equal(t, "ES384", cfg.Signing.Algorithm)
	assert.Equal(t, "A128CBC-HS256", cfg.JWE.Encryption)
	assert.Equal(t, 310000, cfg.JWE.PBES2Count)
	assert.Equal(t, OutputJSON, cfg.Output)

	order, err := cfg.ParserOrder()
	require.NoError(t, err)
	assert.Equal(t, []codec.Format{codec.FormatPKCS8, codec.FormatSPKI, codec.FormatJWK}, order)
	assert.NotNil(t, cfg.Logger())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "output: json\n"))
	require.NoError(t, err)
	assert.Equal(t, OutputJSON, cfg.Output)
	assert.Equal(t, 70, cfg.PEM.Width)
	assert.Equal(t, 100_000, cfg.JWE.PBES2Count)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvPEMWidth, "76")
	t.Setenv(EnvPEMCipher, "AES-128-CBC")
	t.Setenv(EnvSigningAlg, "PS256")
	t.Setenv(EnvOutput, "json")

	cfg, err := Load(writeConfig(t, "pem:\n  width: 64\n"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 76, cfg.PEM.Width)
	assert.Equal(t, "AES-128-CBC", cfg.PEM.Cipher)
	assert.Equal(t, "PS256", cfg.Signing.Algorithm)
	assert.Equal(t, OutputJSON, cfg.Output)
}

func TestLoad_BadEnvWidth(t *testing.T) {
	t.Setenv(EnvPEMWidth, "wide")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvPEMWidth)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "pem: [not, a, map]\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "unknown level"},
		{"width zero", func(c *Config) { c.PEM.Width = 0 }, "invalid PEM width"},
		{"width too large", func(c *Config) { c.PEM.Width = 4096 }, "invalid PEM width"},
		{"cipher", func(c *Config) { c.PEM.Cipher = "RC4" }, "invalid PEM cipher"},
		{"no cipher", func(c *Config) { c.PEM.Cipher = "" }, ""},
		{"signing alg", func(c *Config) { c.Signing.Algorithm = "none" }, "invalid signing algorithm"},
		{"eddsa", func(c *Config) { c.Signing.Algorithm = "EdDSA" }, ""},
		{"jwe enc", func(c *Config) { c.JWE.Encryption = "A512GCM" }, "invalid JWE encryption"},
		{"pbes2 low", func(c *Config) { c.JWE.PBES2Count = 10 }, "invalid PBES2 count"},
		{"pbes2 high", func(c *Config) { c.JWE.PBES2Count = 2_000_000 }, "invalid PBES2 count"},
		{"parser order", func(c *Config) { c.Parser.Order = []string{"pkcs8", "pem"} }, "invalid parser order"},
		{"output", func(c *Config) { c.Output = "table" }, "invalid output format"},
		{"output case", func(c *Config) { c.Output = "JSON" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
