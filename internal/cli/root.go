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

// Package cli implements the keycodec command line front-end.
package cli

import (
	"log/slog"

	"github.com/jeremyhahn/go-keycodec/internal/config"
	"github.com/jeremyhahn/go-keycodec/pkg/logging"
	"github.com/spf13/cobra"
)

// Config holds global CLI state shared by every command
type Config struct {
	// ConfigFile is the path to the YAML configuration file
	ConfigFile string

	// OutputFormat overrides the configured output format (text, json)
	OutputFormat string

	// Verbose enables debug logging
	Verbose bool

	settings *config.Config
	logger   *logging.Logger
}

// NewRootCmd builds the keycodec command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&Config{})
}

func newRootCmd(cfg *Config) *cobra.Command {

	root := &cobra.Command{
		Use:   "keycodec",
		Short: "keycodec - Key format conversion and JOSE tool",
		Long: `keycodec reads and writes public and private keys in PKCS#1, PKCS#8,
SPKI, X.509, OpenSSH, SSH2, JWK and DNSKEY formats, signs and encrypts
JOSE objects, and issues self-signed certificates.

Input formats are detected automatically.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&cfg.ConfigFile, "config", "",
		"config file (YAML)")
	root.PersistentFlags().StringVarP(&cfg.OutputFormat, "output", "o", "",
		"output format (text, json)")
	root.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false,
		"verbose output")

	root.AddCommand(
		newVersionCmd(cfg),
		newInspectCmd(cfg),
		newConvertCmd(cfg),
		newJWSCmd(cfg),
		newJWECmd(cfg),
		newCertCmd(cfg),
	)
	return root
}

// Execute runs the root command and reports any error on stderr in the
// configured output format.
func Execute() error {
	cfg := &Config{}
	root := newRootCmd(cfg)
	if err := root.Execute(); err != nil {
		format := string(OutputFormatText)
		if cfg.settings != nil {
			format = cfg.settings.Output
		}
		_ = NewPrinter(format, root.ErrOrStderr()).PrintError(err) // Error printing to stderr is best-effort
		return err
	}
	return nil
}

func (c *Config) load(cmd *cobra.Command) error {
	settings, err := config.Load(c.ConfigFile)
	if err != nil {
		return err
	}
	if c.OutputFormat != "" {
		settings.Output = c.OutputFormat
		if err := settings.Validate(); err != nil {
			return err
		}
	}
	c.settings = settings

	level, _ := logging.ParseLevel(settings.Logging.Level)
	if c.Verbose {
		level = slog.LevelDebug
	}
	c.logger = logging.New(cmd.ErrOrStderr(), level)
	return nil
}

func (c *Config) printer(cmd *cobra.Command) *Printer {
	return NewPrinter(c.settings.Output, cmd.OutOrStdout())
}
