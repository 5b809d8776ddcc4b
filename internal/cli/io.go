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

package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/jeremyhahn/go-keycodec/pkg/keyparse"
	"github.com/spf13/cobra"
)

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	// #nosec G304 - Input path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// writeOutput writes to path with owner-only permissions, or to stdout
// when path is empty.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// readSecret returns the literal value or the trimmed contents of file.
func readSecret(value, file string) ([]byte, error) {
	if value != "" && file != "" {
		return nil, fmt.Errorf("use either the value or the file flag, not both")
	}
	if file == "" {
		if value == "" {
			return nil, nil
		}
		return []byte(value), nil
	}
	// #nosec G304 - Secret path is provided by the user
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	return bytes.TrimRight(data, "\r\n"), nil
}

// parseKey auto-detects the format of the key in path.
func (c *Config) parseKey(cmd *cobra.Command, path string, passphrase []byte) (*keyparse.Result, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	order, err := c.settings.ParserOrder()
	if err != nil {
		return nil, err
	}
	parser := &keyparse.Parser{Order: order, Logger: c.logger.With("input", path)}
	res, err := parser.Parse(data, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to parse key %s: %w", path, err)
	}
	c.logger.Debug("key parsed", "input", path, "format", res.Format, "algorithm", res.Algorithm)
	return res, nil
}
