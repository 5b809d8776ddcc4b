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
	"github.com/jeremyhahn/go-keycodec/pkg/codec"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/jwk"
	"github.com/spf13/cobra"
)

func newInspectCmd(cfg *Config) *cobra.Command {
	var passphrase, passphraseFile string

	cmd := &cobra.Command{
		Use:   "inspect <key-file|->",
		Short: "Detect the format of a key and describe it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := readSecret(passphrase, passphraseFile)
			if err != nil {
				return err
			}
			res, err := cfg.parseKey(cmd, args[0], pass)
			if err != nil {
				return err
			}

			info := &KeyInfo{
				Format:    res.Format.String(),
				Algorithm: res.Algorithm.String(),
				Bits:      res.Key.Bits(),
				Private:   res.Key.IsPrivate(),
				Encrypted: res.Encrypted,
			}
			// DH and XDH keys have no OpenSSH form; DH has no JWK form.
			if fp, err := codec.Fingerprint(res.Key); err == nil {
				info.Fingerprint = fp
			}
			if tp, err := jwk.ThumbprintSHA256(res.Key); err == nil {
				info.Thumbprint = tp
			}
			return cfg.printer(cmd).PrintKeyInfo(info)
		},
	}

	cmd.Flags().StringVar(&passphrase, "passphrase", "", "passphrase for encrypted keys")
	cmd.Flags().StringVar(&passphraseFile, "passphrase-file", "", "file holding the passphrase")
	return cmd
}
