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
	"fmt"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding/jwa"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/jwe"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
	"github.com/spf13/cobra"
)

func newJWECmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jwe",
		Short: "Encrypt and decrypt JSON Web Encryption objects",
	}
	cmd.AddCommand(newJWEEncryptCmd(cfg), newJWEDecryptCmd(cfg))
	return cmd
}

// defaultKeyManagement picks the "alg" for a recipient key.
func defaultKeyManagement(k keys.Key) (*jwa.KeyManagement, error) {
	switch k.Algorithm() {
	case keys.AlgorithmRSA:
		return jwa.RSAOAEP256, nil
	case keys.AlgorithmECDSA, keys.AlgorithmXDH:
		return jwa.ECDHESA256KW, nil
	}
	return nil, fmt.Errorf("no JWE key management algorithm for %s keys", k.Algorithm())
}

func newJWEEncryptCmd(cfg *Config) *cobra.Command {
	f := &joseFlags{}
	var enc string

	cmd := &cobra.Command{
		Use:   "encrypt <plaintext-file|->",
		Short: "Encrypt to a public key, shared key or password",
		Long: `Encrypt writes the compact serialization unless --json is given.
Without --alg, RSA keys use RSA-OAEP-256, EC and X25519/X448 keys use
ECDH-ES+A256KW and secrets use PBES2-HS512+A256KW.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plaintext, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			recipient, err := cfg.jweRecipient(cmd, f)
			if err != nil {
				return err
			}
			if f.kid != "" {
				recipient.Header = jwa.Header{"kid": f.kid}
			}
			if enc == "" {
				enc = cfg.settings.JWE.Encryption
			}

			obj, err := jwe.NewEncrypter(enc, recipient).Encrypt(plaintext)
			if err != nil {
				return err
			}

			var out []byte
			if f.json {
				out, err = obj.GeneralJSON()
			} else {
				var s string
				s, err = obj.CompactSerialize()
				out = []byte(s)
			}
			if err != nil {
				return err
			}
			cfg.logger.Debug("payload encrypted", "alg", recipient.Algorithm, "enc", obj.Protected.Encryption())
			return writeOutput(cmd, f.out, append(out, '\n'))
		},
	}
	f.register(cmd, "shared key or PBES2 password")
	cmd.Flags().StringVar(&f.alg, "alg", "", "JWE key management algorithm")
	cmd.Flags().StringVar(&enc, "enc", "", "JWE content encryption algorithm")
	cmd.Flags().StringVar(&f.kid, "kid", "", "recipient key ID")
	cmd.Flags().BoolVar(&f.json, "json", false, "write the general JSON serialization")
	return cmd
}

func (c *Config) jweRecipient(cmd *cobra.Command, f *joseFlags) (*jwe.Recipient, error) {
	if err := validateKeyID(f.kid); err != nil {
		return nil, err
	}
	r := &jwe.Recipient{Algorithm: f.alg, PBES2Count: c.settings.JWE.PBES2Count}

	secret, err := readSecret(f.secret, f.secretFile)
	if err != nil {
		return nil, err
	}
	if secret != nil {
		if r.Algorithm == "" {
			r.Algorithm = jwa.PBES2HS512A256KW.Name
		}
		r.Secret = secret
		return r, nil
	}

	if f.key == "" {
		return nil, fmt.Errorf("either --key or --secret is required")
	}
	pass, err := readSecret(f.passphrase, f.passphraseFile)
	if err != nil {
		return nil, err
	}
	res, err := c.parseKey(cmd, f.key, pass)
	if err != nil {
		return nil, err
	}
	r.Key = res.Key.Public()
	if r.Algorithm == "" {
		km, err := defaultKeyManagement(r.Key)
		if err != nil {
			return nil, err
		}
		r.Algorithm = km.Name
	}
	return r, nil
}

func newJWEDecryptCmd(cfg *Config) *cobra.Command {
	f := &joseFlags{}
	cmd := &cobra.Command{
		Use:   "decrypt <jwe-file|->",
		Short: "Decrypt a JWE with a private key, shared key or password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			obj, err := jwe.Parse(data)
			if err != nil {
				return err
			}

			d := jwe.NewDecrypter()
			d.KeyID = f.kid

			secret, err := readSecret(f.secret, f.secretFile)
			if err != nil {
				return err
			}
			var plaintext []byte
			switch {
			case secret != nil:
				plaintext, err = d.DecryptWithSecret(obj, secret)
			case f.key != "":
				pass, perr := readSecret(f.passphrase, f.passphraseFile)
				if perr != nil {
					return perr
				}
				res, perr := cfg.parseKey(cmd, f.key, pass)
				if perr != nil {
					return perr
				}
				plaintext, err = d.Decrypt(obj, res.Key)
			default:
				return fmt.Errorf("either --key or --secret is required")
			}
			if err != nil {
				return fmt.Errorf("decryption failed: %w", err)
			}
			return writeOutput(cmd, f.out, plaintext)
		},
	}
	f.register(cmd, "shared key or PBES2 password")
	cmd.Flags().StringVar(&f.kid, "kid", "", "only try recipients with this key ID")
	return cmd
}
