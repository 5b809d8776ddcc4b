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
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/jws"
	"github.com/jeremyhahn/go-keycodec/pkg/signing"
	"github.com/spf13/cobra"
)

type joseFlags struct {
	key            string
	passphrase     string
	passphraseFile string
	secret         string
	secretFile     string
	alg            string
	kid            string
	out            string
	json           bool
}

func (f *joseFlags) register(cmd *cobra.Command, secretUsage string) {
	cmd.Flags().StringVar(&f.key, "key", "", "key file in any supported format")
	cmd.Flags().StringVar(&f.passphrase, "passphrase", "", "passphrase of the key file")
	cmd.Flags().StringVar(&f.passphraseFile, "passphrase-file", "", "file holding the key passphrase")
	cmd.Flags().StringVar(&f.secret, "secret", "", secretUsage)
	cmd.Flags().StringVar(&f.secretFile, "secret-file", "", "file holding the secret")
	cmd.Flags().StringVar(&f.out, "out", "", "output file (default stdout)")
}

func newJWSCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jws",
		Short: "Sign and verify JSON Web Signatures",
	}
	cmd.AddCommand(newJWSSignCmd(cfg), newJWSVerifyCmd(cfg))
	return cmd
}

func newJWSSignCmd(cfg *Config) *cobra.Command {
	f := &joseFlags{}
	cmd := &cobra.Command{
		Use:   "sign <payload-file|->",
		Short: "Sign a payload",
		Long: `Sign writes the compact serialization unless --json is given.
The algorithm defaults to the configured signing algorithm, then to the
key's default.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			signer, err := cfg.jwsSigner(cmd, f)
			if err != nil {
				return err
			}
			obj, err := jws.Sign(payload, signer)
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
			cfg.logger.Debug("payload signed", "alg", obj.Signatures[0].Algorithm())
			return writeOutput(cmd, f.out, append(out, '\n'))
		},
	}
	f.register(cmd, "HMAC secret for HS256, HS384 and HS512")
	cmd.Flags().StringVar(&f.alg, "alg", "", "JWS algorithm")
	cmd.Flags().StringVar(&f.kid, "kid", "", "key ID for the protected header")
	cmd.Flags().BoolVar(&f.json, "json", false, "write the general JSON serialization")
	return cmd
}

func (c *Config) jwsSigner(cmd *cobra.Command, f *joseFlags) (*jws.Signer, error) {
	if err := validateKeyID(f.kid); err != nil {
		return nil, err
	}
	signer := &jws.Signer{Algorithm: f.alg}
	if signer.Algorithm == "" {
		signer.Algorithm = c.settings.Signing.Algorithm
	}
	if f.kid != "" {
		signer.Protected = jwa.Header{"kid": f.kid}
	}

	secret, err := readSecret(f.secret, f.secretFile)
	if err != nil {
		return nil, err
	}
	if secret != nil {
		if signer.Algorithm == "" {
			signer.Algorithm = signing.HS256.JWA
		}
		signer.Secret = secret
		return signer, nil
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
	signer.Key = res.Key
	return signer, nil
}

func newJWSVerifyCmd(cfg *Config) *cobra.Command {
	f := &joseFlags{}
	cmd := &cobra.Command{
		Use:   "verify <jws-file|->",
		Short: "Verify a JWS and print its payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			obj, err := jws.Parse(data)
			if err != nil {
				return err
			}

			secret, err := readSecret(f.secret, f.secretFile)
			if err != nil {
				return err
			}
			var sig *jws.Signature
			switch {
			case secret != nil:
				sig, err = obj.VerifyHMAC(secret)
			case f.key != "":
				pass, perr := readSecret(f.passphrase, f.passphraseFile)
				if perr != nil {
					return perr
				}
				res, perr := cfg.parseKey(cmd, f.key, pass)
				if perr != nil {
					return perr
				}
				sig, err = obj.Verify(res.Key.Public())
			default:
				return fmt.Errorf("either --key or --secret is required")
			}
			if err != nil {
				return fmt.Errorf("signature verification failed: %w", err)
			}
			cfg.logger.Info("signature verified", "alg", sanitizeForLog(sig.Algorithm()), "kid", sanitizeForLog(sig.KeyID()))
			return writeOutput(cmd, f.out, obj.Payload)
		},
	}
	f.register(cmd, "HMAC secret")
	return cmd
}
