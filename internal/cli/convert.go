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
	"crypto/rand"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-keycodec/pkg/codec"
	"github.com/spf13/cobra"
)

type convertFlags struct {
	to             string
	out            string
	public         bool
	pem            bool
	passphrase     string
	passphraseFile string
	outPassphrase  string
	outPassFile    string
	cipher         string
	comment        string
	subject        string
	days           int
	request        bool
}

func newConvertCmd(cfg *Config) *cobra.Command {
	f := &convertFlags{}

	cmd := &cobra.Command{
		Use:   "convert <key-file|->",
		Short: "Re-encode a key in another format",
		Long: `Convert reads a key in any supported format and writes it in the format
named by --to: pkcs1, pkcs8, spki, x509, openssh, ssh2, jwk or dnskey.

With --out-passphrase, PKCS#8 output is an ENCRYPTED PRIVATE KEY, PKCS#1
output is RFC 1423 encrypted PEM and OpenSSH output uses bcrypt-pbkdf.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cfg.convert(cmd, args[0], f)
		},
	}

	cmd.Flags().StringVar(&f.to, "to", "", "output format (required)")
	cmd.Flags().StringVar(&f.out, "out", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&f.public, "public", false, "write the public key only")
	cmd.Flags().BoolVar(&f.pem, "pem", false, "PEM-armor binary output")
	cmd.Flags().StringVar(&f.passphrase, "passphrase", "", "passphrase of the input key")
	cmd.Flags().StringVar(&f.passphraseFile, "passphrase-file", "", "file holding the input passphrase")
	cmd.Flags().StringVar(&f.outPassphrase, "out-passphrase", "", "passphrase to encrypt the output")
	cmd.Flags().StringVar(&f.outPassFile, "out-passphrase-file", "", "file holding the output passphrase")
	cmd.Flags().StringVar(&f.cipher, "cipher", "", "RFC 1423 PEM cipher for encrypted output")
	cmd.Flags().StringVar(&f.comment, "comment", "", "comment for OpenSSH and SSH2 output")
	cmd.Flags().StringVar(&f.subject, "subject", "", "certificate subject, e.g. \"CN=example,O=Org\"")
	cmd.Flags().IntVar(&f.days, "days", 365, "certificate validity in days")
	cmd.Flags().BoolVar(&f.request, "request", false, "write a PKCS#10 request instead of a certificate")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func (c *Config) convert(cmd *cobra.Command, input string, f *convertFlags) error {
	format, err := codec.ParseFormat(f.to)
	if err != nil {
		return err
	}
	inPass, err := readSecret(f.passphrase, f.passphraseFile)
	if err != nil {
		return err
	}
	outPass, err := readSecret(f.outPassphrase, f.outPassFile)
	if err != nil {
		return err
	}

	res, err := c.parseKey(cmd, input, inPass)
	if err != nil {
		return err
	}

	opts := &codec.Options{
		Passphrase: outPass,
		PEM:        f.pem,
		Cipher:     f.cipher,
		Width:      c.settings.PEM.Width,
		Comment:    f.comment,
		Public:     f.public,
		Rand:       rand.Reader,
		Subject:    f.subject,
		Validity:   time.Duration(f.days) * 24 * time.Hour,
		Request:    f.request,
	}
	// PKCS#8 takes Cipher as a request for legacy PEM encryption, so the
	// configured default only applies to PKCS#1.
	if opts.Cipher == "" && len(outPass) > 0 && format == codec.FormatPKCS1 {
		opts.Cipher = c.settings.PEM.Cipher
	}

	out, err := codec.Encode(format, res.Key, opts)
	if err != nil {
		return fmt.Errorf("failed to encode %s as %s: %w", res.Algorithm, format, err)
	}
	c.logger.Debug("key converted", "from", res.Format, "to", format, "algorithm", res.Algorithm)

	if len(out) > 0 && out[len(out)-1] != '\n' && isText(out) {
		out = append(out, '\n')
	}
	return writeOutput(cmd, f.out, out)
}

func isText(b []byte) bool {
	for _, c := range b {
		if c < 0x09 || c > 0x7e || (c > 0x0d && c < 0x20) {
			return false
		}
	}
	return true
}
