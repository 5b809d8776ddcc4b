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

	"github.com/jeremyhahn/go-keycodec/pkg/encoding/jwa"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/pem"
	"github.com/jeremyhahn/go-keycodec/pkg/signing"
	"github.com/jeremyhahn/go-keycodec/pkg/x509util"
	"github.com/spf13/cobra"
)

func newCertCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cert",
		Short: "Issue and verify X.509 certificates",
	}
	cmd.AddCommand(newCertSelfSignCmd(cfg), newCertVerifyCmd(cfg), newCertShowCmd(cfg))
	return cmd
}

func newCertSelfSignCmd(cfg *Config) *cobra.Command {
	var (
		f        joseFlags
		subject  string
		days     int
		dnsNames []string
	)
	cmd := &cobra.Command{
		Use:   "self-sign",
		Short: "Issue a self-signed CA certificate for a key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.key == "" {
				return fmt.Errorf("--key is required")
			}
			pass, err := readSecret(f.passphrase, f.passphraseFile)
			if err != nil {
				return err
			}
			res, err := cfg.parseKey(cmd, f.key, pass)
			if err != nil {
				return err
			}

			var alg *signing.Algorithm
			name := f.alg
			if name == "" {
				name = cfg.settings.Signing.Algorithm
			}
			if name != "" {
				if alg, err = jwa.SignatureByName(name); err != nil {
					return err
				}
			}

			template, err := selfSignedTemplate(res.Key.Algorithm().Lower(), subject, days, dnsNames)
			if err != nil {
				return err
			}
			der, err := x509util.CreateCertificate(rand.Reader, template, nil, res.Key.Public(), res.Key, alg)
			if err != nil {
				return err
			}
			out, err := pem.Encode(&pem.Block{Type: pem.TypeCertificate, Bytes: der}, &pem.EncodeOptions{Width: cfg.settings.PEM.Width})
			if err != nil {
				return err
			}
			cfg.logger.Debug("certificate issued", "subject", template.Subject.String())
			return writeOutput(cmd, f.out, out)
		},
	}
	cmd.Flags().StringVar(&f.key, "key", "", "private key file")
	cmd.Flags().StringVar(&f.passphrase, "passphrase", "", "passphrase of the key file")
	cmd.Flags().StringVar(&f.passphraseFile, "passphrase-file", "", "file holding the key passphrase")
	cmd.Flags().StringVar(&f.alg, "alg", "", "signature algorithm as a JWS name (e.g. PS256)")
	cmd.Flags().StringVar(&f.out, "out", "", "output file (default stdout)")
	cmd.Flags().StringVar(&subject, "subject", "", "subject, e.g. \"CN=example,O=Org\"")
	cmd.Flags().IntVar(&days, "days", 365, "validity in days")
	cmd.Flags().StringSliceVar(&dnsNames, "dns", nil, "subject alternative DNS names")
	return cmd
}

func selfSignedTemplate(fallbackCN, subject string, days int, dnsNames []string) (*x509util.Certificate, error) {
	if days <= 0 {
		return nil, fmt.Errorf("invalid validity: %d days", days)
	}
	name := x509util.CommonName(fallbackCN)
	if subject != "" {
		var err error
		if name, err = x509util.ParseName(subject); err != nil {
			return nil, err
		}
	}
	now := time.Now().Truncate(time.Second)
	return &x509util.Certificate{
		Subject:          name,
		NotBefore:        now.Add(-time.Minute),
		NotAfter:         now.Add(time.Duration(days) * 24 * time.Hour),
		KeyUsage:         x509util.KeyUsageDigitalSignature | x509util.KeyUsageCertSign | x509util.KeyUsageCRLSign,
		BasicConstraints: &x509util.BasicConstraints{CA: true, PathLen: -1},
		DNSNames:         dnsNames,
	}, nil
}

func newCertVerifyCmd(cfg *Config) *cobra.Command {
	var issuer string
	cmd := &cobra.Command{
		Use:   "verify <cert-file|->",
		Short: "Verify a certificate signature and validity period",
		Long: `Verify checks the certificate against --issuer, or against its own key
when no issuer is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cert, err := readCertificate(cmd, args[0])
			if err != nil {
				return err
			}
			var parent *x509util.Certificate
			if issuer != "" {
				if parent, err = readCertificate(cmd, issuer); err != nil {
					return err
				}
			}
			if err := cert.Verify(parent, time.Now()); err != nil {
				return fmt.Errorf("certificate verification failed: %w", err)
			}
			return cfg.printer(cmd).PrintSuccess(fmt.Sprintf("%s: OK", cert.Subject))
		},
	}
	cmd.Flags().StringVar(&issuer, "issuer", "", "issuer certificate file")
	return cmd
}

func newCertShowCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show <cert-file|->",
		Short: "Print certificate details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cert, err := readCertificate(cmd, args[0])
			if err != nil {
				return err
			}
			return cfg.printer(cmd).PrintCertificate(cert)
		},
	}
}

// readCertificate accepts a PEM or DER certificate.
func readCertificate(cmd *cobra.Command, path string) (*x509util.Certificate, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	if pem.IsPEM(data) {
		block, err := pem.Decode(data, nil)
		if err != nil {
			return nil, err
		}
		if block.Type != pem.TypeCertificate {
			return nil, fmt.Errorf("%s: expected a %s block, got %s", path, pem.TypeCertificate, block.Type)
		}
		data = block.Bytes
	}
	cert, err := x509util.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate %s: %w", path, err)
	}
	return cert, nil
}
