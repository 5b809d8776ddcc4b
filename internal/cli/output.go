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
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jeremyhahn/go-keycodec/pkg/x509util"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(strings.ToLower(format)),
		writer: writer,
	}
}

// KeyInfo describes a parsed key
type KeyInfo struct {
	Format      string `json:"format"`
	Algorithm   string `json:"algorithm"`
	Bits        int    `json:"bits"`
	Private     bool   `json:"private"`
	Encrypted   bool   `json:"encrypted"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Thumbprint  string `json:"jwk_thumbprint,omitempty"`
}

// PrintKeyInfo prints detailed key information
func (p *Printer) PrintKeyInfo(info *KeyInfo) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(info)
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Format:      %s\n", info.Format)
		fmt.Fprintf(p.writer, "Algorithm:   %s\n", info.Algorithm)
		fmt.Fprintf(p.writer, "Bits:        %d\n", info.Bits)
		fmt.Fprintf(p.writer, "Private:     %t\n", info.Private)
		fmt.Fprintf(p.writer, "Encrypted:   %t\n", info.Encrypted)
		if info.Fingerprint != "" {
			fmt.Fprintf(p.writer, "Fingerprint: %s\n", info.Fingerprint)
		}
		if info.Thumbprint != "" {
			fmt.Fprintf(p.writer, "Thumbprint:  %s\n", info.Thumbprint)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintCertificate prints certificate details
func (p *Printer) PrintCertificate(cert *x509util.Certificate) error {
	alg := "unknown"
	if cert.SignatureAlgorithm != nil {
		alg = cert.SignatureAlgorithm.String()
	}
	keyAlg := ""
	if cert.PublicKey != nil {
		keyAlg = cert.PublicKey.Algorithm().String()
	}

	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"subject":             cert.Subject.String(),
			"issuer":              cert.Issuer.String(),
			"serial":              cert.SerialNumber.String(),
			"not_before":          cert.NotBefore.UTC().Format(time.RFC3339),
			"not_after":           cert.NotAfter.UTC().Format(time.RFC3339),
			"signature_algorithm": alg,
			"public_key":          keyAlg,
			"is_ca":               cert.IsCA(),
			"dns_names":           cert.DNSNames,
		})
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Subject:             %s\n", cert.Subject)
		fmt.Fprintf(p.writer, "Issuer:              %s\n", cert.Issuer)
		fmt.Fprintf(p.writer, "Serial:              %s\n", cert.SerialNumber)
		fmt.Fprintf(p.writer, "Not Before:          %s\n", cert.NotBefore.UTC().Format(time.RFC3339))
		fmt.Fprintf(p.writer, "Not After:           %s\n", cert.NotAfter.UTC().Format(time.RFC3339))
		fmt.Fprintf(p.writer, "Signature Algorithm: %s\n", alg)
		fmt.Fprintf(p.writer, "Public Key:          %s\n", keyAlg)
		fmt.Fprintf(p.writer, "CA:                  %t\n", cert.IsCA())
		if len(cert.DNSNames) > 0 {
			fmt.Fprintf(p.writer, "DNS Names:           %s\n", strings.Join(cert.DNSNames, ", "))
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status":  "success",
			"message": message,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, message)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
	default:
		fmt.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	}
}

func (p *Printer) printJSON(data interface{}) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
