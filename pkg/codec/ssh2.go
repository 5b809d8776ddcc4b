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

package codec

import (
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/pem"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// SSH2 public keys are the SSH wire blob in RFC 4716 armor. There is no
// private form.

// MarshalSSH2PublicKey returns the RFC 4716 encoding of k's public key.
func MarshalSSH2PublicKey(k keys.Key, comment string, width int) ([]byte, error) {
	blob, err := MarshalSSHPublicKey(k.Public())
	if err != nil {
		return nil, err
	}
	block := &pem.Block{Type: pem.TypeSSH2PublicKey, Armor: pem.ArmorRFC4716, Bytes: blob}
	if comment != "" {
		block.Headers = []pem.Header{{Key: "Comment", Value: comment}}
	}
	return pem.Encode(block, &pem.EncodeOptions{Width: width})
}

// ParseSSH2PublicKey decodes an RFC 4716 public key and its comment.
func ParseSSH2PublicKey(buf []byte) (keys.Key, string, error) {
	block, err := pem.Peek(buf)
	if err != nil {
		return nil, "", err
	}
	if block.Armor != pem.ArmorRFC4716 || block.Type != pem.TypeSSH2PublicKey {
		return nil, "", fmt.Errorf("%w: not an SSH2 public key", encoding.ErrUnrecognizedKey)
	}
	k, err := ParseSSHPublicKey(block.Bytes)
	if err != nil {
		return nil, "", err
	}
	comment, _ := block.Header("Comment")
	return k, comment, nil
}

func ssh2Algorithm(buf []byte) (keys.Algorithm, bool) {
	if !strings.Contains(string(buf), "---- BEGIN "+pem.TypeSSH2PublicKey+" ----") {
		return "", false
	}
	block, err := pem.Peek(buf)
	if err != nil || block.Armor != pem.ArmorRFC4716 {
		return "", false
	}
	typ, ok := sshBlobType(block.Bytes)
	if !ok {
		return "", false
	}
	return sshKeyAlgorithm(typ)
}

func ssh2Codec(alg keys.Algorithm) *codec {
	return &codec{
		format: FormatSSH2,
		alg:    alg,
		check: func(buf []byte) bool {
			a, ok := ssh2Algorithm(buf)
			return ok && a == alg
		},
		encode: func(k keys.Key, opts *Options) ([]byte, error) {
			return MarshalSSH2PublicKey(k, opts.comment(), opts.width())
		},
		decode: func(buf []byte, _ *Options) (keys.Key, error) {
			k, _, err := ParseSSH2PublicKey(buf)
			return k, err
		},
	}
}

func init() {
	register(
		ssh2Codec(keys.AlgorithmRSA),
		ssh2Codec(keys.AlgorithmDSA),
		ssh2Codec(keys.AlgorithmECDSA),
		ssh2Codec(keys.AlgorithmEdDSA),
	)
}
