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

package pem

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/md5"
	"fmt"
	"sort"
	"strings"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
)

// Cipher describes an RFC 1423 block cipher usable in DEK-Info.
type Cipher struct {
	Name      string
	KeySize   int
	BlockSize int
	newBlock  func(key []byte) (cipher.Block, error)
}

// RFC 1423 ciphers understood by OpenSSL's legacy PEM encryption.
var (
	DESCBC     = Cipher{Name: "DES-CBC", KeySize: 8, BlockSize: des.BlockSize, newBlock: des.NewCipher}
	DESEDE3CBC = Cipher{Name: "DES-EDE3-CBC", KeySize: 24, BlockSize: des.BlockSize, newBlock: des.NewTripleDESCipher}
	AES128CBC  = Cipher{Name: "AES-128-CBC", KeySize: 16, BlockSize: aes.BlockSize, newBlock: aes.NewCipher}
	AES192CBC  = Cipher{Name: "AES-192-CBC", KeySize: 24, BlockSize: aes.BlockSize, newBlock: aes.NewCipher}
	AES256CBC  = Cipher{Name: "AES-256-CBC", KeySize: 32, BlockSize: aes.BlockSize, newBlock: aes.NewCipher}
)

var ciphers = map[string]Cipher{
	DESCBC.Name:     DESCBC,
	DESEDE3CBC.Name: DESEDE3CBC,
	AES128CBC.Name:  AES128CBC,
	AES192CBC.Name:  AES192CBC,
	AES256CBC.Name:  AES256CBC,
}

// CipherByName returns the cipher registered under name (case-insensitive).
func CipherByName(name string) (Cipher, error) {
	c, ok := ciphers[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Cipher{}, fmt.Errorf("%w: %q", encoding.ErrUnsupportedCipher, name)
	}
	return c, nil
}

// Ciphers lists the supported cipher names in sorted order.
func Ciphers() []string {
	names := make([]string, 0, len(ciphers))
	for name := range ciphers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DeriveKey implements OpenSSL's EVP_BytesToKey with MD5 and a single
// iteration: D_i = MD5(D_{i-1} || passphrase || salt), concatenated until
// keyLen bytes are available.
func DeriveKey(passphrase, salt []byte, keyLen int) []byte {
	out := make([]byte, 0, keyLen+md5.Size)
	var prev []byte
	h := md5.New()
	for len(out) < keyLen {
		h.Reset()
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		out = append(out, prev...)
	}
	clear(prev)
	key := append([]byte(nil), out[:keyLen]...)
	clear(out)
	return key
}

func (c Cipher) encrypt(plaintext, passphrase, iv []byte) ([]byte, error) {
	key := DeriveKey(passphrase, iv[:8], c.KeySize)
	defer clear(key)
	block, err := c.newBlock(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", encoding.ErrUnsupportedCipher, err)
	}
	pad := c.BlockSize - len(plaintext)%c.BlockSize
	buf := make([]byte, len(plaintext)+pad)
	copy(buf, plaintext)
	for i := len(plaintext); i < len(buf); i++ {
		buf[i] = byte(pad)
	}
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(buf, buf)
	return buf, nil
}

func (c Cipher) decrypt(ciphertext, passphrase, iv []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%c.BlockSize != 0 {
		return nil, fmt.Errorf("%w: encrypted body is not a multiple of the block size", encoding.ErrBadPEM)
	}
	key := DeriveKey(passphrase, iv[:8], c.KeySize)
	defer clear(key)
	block, err := c.newBlock(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", encoding.ErrUnsupportedCipher, err)
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)

	pad := int(out[len(out)-1])
	if pad == 0 || pad > c.BlockSize {
		clear(out)
		return nil, encoding.ErrBadPassphrase
	}
	for _, b := range out[len(out)-pad:] {
		if int(b) != pad {
			clear(out)
			return nil, encoding.ErrBadPassphrase
		}
	}
	return out[:len(out)-pad], nil
}
