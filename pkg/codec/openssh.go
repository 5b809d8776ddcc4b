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
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/dchest/bcrypt_pbkdf"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/ssh"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/pem"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

const (
	opensshMagic = "openssh-key-v1\x00"

	sshRSA     = "ssh-rsa"
	sshDSS     = "ssh-dss"
	sshEd25519 = "ssh-ed25519"
	sshEd448   = "ssh-ed448"
	sshECDSA   = "ecdsa-sha2-"

	cipherNone = "none"
	kdfNone    = "none"
	kdfBcrypt  = "bcrypt"

	// DefaultOpenSSHCipher encrypts private keys written with a passphrase.
	DefaultOpenSSHCipher = "aes256-ctr"
)

// opensshCipher is a private-section cipher. All are AES-CTR; key and IV
// come from one bcrypt-pbkdf output.
type opensshCipher struct {
	name      string
	keyLen    int
	blockSize int
}

var opensshCiphers = map[string]opensshCipher{
	cipherNone:   {cipherNone, 0, 8},
	"aes128-ctr": {"aes128-ctr", 16, aes.BlockSize},
	"aes192-ctr": {"aes192-ctr", 24, aes.BlockSize},
	"aes256-ctr": {"aes256-ctr", 32, aes.BlockSize},
}

func (c opensshCipher) xor(data, passphrase, salt []byte, rounds int) error {
	if c.name == cipherNone {
		return nil
	}
	kiv, err := bcrypt_pbkdf.Key(passphrase, salt, rounds, c.keyLen+aes.BlockSize)
	if err != nil {
		return fmt.Errorf("%w: bcrypt-pbkdf: %v", encoding.ErrInvalidData, err)
	}
	defer clear(kiv)
	block, err := aes.NewCipher(kiv[:c.keyLen])
	if err != nil {
		return err
	}
	cipher.NewCTR(block, kiv[c.keyLen:]).XORKeyStream(data, data)
	return nil
}

// OpenSSHPrivateKey is a decoded openssh-key-v1 file.
type OpenSSHPrivateKey struct {
	Key     keys.Key
	Comment string
	Cipher  string
	KDF     string
	Salt    []byte
	Rounds  int
}

// ============================================================================
// Public key blobs
// ============================================================================

// SSHKeyType returns the SSH public key algorithm name for k.
func SSHKeyType(k keys.Key) (string, error) {
	switch key := k.(type) {
	case *keys.RSAKey:
		return sshRSA, nil
	case *keys.DSAKey:
		return sshDSS, nil
	case *keys.ECDSAKey:
		if key.Curve().SSHName == "" {
			return "", fmt.Errorf("%w: curve %s has no SSH name", encoding.ErrUnsupportedAlgorithm, key.Curve())
		}
		return sshECDSA + key.Curve().SSHName, nil
	case *keys.EdDSAKey:
		if key.Curve() == keys.Ed448 {
			return sshEd448, nil
		}
		return sshEd25519, nil
	}
	return "", fmt.Errorf("%w: no SSH key type for %s keys", encoding.ErrUnsupportedAlgorithm, k.Algorithm())
}

// MarshalSSHPublicKey returns the SSH wire-format public key blob.
func MarshalSSHPublicKey(k keys.Key) ([]byte, error) {
	typ, err := SSHKeyType(k)
	if err != nil {
		return nil, err
	}
	if typ == sshEd448 {
		var b cryptobyte.Builder
		addString(&b, []byte(sshEd448))
		addString(&b, k.(*keys.EdDSAKey).PublicBytes())
		return b.Bytes()
	}
	pub, err := ssh.NewPublicKey(k.Public().CryptoPublicKey())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", encoding.ErrUnsupportedAlgorithm, err)
	}
	return pub.Marshal(), nil
}

// ParseSSHPublicKey decodes an SSH wire-format public key blob.
func ParseSSHPublicKey(blob []byte) (keys.Key, error) {
	s := cryptobyte.String(blob)
	var typ []byte
	if !readString(&s, &typ) {
		return nil, fmt.Errorf("%w: truncated SSH public key", encoding.ErrInvalidData)
	}
	if string(typ) == sshEd448 {
		var pub []byte
		if !readString(&s, &pub) || !s.Empty() {
			return nil, fmt.Errorf("%w: malformed ssh-ed448 key", encoding.ErrInvalidData)
		}
		return keys.NewEdDSAPublicKey(keys.Ed448, pub)
	}
	pub, err := ssh.ParsePublicKey(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: SSH public key: %v", encoding.ErrInvalidData, err)
	}
	return fromSSHPublicKey(pub)
}

func fromSSHPublicKey(pub ssh.PublicKey) (keys.Key, error) {
	cp, ok := pub.(ssh.CryptoPublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: SSH key type %s", encoding.ErrUnsupportedAlgorithm, pub.Type())
	}
	return keys.FromCrypto(cp.CryptoPublicKey())
}

// sshBlobType returns the leading key type string of a public key blob.
func sshBlobType(blob []byte) (string, bool) {
	if len(blob) < 4 {
		return "", false
	}
	n := binary.BigEndian.Uint32(blob)
	if uint64(n) > uint64(len(blob)-4) {
		return "", false
	}
	return string(blob[4 : 4+n]), true
}

// sshKeyAlgorithm maps an SSH key type name to a key algorithm.
func sshKeyAlgorithm(typ string) (keys.Algorithm, bool) {
	switch {
	case typ == sshRSA:
		return keys.AlgorithmRSA, true
	case typ == sshDSS:
		return keys.AlgorithmDSA, true
	case strings.HasPrefix(typ, sshECDSA):
		return keys.AlgorithmECDSA, true
	case typ == sshEd25519, typ == sshEd448:
		return keys.AlgorithmEdDSA, true
	}
	return "", false
}

// Fingerprint returns the OpenSSH SHA256 fingerprint of k's public key.
func Fingerprint(k keys.Key) (string, error) {
	blob, err := MarshalSSHPublicKey(k.Public())
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(blob)
	return "SHA256:" + strings.TrimRight(encoding.EncodeBase64(sum[:]), "="), nil
}

// MarshalAuthorizedKey returns an authorized_keys line.
func MarshalAuthorizedKey(k keys.Key, comment string) ([]byte, error) {
	typ, err := SSHKeyType(k)
	if err != nil {
		return nil, err
	}
	blob, err := MarshalSSHPublicKey(k.Public())
	if err != nil {
		return nil, err
	}
	line := typ + " " + encoding.EncodeBase64(blob)
	if comment != "" {
		line += " " + comment
	}
	return []byte(line + "\n"), nil
}

// ParseAuthorizedKey decodes the first key of an authorized_keys line,
// with or without leading options.
func ParseAuthorizedKey(line []byte) (keys.Key, string, error) {
	fields := strings.Fields(string(line))
	if len(fields) >= 2 && fields[0] == sshEd448 {
		blob, err := encoding.DecodeBase64(fields[1])
		if err != nil {
			return nil, "", err
		}
		k, err := ParseSSHPublicKey(blob)
		if err != nil {
			return nil, "", err
		}
		return k, strings.Join(fields[2:], " "), nil
	}
	pub, comment, _, _, err := ssh.ParseAuthorizedKey(line)
	if err != nil {
		return nil, "", fmt.Errorf("%w: authorized key: %v", encoding.ErrUnrecognizedKey, err)
	}
	k, err := fromSSHPublicKey(pub)
	if err != nil {
		return nil, "", err
	}
	return k, comment, nil
}

// ============================================================================
// Private keys
// ============================================================================

// MarshalOpenSSHPrivateKey returns the PEM-armored openssh-key-v1 file.
// A non-empty passphrase encrypts with aes256-ctr and bcrypt-pbkdf.
func MarshalOpenSSHPrivateKey(k keys.Key, comment string, passphrase []byte, opts *Options) ([]byte, error) {
	if !k.IsPrivate() {
		return nil, fmt.Errorf("%w: OpenSSH private key requires a private key", encoding.ErrInvalidPrivateKey)
	}
	random := opts.random()
	if random == nil {
		random = rand.Reader
	}
	pubBlob, err := MarshalSSHPublicKey(k)
	if err != nil {
		return nil, err
	}

	c := opensshCiphers[cipherNone]
	kdf := kdfNone
	var salt []byte
	rounds := 0
	if len(passphrase) > 0 {
		c = opensshCiphers[DefaultOpenSSHCipher]
		kdf = kdfBcrypt
		rounds = opts.rounds()
		salt = make([]byte, 16)
		if _, err := io.ReadFull(random, salt); err != nil {
			return nil, fmt.Errorf("openssh: reading salt: %w", err)
		}
	}

	var check [4]byte
	if _, err := io.ReadFull(random, check[:]); err != nil {
		return nil, fmt.Errorf("openssh: reading check bytes: %w", err)
	}

	var priv cryptobyte.Builder
	priv.AddBytes(check[:])
	priv.AddBytes(check[:])
	if err := addPrivateFields(&priv, k); err != nil {
		return nil, err
	}
	addString(&priv, []byte(comment))
	section, err := priv.Bytes()
	if err != nil {
		return nil, err
	}
	for i := 1; len(section)%c.blockSize != 0; i++ {
		section = append(section, byte(i))
	}
	defer clear(section)
	if err := c.xor(section, passphrase, salt, rounds); err != nil {
		return nil, err
	}

	var kdfOpts []byte
	if kdf == kdfBcrypt {
		var b cryptobyte.Builder
		addString(&b, salt)
		b.AddUint32(uint32(rounds))
		if kdfOpts, err = b.Bytes(); err != nil {
			return nil, err
		}
	}

	var env cryptobyte.Builder
	env.AddBytes([]byte(opensshMagic))
	addString(&env, []byte(c.name))
	addString(&env, []byte(kdf))
	addString(&env, kdfOpts)
	env.AddUint32(1)
	addString(&env, pubBlob)
	addString(&env, section)
	body, err := env.Bytes()
	if err != nil {
		return nil, err
	}
	return pem.Encode(&pem.Block{Type: pem.TypeOpenSSHPrivateKey, Bytes: body}, &pem.EncodeOptions{Width: opts.width()})
}

func addString(b *cryptobyte.Builder, v []byte) {
	b.AddUint32LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(v) })
}

// readString reads an SSH string (RFC 4251 section 5): a uint32 length
// followed by that many bytes.
func readString(s *cryptobyte.String, out *[]byte) bool {
	var n uint32
	return s.ReadUint32(&n) && s.ReadBytes(out, int(n))
}

// addMPInt writes an SSH mpint (RFC 4251 section 5) of a non-negative value.
func addMPInt(b *cryptobyte.Builder, n *big.Int) {
	v := n.Bytes()
	if len(v) > 0 && v[0]&0x80 != 0 {
		v = append([]byte{0}, v...)
	}
	addString(b, v)
}

func addPrivateFields(b *cryptobyte.Builder, k keys.Key) error {
	typ, err := SSHKeyType(k)
	if err != nil {
		return err
	}
	addString(b, []byte(typ))
	switch key := k.(type) {
	case *keys.RSAKey:
		addMPInt(b, key.N())
		addMPInt(b, key.E())
		addMPInt(b, key.D())
		addMPInt(b, key.QInv())
		addMPInt(b, key.P())
		addMPInt(b, key.Q())
	case *keys.DSAKey:
		addMPInt(b, key.P())
		addMPInt(b, key.Q())
		addMPInt(b, key.G())
		addMPInt(b, key.Y())
		addMPInt(b, key.X())
	case *keys.ECDSAKey:
		addString(b, []byte(key.Curve().SSHName))
		addString(b, key.Point())
		addMPInt(b, key.D())
	case *keys.EdDSAKey:
		pub := key.PublicBytes()
		addString(b, pub)
		seed := key.Seed()
		defer clear(seed)
		addString(b, append(seed, pub...))
	}
	return nil
}

// ParseOpenSSHPrivateKey decodes an openssh-key-v1 file, PEM-armored or raw.
func ParseOpenSSHPrivateKey(buf, passphrase []byte) (*OpenSSHPrivateKey, error) {
	body, err := unarmor(buf, nil, pem.TypeOpenSSHPrivateKey)
	if err != nil {
		return nil, err
	}
	env, err := parseEnvelope(body)
	if err != nil {
		return nil, err
	}
	out := &OpenSSHPrivateKey{Cipher: env.cipher.name, KDF: env.kdf, Salt: env.salt, Rounds: env.rounds}

	section := bytes.Clone(env.section)
	defer clear(section)
	if env.cipher.name != cipherNone {
		if len(passphrase) == 0 {
			return nil, encoding.ErrPassphraseRequired
		}
		if err := env.cipher.xor(section, passphrase, env.salt, env.rounds); err != nil {
			return nil, err
		}
	}

	s := cryptobyte.String(section)
	var check1, check2 uint32
	if !s.ReadUint32(&check1) || !s.ReadUint32(&check2) {
		return nil, fmt.Errorf("%w: truncated OpenSSH private section", encoding.ErrInvalidData)
	}
	if check1 != check2 {
		if env.cipher.name != cipherNone {
			return nil, encoding.ErrBadPassphrase
		}
		return nil, fmt.Errorf("%w: OpenSSH check bytes differ", encoding.ErrInvalidData)
	}
	k, err := readPrivateFields(&s)
	if err != nil {
		return nil, err
	}
	var comment []byte
	if !readString(&s, &comment) {
		return nil, fmt.Errorf("%w: missing OpenSSH key comment", encoding.ErrInvalidData)
	}
	for i := 1; !s.Empty(); i++ {
		var pad uint8
		if !s.ReadUint8(&pad) || pad != byte(i) {
			return nil, fmt.Errorf("%w: bad OpenSSH padding", encoding.ErrInvalidData)
		}
	}

	pub, err := ParseSSHPublicKey(env.public)
	if err != nil {
		return nil, err
	}
	if !pub.Equal(k.Public()) {
		return nil, fmt.Errorf("%w: OpenSSH public and private keys differ", encoding.ErrBadKey)
	}
	out.Key = k
	out.Comment = string(comment)
	return out, nil
}

type opensshEnvelope struct {
	cipher  opensshCipher
	kdf     string
	salt    []byte
	rounds  int
	public  []byte
	section []byte
}

func parseEnvelope(body []byte) (*opensshEnvelope, error) {
	if !bytes.HasPrefix(body, []byte(opensshMagic)) {
		return nil, fmt.Errorf("%w: missing openssh-key-v1 magic", encoding.ErrUnrecognizedKey)
	}
	s := cryptobyte.String(body[len(opensshMagic):])
	var cipherName, kdf, kdfOpts, pub, section []byte
	var n uint32
	if !readString(&s, &cipherName) ||
		!readString(&s, &kdf) ||
		!readString(&s, &kdfOpts) ||
		!s.ReadUint32(&n) {
		return nil, fmt.Errorf("%w: truncated OpenSSH header", encoding.ErrInvalidData)
	}
	if n != 1 {
		return nil, fmt.Errorf("%w: OpenSSH files with %d keys", encoding.ErrInvalidData, n)
	}
	if !readString(&s, &pub) ||
		!readString(&s, &section) || !s.Empty() {
		return nil, fmt.Errorf("%w: truncated OpenSSH body", encoding.ErrInvalidData)
	}

	c, ok := opensshCiphers[string(cipherName)]
	if !ok {
		return nil, fmt.Errorf("%w: OpenSSH cipher %q", encoding.ErrUnsupportedCipher, cipherName)
	}
	env := &opensshEnvelope{cipher: c, kdf: string(kdf), public: pub, section: section}
	switch env.kdf {
	case kdfNone:
		if c.name != cipherNone {
			return nil, fmt.Errorf("%w: cipher %s without KDF", encoding.ErrInvalidData, c.name)
		}
	case kdfBcrypt:
		o := cryptobyte.String(kdfOpts)
		var rounds uint32
		if !readString(&o, &env.salt) || !o.ReadUint32(&rounds) || !o.Empty() {
			return nil, fmt.Errorf("%w: malformed bcrypt KDF options", encoding.ErrInvalidData)
		}
		env.rounds = int(rounds)
	default:
		return nil, fmt.Errorf("%w: OpenSSH KDF %q", encoding.ErrUnsupportedAlgorithm, kdf)
	}
	if len(section)%c.blockSize != 0 {
		return nil, fmt.Errorf("%w: OpenSSH private section is not block aligned", encoding.ErrInvalidData)
	}
	return env, nil
}

func readPrivateFields(s *cryptobyte.String) (keys.Key, error) {
	var typ []byte
	if !readString(s, &typ) {
		return nil, fmt.Errorf("%w: missing OpenSSH key type", encoding.ErrInvalidData)
	}
	mpints := func(n int) ([]*big.Int, error) {
		out := make([]*big.Int, n)
		for i := range out {
			var v []byte
			if !readString(s, &v) {
				return nil, fmt.Errorf("%w: truncated %s private key", encoding.ErrInvalidData, typ)
			}
			if len(v) > 0 && v[0]&0x80 != 0 {
				return nil, fmt.Errorf("%w: negative mpint in %s private key", encoding.ErrInvalidData, typ)
			}
			out[i] = new(big.Int).SetBytes(v)
		}
		return out, nil
	}
	str := func() ([]byte, error) {
		var v []byte
		if !readString(s, &v) {
			return nil, fmt.Errorf("%w: truncated %s private key", encoding.ErrInvalidData, typ)
		}
		return v, nil
	}

	switch t := string(typ); {
	case t == sshRSA:
		v, err := mpints(6)
		if err != nil {
			return nil, err
		}
		n, e, d, iqmp, p, q := v[0], v[1], v[2], v[3], v[4], v[5]
		k, err := keys.NewRSAPrivateKey(n, e, d, p, q)
		if err != nil {
			return nil, err
		}
		if k.QInv().Cmp(iqmp) != 0 {
			return nil, fmt.Errorf("%w: RSA iqmp is inconsistent", encoding.ErrBadKey)
		}
		return k, nil
	case t == sshDSS:
		v, err := mpints(5)
		if err != nil {
			return nil, err
		}
		return keys.NewDSAPrivateKeyWithY(v[0], v[1], v[2], v[3], v[4])
	case strings.HasPrefix(t, sshECDSA):
		name, err := str()
		if err != nil {
			return nil, err
		}
		if sshECDSA+string(name) != t {
			return nil, fmt.Errorf("%w: key type %s with curve %s", encoding.ErrInvalidData, t, name)
		}
		curve, err := keys.CurveByName(string(name))
		if err != nil {
			return nil, err
		}
		point, err := str()
		if err != nil {
			return nil, err
		}
		d, err := mpints(1)
		if err != nil {
			return nil, err
		}
		return keys.NewECDSAPrivateKeyWithPoint(curve, d[0], point)
	case t == sshEd25519, t == sshEd448:
		curve := keys.Ed25519
		if t == sshEd448 {
			curve = keys.Ed448
		}
		pub, err := str()
		if err != nil {
			return nil, err
		}
		priv, err := str()
		if err != nil {
			return nil, err
		}
		size := curve.KeySize()
		if len(priv) != 2*size || subtle.ConstantTimeCompare(priv[size:], pub) != 1 {
			return nil, fmt.Errorf("%w: malformed %s private key", encoding.ErrBadKey, t)
		}
		return keys.NewEdDSAPrivateKeyWithPublic(curve, priv[:size], pub)
	}
	return nil, fmt.Errorf("%w: OpenSSH key type %q", encoding.ErrUnsupportedAlgorithm, typ)
}

// ============================================================================
// Codecs
// ============================================================================

// opensshBody returns the binary envelope of a private key file, PEM-armored
// or raw, without decrypting anything.
func opensshBody(buf []byte) ([]byte, bool) {
	if bytes.HasPrefix(buf, []byte(opensshMagic)) {
		return buf, true
	}
	if !pem.IsPEM(buf) {
		return nil, false
	}
	block, err := pem.Peek(buf)
	if err != nil || block.Type != pem.TypeOpenSSHPrivateKey {
		return nil, false
	}
	return block.Bytes, true
}

// opensshAlgorithm classifies buf without decrypting it: the public blob of
// a private key file is stored in the clear.
func opensshAlgorithm(buf []byte) (keys.Algorithm, bool) {
	if body, ok := opensshBody(buf); ok {
		env, err := parseEnvelope(body)
		if err != nil {
			return "", false
		}
		typ, ok := sshBlobType(env.public)
		if !ok {
			return "", false
		}
		return sshKeyAlgorithm(typ)
	}
	if pem.IsPEM(buf) {
		return "", false
	}
	fields := strings.Fields(string(buf))
	for i, f := range fields {
		if alg, ok := sshKeyAlgorithm(f); ok && i+1 < len(fields) {
			// options may precede the key type in authorized_keys
			return alg, true
		}
	}
	return "", false
}

func opensshCodec(alg keys.Algorithm) *codec {
	return &codec{
		format: FormatOpenSSH,
		alg:    alg,
		check: func(buf []byte) bool {
			a, ok := opensshAlgorithm(buf)
			return ok && a == alg
		},
		encode: func(k keys.Key, opts *Options) ([]byte, error) {
			if !k.IsPrivate() || opts.public() {
				return MarshalAuthorizedKey(k, opts.comment())
			}
			return MarshalOpenSSHPrivateKey(k, opts.comment(), opts.passphrase(), opts)
		},
		decode: func(buf []byte, opts *Options) (keys.Key, error) {
			if _, ok := opensshBody(buf); ok {
				priv, err := ParseOpenSSHPrivateKey(buf, opts.passphrase())
				if err != nil {
					return nil, err
				}
				return priv.Key, nil
			}
			k, _, err := ParseAuthorizedKey(buf)
			return k, err
		},
	}
}

func init() {
	register(
		opensshCodec(keys.AlgorithmRSA),
		opensshCodec(keys.AlgorithmDSA),
		opensshCodec(keys.AlgorithmECDSA),
		opensshCodec(keys.AlgorithmEdDSA),
	)
}
