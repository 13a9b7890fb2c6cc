// Package crypto implements the AES-256-CBC envelope and key-CRC derivation
// used by encrypted boxes (SPEC_FULL.md §4.D). The IV-first ciphertext
// layout is grounded on the reference CBC encrypter in
// other_examples/ae553301_edrlab-lcp-server__pkg-crypto-aes_cbc.go.go.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"

	prngchacha "github.com/sixafter/prng-chacha"

	"github.com/jassi-singh/hivebox/internal/hiveerr"
	"github.com/jassi-singh/hivebox/internal/xcrc"
)

const keySize = 32

// Cipher wraps a 32-byte AES-256 key, deriving a stable CRC fingerprint of
// the key so the storage backend can chain it into every frame's checksum
// (a frame written under one key fails CRC validation under another).
type Cipher struct {
	key    []byte
	keyCRC uint32
	rng    io.Reader
}

// New returns a Cipher for key, sourcing IV randomness from
// github.com/sixafter/prng-chacha — the same injectable-CSPRNG pattern
// sixafter/nanoid uses for its own ID generation (see DESIGN.md).
func New(key []byte) (*Cipher, error) {
	rng, err := prngchacha.NewReader()
	if err != nil {
		return nil, fmt.Errorf("crypto: create prng: %w", err)
	}
	return NewWithRand(key, rng)
}

// NewWithRand returns a Cipher for key sourcing IV randomness from rng
// instead of the default CSPRNG, for deterministic tests.
func NewWithRand(key []byte, rng io.Reader) (*Cipher, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("crypto: key must be %d bytes, got %d", keySize, len(key))
	}
	return &Cipher{
		key:    append([]byte(nil), key...),
		keyCRC: xcrc.Checksum(0, key),
		rng:    rng,
	}, nil
}

// KeyCRC returns the CRC32 of the wrapped key, used as the frame CRC seed.
func (c *Cipher) KeyCRC() uint32 { return c.keyCRC }

// Encrypt PKCS#7-pads plaintext and returns IV || ciphertext.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(c.rng, iv); err != nil {
		return nil, fmt.Errorf("crypto: generate iv: %w", err)
	}

	out := make([]byte, len(iv)+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[len(iv):], padded)
	return out, nil
}

// Decrypt reverses Encrypt. It fails with ErrCorruptFrame on truncated
// ciphertext or invalid PKCS#7 padding — the latter is the expected symptom
// of decrypting with the wrong key.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) <= aes.BlockSize || (len(ciphertext)-aes.BlockSize)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("crypto: malformed ciphertext (%d bytes): %w", len(ciphertext), hiveerr.ErrCorruptFrame)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}

	iv := ciphertext[:aes.BlockSize]
	body := append([]byte(nil), ciphertext[aes.BlockSize:]...)

	cipher.NewCBCDecrypter(block, iv).CryptBlocks(body, body)
	return pkcs7Unpad(body)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("crypto: empty plaintext: %w", hiveerr.ErrCorruptFrame)
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) || padLen > aes.BlockSize {
		return nil, fmt.Errorf("crypto: bad padding: %w", hiveerr.ErrCorruptFrame)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("crypto: bad padding: %w", hiveerr.ErrCorruptFrame)
		}
	}
	return data[:len(data)-padLen], nil
}
