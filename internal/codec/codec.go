// Package codec provides the symmetric cipher used to obscure submission
// identifiers embedded in redirect URLs. Blobs are base64(iv || ciphertext)
// with AES-256-CBC and a fresh random IV per call; the key is derived from
// the configured passphrase with PBKDF2.
package codec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keyLength  = 32
	iterations = 4096
)

// keySalt is an application-scoped PBKDF2 salt. It is not secret; its job is
// to bind derived keys to this application so a passphrase reused elsewhere
// yields a different key.
var keySalt = []byte("liveness-broker/v1")

// ErrDecode is returned when a blob cannot be decoded. Callers must treat it
// as distinct from a decoded payload; the original blob is never handed back
// as plaintext.
var ErrDecode = errors.New("cannot decode blob")

// Codec encrypts and decrypts identifier blobs
type Codec struct {
	key []byte
}

// New derives a cipher key from the passphrase and returns a ready codec
func New(passphrase string) (*Codec, error) {
	if passphrase == "" {
		return nil, errors.New("encryption passphrase is required")
	}

	key := pbkdf2.Key([]byte(passphrase), keySalt, iterations, keyLength, sha256.New)
	return &Codec{key: key}, nil
}

// Encrypt encrypts plaintext into a base64 blob with the IV prepended
func (c *Codec) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	padded := pad([]byte(plaintext), aes.BlockSize)

	buf := make([]byte, aes.BlockSize+len(padded))
	iv := buf[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	cipher.NewCBCEncrypter(block, iv).CryptBlocks(buf[aes.BlockSize:], padded)

	return base64.StdEncoding.EncodeToString(buf), nil
}

// Decrypt decodes a blob produced by Encrypt. On any malformed input it
// returns an error wrapping ErrDecode and an empty string.
func (c *Codec) Decrypt(blob string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64", ErrDecode)
	}

	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: blob length %d is not a valid cipher payload", ErrDecode, len(raw))
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	iv := raw[:aes.BlockSize]
	ciphertext := raw[aes.BlockSize:]

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return string(unpadded), nil
}

// pad applies PKCS#7 padding
func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad strips and validates PKCS#7 padding
func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}

	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.New("invalid padding byte")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("inconsistent padding")
		}
	}

	return data[:len(data)-n], nil
}
