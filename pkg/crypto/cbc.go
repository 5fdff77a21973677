package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
)

// AES256KeySize is the key length of AES-256
const AES256KeySize = 32

var (
	ErrInvalidIV         = errors.New("invalid iv")
	ErrCiphertextLength  = errors.New("ciphertext is not a multiple of the block size")
	ErrPassphraseTooWeak = errors.New("passphrase shorter than an AES-256 key")
)

// passphraseKey turns a text passphrase into an AES-256 key the way OpenSSL's
// openssl_encrypt does: the first 32 bytes are used as is.
func passphraseKey(passphrase string) ([]byte, error) {
	if len(passphrase) < AES256KeySize {
		return nil, ErrPassphraseTooWeak
	}
	return []byte(passphrase[:AES256KeySize]), nil
}

// AESCBCEncrypt encrypts plaintext with AES-256-CBC and PKCS#7 padding and
// returns the ciphertext as base64 text.
func AESCBCEncrypt(plaintext []byte, passphrase string, iv []byte) (string, error) {
	key, err := passphraseKey(passphrase)
	if err != nil {
		return "", err
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: got %d bytes", ErrInvalidIV, len(iv))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	padded := PKCS7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// AESCBCDecrypt reverses AESCBCEncrypt
func AESCBCDecrypt(data string, passphrase string, iv []byte) ([]byte, error) {
	key, err := passphraseKey(passphrase)
	if err != nil {
		return nil, err
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidIV, len(iv))
	}

	ciphertext, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("ciphertext is not base64: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrCiphertextLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return PKCS7Unpad(plaintext, aes.BlockSize)
}
