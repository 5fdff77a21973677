package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"hash"
	"os"

	"github.com/youmark/pkcs8"

	"github.com/ZentaChain/zentalk-msgcore/pkg/protocol"
)

var (
	ErrInvalidKey         = errors.New("invalid key")
	ErrPassphraseRequired = errors.New("private key is encrypted, passphrase required")
	ErrWrongPassphrase    = errors.New("wrong passphrase")
	ErrEncryptionFailed   = errors.New("encryption failed")
	ErrDecryptionFailed   = errors.New("decryption failed")
	ErrUnsupportedAlgo    = errors.New("unsupported signature algorithm")
)

// PEM block types understood by LoadPrivateKey
const (
	pemTypeRSAPrivate       = "RSA PRIVATE KEY"
	pemTypePrivate          = "PRIVATE KEY"
	pemTypeEncryptedPrivate = "ENCRYPTED PRIVATE KEY"
	pemTypePublic           = "PUBLIC KEY"
)

func digestFor(algo protocol.SignAlgo) (crypto.Hash, func() hash.Hash, error) {
	switch algo {
	case protocol.SignAlgoSHA1:
		return crypto.SHA1, sha1.New, nil
	case protocol.SignAlgoSHA224:
		return crypto.SHA224, sha256.New224, nil
	case protocol.SignAlgoSHA256:
		return crypto.SHA256, sha256.New, nil
	case protocol.SignAlgoSHA384:
		return crypto.SHA384, sha512.New384, nil
	case protocol.SignAlgoSHA512:
		return crypto.SHA512, sha512.New, nil
	default:
		return 0, nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgo, algo)
	}
}

// GenerateRSAKeyPair generates a new RSA-4096 key pair
func GenerateRSAKeyPair() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, 4096)
}

// ExportPrivateKeyPEM exports private key to PEM format. With an empty
// passphrase the key is written as plain PKCS#1, otherwise as encrypted PKCS#8.
func ExportPrivateKeyPEM(key *rsa.PrivateKey, passphrase []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return pem.EncodeToMemory(&pem.Block{
			Type:  pemTypeRSAPrivate,
			Bytes: x509.MarshalPKCS1PrivateKey(key),
		}), nil
	}

	der, err := pkcs8.MarshalPrivateKey(key, passphrase, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt private key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  pemTypeEncryptedPrivate,
		Bytes: der,
	}), nil
}

// ExportPublicKeyPEM exports public key to PEM format
func ExportPublicKeyPEM(key *rsa.PublicKey) ([]byte, error) {
	pubASN1, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, err
	}

	pubBlock := &pem.Block{
		Type:  pemTypePublic,
		Bytes: pubASN1,
	}

	return pem.EncodeToMemory(pubBlock), nil
}

// LoadPrivateKey turns a PEM private key blob and an optional passphrase into
// a key usable for signing and decryption.
func LoadPrivateKey(pemData []byte, passphrase []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, ErrInvalidKey
	}

	switch block.Type {
	case pemTypeRSAPrivate:
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return key, nil

	case pemTypePrivate:
		key, err := pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return key, nil

	case pemTypeEncryptedPrivate:
		if len(passphrase) == 0 {
			return nil, ErrPassphraseRequired
		}
		key, err := pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes, passphrase)
		if err != nil {
			// pkcs8 reports a bad passphrase as a padding or parse error
			return nil, fmt.Errorf("%w: %v", ErrWrongPassphrase, err)
		}
		return key, nil

	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrInvalidKey, block.Type)
	}
}

// ImportPublicKeyPEM imports public key from PEM format
func ImportPublicKeyPEM(pemData []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, ErrInvalidKey
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, ErrInvalidKey
	}

	return rsaPub, nil
}

// SaveKeyToFile saves a PEM encoded key to file
func SaveKeyToFile(filename string, pemData []byte) error {
	return os.WriteFile(filename, pemData, 0600)
}

// LoadKeyFromFile loads a PEM encoded key from file
func LoadKeyFromFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

// RSAEncrypt wraps data for publicKey using PKCS#1 v1.5 padding, the scheme
// legacy nodes decrypt with.
func RSAEncrypt(data []byte, publicKey *rsa.PublicKey) ([]byte, error) {
	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, publicKey, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	return ciphertext, nil
}

// RSADecrypt unwraps PKCS#1 v1.5 ciphertext with privateKey
func RSADecrypt(ciphertext []byte, privateKey *rsa.PrivateKey) ([]byte, error) {
	plaintext, err := rsa.DecryptPKCS1v15(nil, privateKey, ciphertext)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// SignData signs data with RSA private key
func SignData(data []byte, privateKey *rsa.PrivateKey, algo protocol.SignAlgo) ([]byte, error) {
	id, newHash, err := digestFor(algo)
	if err != nil {
		return nil, err
	}

	h := newHash()
	h.Write(data)
	hashed := h.Sum(nil)

	return rsa.SignPKCS1v15(rand.Reader, privateKey, id, hashed)
}

// VerifySignature verifies signature with RSA public key
func VerifySignature(data []byte, signature []byte, publicKey *rsa.PublicKey, algo protocol.SignAlgo) error {
	id, newHash, err := digestFor(algo)
	if err != nil {
		return err
	}

	h := newHash()
	h.Write(data)
	hashed := h.Sum(nil)

	return rsa.VerifyPKCS1v15(publicKey, id, hashed, signature)
}
