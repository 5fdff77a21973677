package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/ZentaChain/zentalk-msgcore/pkg/protocol"
)

// RandomSource produces cryptographically secure random bytes
type RandomSource = io.Reader

// DefaultRandom is the operating system CSPRNG
var DefaultRandom RandomSource = rand.Reader

// RandomBytes reads n bytes from r
func RandomBytes(r RandomSource, n int) ([]byte, error) {
	if r == nil {
		r = DefaultRandom
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("failed to read %d random bytes: %w", n, err)
	}
	return buf, nil
}

// GenerateMessageKey creates the key material of a message: base64 text of
// 256 random bytes.
func GenerateMessageKey(r RandomSource) (string, error) {
	raw, err := RandomBytes(r, protocol.SymmetricKeySize)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// GenerateIV creates a random AES-CBC initialization vector
func GenerateIV(r RandomSource) ([]byte, error) {
	return RandomBytes(r, protocol.IVSize)
}
