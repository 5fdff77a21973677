package crypto

import (
	"bytes"
	"errors"
)

var (
	ErrInvalidPadding = errors.New("invalid padding")
)

// PKCS7Pad pads message to a multiple of blockSize. A full block of padding
// is added when the message is already aligned.
func PKCS7Pad(message []byte, blockSize int) []byte {
	paddingLen := blockSize - len(message)%blockSize

	padded := make([]byte, len(message)+paddingLen)
	copy(padded, message)
	copy(padded[len(message):], bytes.Repeat([]byte{byte(paddingLen)}, paddingLen))

	return padded
}

// PKCS7Unpad strips and checks PKCS#7 padding
func PKCS7Unpad(padded []byte, blockSize int) ([]byte, error) {
	if len(padded) == 0 || len(padded)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}

	paddingLen := int(padded[len(padded)-1])
	if paddingLen == 0 || paddingLen > blockSize {
		return nil, ErrInvalidPadding
	}

	for _, b := range padded[len(padded)-paddingLen:] {
		if int(b) != paddingLen {
			return nil, ErrInvalidPadding
		}
	}

	return padded[:len(padded)-paddingLen], nil
}
