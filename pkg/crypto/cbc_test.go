package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestAESCBCEncryptDecrypt(t *testing.T) {
	passphrase, err := GenerateMessageKey(nil)
	if err != nil {
		t.Fatalf("GenerateMessageKey() error = %v", err)
	}
	iv, err := GenerateIV(nil)
	if err != nil {
		t.Fatalf("GenerateIV() error = %v", err)
	}

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"empty", []byte{}},
		{"short", []byte("hello")},
		{"block aligned", bytes.Repeat([]byte("x"), 32)},
		{"binary", []byte{0x1f, 0x8b, 0x08, 0x00, 0xff}},
		{"large", bytes.Repeat([]byte("payload "), 4096)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := AESCBCEncrypt(tt.plaintext, passphrase, iv)
			if err != nil {
				t.Fatalf("AESCBCEncrypt() error = %v", err)
			}

			raw, err := base64.StdEncoding.DecodeString(data)
			if err != nil {
				t.Fatalf("AESCBCEncrypt() output is not base64: %v", err)
			}
			if len(raw)%16 != 0 || len(raw) <= len(tt.plaintext) {
				t.Errorf("AESCBCEncrypt() ciphertext length = %d for %d plaintext bytes", len(raw), len(tt.plaintext))
			}

			decrypted, err := AESCBCDecrypt(data, passphrase, iv)
			if err != nil {
				t.Fatalf("AESCBCDecrypt() error = %v", err)
			}
			if !bytes.Equal(decrypted, tt.plaintext) {
				t.Error("AESCBCDecrypt() did not return the original plaintext")
			}
		})
	}
}

func TestAESCBCPassphraseTruncation(t *testing.T) {
	iv := make([]byte, 16)
	short := strings.Repeat("k", AES256KeySize)
	long := short + "ignored suffix"

	a, err := AESCBCEncrypt([]byte("same key"), short, iv)
	if err != nil {
		t.Fatalf("AESCBCEncrypt() error = %v", err)
	}
	b, err := AESCBCEncrypt([]byte("same key"), long, iv)
	if err != nil {
		t.Fatalf("AESCBCEncrypt() error = %v", err)
	}

	// only the first 32 bytes of the passphrase form the key
	if a != b {
		t.Error("AESCBCEncrypt() output depends on bytes past the key length")
	}
}

func TestAESCBCErrors(t *testing.T) {
	passphrase := strings.Repeat("p", 64)
	iv := make([]byte, 16)
	valid, _ := AESCBCEncrypt([]byte("hello"), passphrase, iv)

	t.Run("weak passphrase", func(t *testing.T) {
		if _, err := AESCBCEncrypt([]byte("x"), "short", iv); !errors.Is(err, ErrPassphraseTooWeak) {
			t.Errorf("AESCBCEncrypt() error = %v, want %v", err, ErrPassphraseTooWeak)
		}
		if _, err := AESCBCDecrypt(valid, "short", iv); !errors.Is(err, ErrPassphraseTooWeak) {
			t.Errorf("AESCBCDecrypt() error = %v, want %v", err, ErrPassphraseTooWeak)
		}
	})

	t.Run("bad iv", func(t *testing.T) {
		if _, err := AESCBCEncrypt([]byte("x"), passphrase, []byte{1, 2, 3}); !errors.Is(err, ErrInvalidIV) {
			t.Errorf("AESCBCEncrypt() error = %v, want %v", err, ErrInvalidIV)
		}
		if _, err := AESCBCDecrypt(valid, passphrase, nil); !errors.Is(err, ErrInvalidIV) {
			t.Errorf("AESCBCDecrypt() error = %v, want %v", err, ErrInvalidIV)
		}
	})

	t.Run("not base64", func(t *testing.T) {
		if _, err := AESCBCDecrypt("%%%", passphrase, iv); err == nil {
			t.Error("AESCBCDecrypt() expected error for non-base64 input")
		}
	})

	t.Run("truncated ciphertext", func(t *testing.T) {
		short := base64.StdEncoding.EncodeToString([]byte("0123456789"))
		if _, err := AESCBCDecrypt(short, passphrase, iv); !errors.Is(err, ErrCiphertextLength) {
			t.Errorf("AESCBCDecrypt() error = %v, want %v", err, ErrCiphertextLength)
		}
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		other := strings.Repeat("q", 64)
		decrypted, err := AESCBCDecrypt(valid, other, iv)
		if err == nil && bytes.Equal(decrypted, []byte("hello")) {
			t.Error("AESCBCDecrypt() recovered plaintext with the wrong passphrase")
		}
	})
}
