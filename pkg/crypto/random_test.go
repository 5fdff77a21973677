package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestGenerateMessageKey(t *testing.T) {
	key, err := GenerateMessageKey(nil)
	if err != nil {
		t.Fatalf("GenerateMessageKey() error = %v", err)
	}

	// base64 of 256 bytes
	if len(key) != 344 {
		t.Errorf("GenerateMessageKey() length = %d, want 344", len(key))
	}
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		t.Fatalf("GenerateMessageKey() is not base64: %v", err)
	}
	if len(raw) != 256 {
		t.Errorf("GenerateMessageKey() decodes to %d bytes, want 256", len(raw))
	}

	other, _ := GenerateMessageKey(nil)
	if key == other {
		t.Error("GenerateMessageKey() returned the same key twice")
	}
}

func TestGenerateIV(t *testing.T) {
	iv, err := GenerateIV(nil)
	if err != nil {
		t.Fatalf("GenerateIV() error = %v", err)
	}
	if len(iv) != 16 {
		t.Errorf("GenerateIV() length = %d, want 16", len(iv))
	}
}

func TestRandomBytesCustomSource(t *testing.T) {
	src := bytes.NewReader(bytes.Repeat([]byte{0xAB}, 32))

	got, err := RandomBytes(src, 16)
	if err != nil {
		t.Fatalf("RandomBytes() error = %v", err)
	}
	if !bytes.Equal(got, bytes.Repeat([]byte{0xAB}, 16)) {
		t.Errorf("RandomBytes() = %x, want bytes from the supplied source", got)
	}
}

func TestRandomBytesFailure(t *testing.T) {
	if _, err := RandomBytes(failingReader{}, 16); err == nil {
		t.Error("RandomBytes() expected error from failing source")
	}
	if _, err := GenerateMessageKey(failingReader{}); err == nil {
		t.Error("GenerateMessageKey() expected error from failing source")
	}

	// short source
	if _, err := GenerateIV(bytes.NewReader([]byte{1, 2, 3})); err == nil {
		t.Error("GenerateIV() expected error from exhausted source")
	}
}
