package protocol

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrMissingField      = errors.New("envelope field missing")
)

// ===== COMPRESSION & ARMOR =====

// Compress gzips data at the best compression level
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress. Output larger than MaxEnvelopeSize is
// rejected as malformed.
func Decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", ErrMalformedEnvelope, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, MaxEnvelopeSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", ErrMalformedEnvelope, err)
	}
	if len(out) > MaxEnvelopeSize {
		return nil, fmt.Errorf("%w: decompressed size exceeds %d bytes", ErrMalformedEnvelope, MaxEnvelopeSize)
	}
	return out, nil
}

// Armor compresses data and renders it as base64 text, the form stored in
// the password and body fields of a message.
func Armor(data []byte) (string, error) {
	compressed, err := Compress(data)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(compressed), nil
}

// Unarmor reverses Armor
func Unarmor(text string) ([]byte, error) {
	compressed, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrMalformedEnvelope, err)
	}
	return Decompress(compressed)
}

func decodeB64Field(name, value string) ([]byte, error) {
	out, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: field %s: %v", ErrMalformedEnvelope, name, err)
	}
	return out, nil
}

func missing(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, name)
}

// ===== PASSWORD ENVELOPE =====

// PasswordEnvelope carries the wrapped message key and the sender's
// signature over it.
type PasswordEnvelope struct {
	EncryptedKey []byte // message key encrypted for the recipient
	Signature    []byte // sender signature over the message key text
	SignAlgo     SignAlgo
}

// Marshal renders the envelope as {"password","sign","signAlgo"}
func (e *PasswordEnvelope) Marshal() ([]byte, error) {
	return EncodeObject([]Field{
		{"password", base64.StdEncoding.EncodeToString(e.EncryptedKey)},
		{"sign", base64.StdEncoding.EncodeToString(e.Signature)},
		{"signAlgo", e.SignAlgo},
	})
}

// UnmarshalPasswordEnvelope parses a password envelope, requiring every field
func UnmarshalPasswordEnvelope(data []byte) (*PasswordEnvelope, error) {
	var raw struct {
		Password *string   `json:"password"`
		Sign     *string   `json:"sign"`
		SignAlgo *SignAlgo `json:"signAlgo"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	switch {
	case raw.Password == nil:
		return nil, missing("password")
	case raw.Sign == nil:
		return nil, missing("sign")
	case raw.SignAlgo == nil:
		return nil, missing("signAlgo")
	}

	key, err := decodeB64Field("password", *raw.Password)
	if err != nil {
		return nil, err
	}
	sig, err := decodeB64Field("sign", *raw.Sign)
	if err != nil {
		return nil, err
	}

	return &PasswordEnvelope{
		EncryptedKey: key,
		Signature:    sig,
		SignAlgo:     *raw.SignAlgo,
	}, nil
}

// ===== CONTENT ENVELOPE =====

// ContentEnvelope is the signed plaintext of a message before symmetric
// encryption.
type ContentEnvelope struct {
	Subject         string
	Text            string
	Signature       []byte // sender signature over Text
	SignAlgo        SignAlgo
	SrcUserNickname string
	Ignore          bool
}

// Marshal renders the envelope as
// {"subject","text","sign","signAlgo","srcUserNickname","ignore"}
func (e *ContentEnvelope) Marshal() ([]byte, error) {
	return EncodeObject([]Field{
		{"subject", base64.StdEncoding.EncodeToString([]byte(e.Subject))},
		{"text", base64.StdEncoding.EncodeToString([]byte(e.Text))},
		{"sign", base64.StdEncoding.EncodeToString(e.Signature)},
		{"signAlgo", e.SignAlgo},
		{"srcUserNickname", base64.StdEncoding.EncodeToString([]byte(e.SrcUserNickname))},
		{"ignore", e.Ignore},
	})
}

// UnmarshalContentEnvelope parses a content envelope, requiring every field
func UnmarshalContentEnvelope(data []byte) (*ContentEnvelope, error) {
	var raw struct {
		Subject         *string   `json:"subject"`
		Text            *string   `json:"text"`
		Sign            *string   `json:"sign"`
		SignAlgo        *SignAlgo `json:"signAlgo"`
		SrcUserNickname *string   `json:"srcUserNickname"`
		Ignore          *bool     `json:"ignore"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	switch {
	case raw.Subject == nil:
		return nil, missing("subject")
	case raw.Text == nil:
		return nil, missing("text")
	case raw.Sign == nil:
		return nil, missing("sign")
	case raw.SignAlgo == nil:
		return nil, missing("signAlgo")
	case raw.SrcUserNickname == nil:
		return nil, missing("srcUserNickname")
	case raw.Ignore == nil:
		return nil, missing("ignore")
	}

	subject, err := decodeB64Field("subject", *raw.Subject)
	if err != nil {
		return nil, err
	}
	text, err := decodeB64Field("text", *raw.Text)
	if err != nil {
		return nil, err
	}
	sig, err := decodeB64Field("sign", *raw.Sign)
	if err != nil {
		return nil, err
	}
	nick, err := decodeB64Field("srcUserNickname", *raw.SrcUserNickname)
	if err != nil {
		return nil, err
	}

	return &ContentEnvelope{
		Subject:         string(subject),
		Text:            string(text),
		Signature:       sig,
		SignAlgo:        *raw.SignAlgo,
		SrcUserNickname: string(nick),
		Ignore:          *raw.Ignore,
	}, nil
}

// ===== BODY ENVELOPE =====

// BodyEnvelope carries the symmetric ciphertext of a compressed content
// envelope. Data is kept in its base64 text form as produced by OpenSSL.
type BodyEnvelope struct {
	Data string
	IV   []byte
}

// Marshal renders the envelope as {"data","iv"}
func (e *BodyEnvelope) Marshal() ([]byte, error) {
	return EncodeObject([]Field{
		{"data", e.Data},
		{"iv", base64.StdEncoding.EncodeToString(e.IV)},
	})
}

// UnmarshalBodyEnvelope parses a body envelope, requiring every field
func UnmarshalBodyEnvelope(data []byte) (*BodyEnvelope, error) {
	var raw struct {
		Data *string `json:"data"`
		IV   *string `json:"iv"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	switch {
	case raw.Data == nil:
		return nil, missing("data")
	case raw.IV == nil:
		return nil, missing("iv")
	}

	iv, err := decodeB64Field("iv", *raw.IV)
	if err != nil {
		return nil, err
	}

	return &BodyEnvelope{Data: *raw.Data, IV: iv}, nil
}
