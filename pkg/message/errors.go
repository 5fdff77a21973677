package message

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Kind groups failures so callers can decide between retry, drop and
// marking a message as abandoned.
type Kind int

const (
	KindUnknown Kind = iota
	KindPrecondition
	KindRandomSource
	KindSigning
	KindAsymmetricEncrypt
	KindAsymmetricDecrypt
	KindSymmetricEncrypt
	KindSymmetricDecrypt
	KindSignatureVerification
	KindEnvelopeEncode
	KindEnvelopeDecode
	KindChecksumMismatch
	KindInvalidRecord
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition missing"
	case KindRandomSource:
		return "random source failure"
	case KindSigning:
		return "signing failure"
	case KindAsymmetricEncrypt:
		return "asymmetric encrypt failure"
	case KindAsymmetricDecrypt:
		return "asymmetric decrypt failure"
	case KindSymmetricEncrypt:
		return "symmetric encrypt failure"
	case KindSymmetricDecrypt:
		return "symmetric decrypt failure"
	case KindSignatureVerification:
		return "signature verification failure"
	case KindEnvelopeEncode:
		return "envelope encode failure"
	case KindEnvelopeDecode:
		return "envelope decode failure"
	case KindChecksumMismatch:
		return "checksum mismatch"
	case KindInvalidRecord:
		return "invalid record"
	default:
		return "unknown"
	}
}

// Error is a named failure with a stable numeric code
type Error struct {
	Kind Kind
	Code int
	msg  string
}

func (e *Error) Error() string { return e.msg }

func newError(kind Kind, code int, msg string) *Error {
	return &Error{Kind: kind, Code: code, msg: msg}
}

// Encrypt preconditions and failures
var (
	ErrSigningKeyMissing   = newError(KindPrecondition, 1, "signing key not set")
	ErrDstPublicKeyMissing = newError(KindPrecondition, 2, "dstSslPubKey not set")
	ErrKeyGeneration       = newError(KindRandomSource, 103, "can't create password")
	ErrKeyWrap             = newError(KindAsymmetricEncrypt, 101, "public encrypt of password failed")
	ErrKeySign             = newError(KindSigning, 102, "signing of password failed")
	ErrTextSign            = newError(KindSigning, 104, "signing of text failed")
	ErrIVGeneration        = newError(KindRandomSource, 105, "can't create iv")
	ErrBodyEncrypt         = newError(KindSymmetricEncrypt, 106, "body encrypt failed")
	ErrEnvelopeEncode      = newError(KindEnvelopeEncode, 107, "envelope encode failed")
	ErrChecksumInput       = newError(KindEnvelopeEncode, 108, "checksum input not encodable")
)

// Decrypt preconditions and failures
var (
	ErrDecryptionKeyMissing = newError(KindPrecondition, 10, "decryption key not set")
	ErrSrcPublicKeyMissing  = newError(KindPrecondition, 20, "srcSslKeyPub not set")
	ErrSrcPublicKeyInvalid  = newError(KindPrecondition, 21, "srcSslKeyPub is not an RSA public key")
	ErrDstNodeIDMissing     = newError(KindPrecondition, 30, "dstNodeId not set")
	ErrDstPublicKeyUnset    = newError(KindPrecondition, 40, "dstSslPubKey not set")
	ErrPasswordMissing      = newError(KindPrecondition, 50, "password not set")
	ErrChecksumMissing      = newError(KindPrecondition, 60, "checksum not set")
	ErrIDMissing            = newError(KindPrecondition, 70, "id not set")
	ErrPasswordEnvelope     = newError(KindEnvelopeDecode, 201, "password envelope decode failed")
	ErrKeyUnwrap            = newError(KindAsymmetricDecrypt, 202, "password private decrypt failed")
	ErrKeySignature         = newError(KindSignatureVerification, 203, "password signature verification failed")
	ErrBodyEnvelope         = newError(KindEnvelopeDecode, 204, "body envelope decode failed")
	ErrBodyDecrypt          = newError(KindSymmetricDecrypt, 205, "body decrypt failed")
	ErrContentEnvelope      = newError(KindEnvelopeDecode, 206, "content envelope decode failed")
	ErrTextSignature        = newError(KindSignatureVerification, 207, "text signature verification failed")
	ErrChecksumMismatch     = newError(KindChecksumMismatch, 208, "message checksum does not match")
	ErrInvalidRecord        = newError(KindInvalidRecord, 300, "invalid message record")
)

// OpError records which operation failed, the named failure, and the
// underlying cause when there is one.
type OpError struct {
	Op    string
	Err   *Error
	Cause error
}

func (e *OpError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("message %s: %s", e.Op, e.Err.msg)
	}
	return fmt.Sprintf("message %s: %s: %v", e.Op, e.Err.msg, e.Cause)
}

func (e *OpError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func opError(op string, err *Error, cause error) error {
	return &OpError{Op: op, Err: err, Cause: cause}
}

// KindOf returns the failure kind carried by err
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the numeric code carried by err, 0 if none
func CodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// ChecksumMismatchError holds every checksum input of a failed comparison.
// Error() never includes them; use LogFields for operator logs only.
type ChecksumMismatchError struct {
	Expected     string
	Actual       string
	Version      int
	ID           string
	SrcNodeID    string
	DstNodeID    string
	DstPublicKey []byte
	Subject      string
	Text         string
	TimeCreated  int64
	Key          string
}

func (e *ChecksumMismatchError) Error() string {
	return "checksum mismatch"
}

func (e *ChecksumMismatchError) Is(target error) bool {
	return target == ErrChecksumMismatch
}

// LogFields renders the full context for forensic logging. The output
// contains plaintext and key material.
func (e *ChecksumMismatchError) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("checksum", e.Actual),
		zap.String("storedChecksum", e.Expected),
		zap.Int("version", e.Version),
		zap.String("id", e.ID),
		zap.String("srcNodeId", e.SrcNodeID),
		zap.String("dstNodeId", e.DstNodeID),
		zap.ByteString("dstSslPubKey", e.DstPublicKey),
		zap.String("subject", e.Subject),
		zap.String("text", e.Text),
		zap.Int64("timeCreated", e.TimeCreated),
		zap.String("password", e.Key),
	}
}
