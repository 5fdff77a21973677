package protocol

import (
	"fmt"
	"time"
)

// Protocol constants
const (
	// Version of the message envelope format written by this node
	Version = 1

	// SymmetricKeySize is the number of random bytes behind a message key.
	// The key travels as base64 text of these bytes.
	SymmetricKeySize = 256

	// IVSize is the AES-CBC initialization vector size
	IVSize = 16

	// ChecksumLength is the length of a message checksum in hex characters
	ChecksumLength = 48

	// MaxEnvelopeSize caps the decompressed size of any envelope
	MaxEnvelopeSize = 8 << 20
)

// Status is the lifecycle state of a message on a node
type Status string

const (
	StatusNone      Status = ""
	StatusUnread    Status = "U"
	StatusOrigin    Status = "O"
	StatusSent      Status = "S"
	StatusDelivered Status = "D"
	StatusRead      Status = "R"
	StatusAbandoned Status = "X"
)

// Text returns the human readable description of a status
func (s Status) Text() string {
	switch s {
	case StatusUnread:
		return "unread, got msg from another node"
	case StatusOrigin:
		return "origin, local node created the msg"
	case StatusSent:
		return "sent at least to one node"
	case StatusDelivered:
		return "delivered to destination node"
	case StatusRead:
		return "read"
	case StatusAbandoned:
		return "reached MSG_FORWARD_TO_NODES_MIN or MSG_FORWARD_TO_NODES_MAX"
	default:
		return ""
	}
}

// Valid reports whether s is a known status (the empty status included)
func (s Status) Valid() bool {
	switch s {
	case StatusNone, StatusUnread, StatusOrigin, StatusSent, StatusDelivered, StatusRead, StatusAbandoned:
		return true
	}
	return false
}

// ParseStatus validates a status code
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return StatusNone, fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// EncryptionMode tells whose key a message is encrypted for
type EncryptionMode string

const (
	EncryptionModeNone EncryptionMode = ""

	// EncryptionModeSource - encrypted with the source node public key (self archive)
	EncryptionModeSource EncryptionMode = "S"

	// EncryptionModeDestination - encrypted with the destination node public key
	EncryptionModeDestination EncryptionMode = "D"
)

// Valid reports whether m is a known encryption mode (empty included)
func (m EncryptionMode) Valid() bool {
	switch m {
	case EncryptionModeNone, EncryptionModeSource, EncryptionModeDestination:
		return true
	}
	return false
}

// SignAlgo identifies a signature digest. Values are the OpenSSL algorithm
// ids so envelopes written by older nodes keep their meaning.
type SignAlgo int

const (
	SignAlgoSHA1   SignAlgo = 1
	SignAlgoSHA224 SignAlgo = 6
	SignAlgoSHA256 SignAlgo = 7
	SignAlgoSHA384 SignAlgo = 8
	SignAlgoSHA512 SignAlgo = 9
)

// DefaultSignAlgo is used for every signature this node produces
const DefaultSignAlgo = SignAlgoSHA1

func (a SignAlgo) String() string {
	switch a {
	case SignAlgoSHA1:
		return "SHA1"
	case SignAlgoSHA224:
		return "SHA224"
	case SignAlgoSHA256:
		return "SHA256"
	case SignAlgoSHA384:
		return "SHA384"
	case SignAlgoSHA512:
		return "SHA512"
	default:
		return fmt.Sprintf("SignAlgo(%d)", int(a))
	}
}

// NowUnix returns the current unix time in seconds
func NowUnix() int64 {
	return time.Now().Unix()
}
