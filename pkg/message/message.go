// Package message implements the chat message record: its persisted fields,
// the hybrid encryption that protects it on every relay hop, and its
// lifecycle status.
package message

import (
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ZentaChain/zentalk-msgcore/pkg/protocol"
)

// Message is one chat message as seen by a node.
//
// Persisted fields are exported through Record. Sender and recipient key
// material, subject, text and nickname are transient: they live only in
// memory and must be supplied again after a record is loaded.
//
// All methods are safe for concurrent use; Encrypt and Decrypt hold the
// record lock for their whole run.
type Message struct {
	mu sync.Mutex

	version        int
	id             string
	relayNodeID    string
	srcNodeID      string
	dstNodeID      string
	body           string
	password       string
	checksum       string
	sentNodes      []string
	relayCount     int
	forwardCycles  int
	encryptionMode protocol.EncryptionMode
	status         protocol.Status
	ignore         bool
	timeCreated    int64
	timeReceived   int64

	// transient
	srcSslKeyPub    []byte
	srcUserNickname string
	dstSslPubKey    []byte
	subject         string
	text            string

	rand   io.Reader
	logger *zap.Logger
	trace  bool
}

// New creates a message stamped with the current protocol version and time
func New() *Message {
	return &Message{
		version:     protocol.Version,
		sentNodes:   []string{},
		timeCreated: protocol.NowUnix(),
		logger:      zap.NewNop(),
	}
}

func (m *Message) String() string {
	return fmt.Sprintf("Message{%s}", m.ID())
}

// SetRandom replaces the secure random source used for keys and IVs
func (m *Message) SetRandom(r io.Reader) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rand = r
}

// SetLogger sets the logger used for diagnostics
func (m *Message) SetLogger(l *zap.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	m.logger = l
}

// SetTrace turns on debug tracing of checksum inputs, key material
// included. Never enable it on a production node.
func (m *Message) SetTrace(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trace = on
}

// ===== IDENTITY =====

func (m *Message) Version() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

func (m *Message) SetVersion(v int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version = v
}

// ID returns the message id, generating a random UUID on first use
func (m *Message) ID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idLocked()
}

func (m *Message) idLocked() string {
	if m.id == "" {
		m.id = uuid.NewString()
	}
	return m.id
}

// SetID assigns the id of a message received from elsewhere. An id that is
// already set is never replaced.
func (m *Message) SetID(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.id != "" && m.id != id {
		return fmt.Errorf("message id already assigned: %s", m.id)
	}
	m.id = id
	return nil
}

// ===== ROUTING =====

func (m *Message) RelayNodeID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.relayNodeID
}

func (m *Message) SetRelayNodeID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relayNodeID = id
}

func (m *Message) SrcNodeID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.srcNodeID
}

func (m *Message) SetSrcNodeID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.srcNodeID = id
}

func (m *Message) DstNodeID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dstNodeID
}

func (m *Message) SetDstNodeID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dstNodeID = id
}

// ===== SEALED FIELDS =====

func (m *Message) Body() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.body
}

func (m *Message) SetBody(body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.body = body
}

func (m *Message) Password() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.password
}

func (m *Message) SetPassword(password string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.password = password
}

func (m *Message) Checksum() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checksum
}

// SetChecksum stores a checksum as received. It is not recomputed.
func (m *Message) SetChecksum(checksum string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checksum = checksum
}

// ===== FLAGS & TIMES =====

func (m *Message) EncryptionMode() protocol.EncryptionMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.encryptionMode
}

func (m *Message) SetEncryptionMode(mode protocol.EncryptionMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.encryptionMode = mode
}

func (m *Message) Ignore() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ignore
}

// SetIgnore marks the message for silent discard by the recipient. The flag
// travels inside the encrypted content.
func (m *Message) SetIgnore(ignore bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ignore = ignore
}

func (m *Message) TimeCreated() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeCreated
}

func (m *Message) SetTimeCreated(t int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeCreated = t
}

func (m *Message) TimeReceived() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeReceived
}

func (m *Message) SetTimeReceived(t int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeReceived = t
}

// ===== TRANSIENT =====

// SrcSslKeyPub returns the sender public key PEM
func (m *Message) SrcSslKeyPub() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.srcSslKeyPub)
}

func (m *Message) SetSrcSslKeyPub(pemData []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.srcSslKeyPub = slices.Clone(pemData)
}

// DstSslPubKey returns the recipient public key PEM
func (m *Message) DstSslPubKey() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.dstSslPubKey)
}

func (m *Message) SetDstSslPubKey(pemData []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dstSslPubKey = slices.Clone(pemData)
}

func (m *Message) SrcUserNickname() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.srcUserNickname
}

func (m *Message) SetSrcUserNickname(nickname string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.srcUserNickname = nickname
}

func (m *Message) Subject() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subject
}

func (m *Message) SetSubject(subject string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subject = subject
}

// Text returns the plaintext body, set before Encrypt or by Decrypt
func (m *Message) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

func (m *Message) SetText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
}
