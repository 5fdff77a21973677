package message

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ZentaChain/zentalk-msgcore/pkg/crypto"
	"github.com/ZentaChain/zentalk-msgcore/pkg/protocol"
)

// Record is the persisted form of a message. It never holds key material,
// subject, text or nickname.
type Record struct {
	Version        int                     `json:"version"`
	ID             string                  `json:"id"`
	RelayNodeID    string                  `json:"relayNodeId"`
	SrcNodeID      string                  `json:"srcNodeId"`
	DstNodeID      string                  `json:"dstNodeId"`
	Body           string                  `json:"body"`
	Password       string                  `json:"password"`
	Checksum       string                  `json:"checksum"`
	SentNodes      []string                `json:"sentNodes"`
	RelayCount     int                     `json:"relayCount"`
	ForwardCycles  int                     `json:"forwardCycles"`
	EncryptionMode protocol.EncryptionMode `json:"encryptionMode"`
	Status         protocol.Status         `json:"status"`
	Ignore         bool                    `json:"ignore"`
	TimeCreated    int64                   `json:"timeCreated"`
	TimeReceived   int64                   `json:"timeReceived"`
}

// Record exports the persisted fields. The id is generated if still unset.
func (m *Message) Record() Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	sent := slices.Clone(m.sentNodes)
	if sent == nil {
		sent = []string{}
	}

	return Record{
		Version:        m.version,
		ID:             m.idLocked(),
		RelayNodeID:    m.relayNodeID,
		SrcNodeID:      m.srcNodeID,
		DstNodeID:      m.dstNodeID,
		Body:           m.body,
		Password:       m.password,
		Checksum:       m.checksum,
		SentNodes:      sent,
		RelayCount:     m.relayCount,
		ForwardCycles:  m.forwardCycles,
		EncryptionMode: m.encryptionMode,
		Status:         m.status,
		Ignore:         m.ignore,
		TimeCreated:    m.timeCreated,
		TimeReceived:   m.timeReceived,
	}
}

// Validate checks a record read from storage or from a peer
func (r *Record) Validate() error {
	if r.Version < 1 {
		return invalidRecord("version", fmt.Sprintf("%d", r.Version))
	}
	if r.ID != "" {
		if _, err := uuid.Parse(r.ID); err != nil {
			return invalidRecord("id", r.ID)
		}
	}
	if r.Checksum != "" && !crypto.IsChecksum(r.Checksum) {
		return invalidRecord("checksum", r.Checksum)
	}
	if r.RelayCount < 0 {
		return invalidRecord("relayCount", fmt.Sprintf("%d", r.RelayCount))
	}
	if r.ForwardCycles < 0 {
		return invalidRecord("forwardCycles", fmt.Sprintf("%d", r.ForwardCycles))
	}
	if !r.EncryptionMode.Valid() {
		return invalidRecord("encryptionMode", string(r.EncryptionMode))
	}
	if !r.Status.Valid() {
		return invalidRecord("status", string(r.Status))
	}
	return nil
}

func invalidRecord(field, value string) error {
	return opError("load", ErrInvalidRecord, fmt.Errorf("field %s: bad value %q", field, value))
}

// FromRecord rebuilds a message from its persisted form. Transient fields
// start empty.
func FromRecord(r Record) (*Message, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	sent := slices.Clone(r.SentNodes)
	if sent == nil {
		sent = []string{}
	}

	return &Message{
		version:        r.Version,
		id:             r.ID,
		relayNodeID:    r.RelayNodeID,
		srcNodeID:      r.SrcNodeID,
		dstNodeID:      r.DstNodeID,
		body:           r.Body,
		password:       r.Password,
		checksum:       r.Checksum,
		sentNodes:      sent,
		relayCount:     r.RelayCount,
		forwardCycles:  r.ForwardCycles,
		encryptionMode: r.EncryptionMode,
		status:         r.Status,
		ignore:         r.Ignore,
		timeCreated:    r.TimeCreated,
		timeReceived:   r.TimeReceived,
		logger:         zap.NewNop(),
	}, nil
}
