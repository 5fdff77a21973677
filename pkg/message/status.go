package message

import (
	"slices"

	"github.com/ZentaChain/zentalk-msgcore/pkg/protocol"
)

func (m *Message) Status() protocol.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// StatusText describes the current status
func (m *Message) StatusText() string {
	return m.Status().Text()
}

// SetStatus moves the message to status. Delivered is terminal: once a
// message is D every later call is ignored. Any other transition is
// accepted; the caller owns its validity.
func (m *Message) SetStatus(status protocol.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == protocol.StatusDelivered {
		return
	}
	m.status = status
}

// IsDelivered reports whether the message reached its terminal status
func (m *Message) IsDelivered() bool {
	return m.Status() == protocol.StatusDelivered
}

// ===== RELAY BOOKKEEPING =====

// SentNodes returns the nodes the message was relayed to, oldest first
func (m *Message) SentNodes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sentNodes)
}

// AddSentNode appends nodeID to the relay log
func (m *Message) AddSentNode(nodeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentNodes = append(m.sentNodes, nodeID)
}

// HasSentNode reports whether the message was already relayed to nodeID
func (m *Message) HasSentNode(nodeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Contains(m.sentNodes, nodeID)
}

func (m *Message) RelayCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.relayCount
}

// SetRelayCount sets the relay counter. It is not derived from SentNodes;
// callers keep the two in step.
func (m *Message) SetRelayCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relayCount = max(n, 0)
}

func (m *Message) ForwardCycles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.forwardCycles
}

func (m *Message) SetForwardCycles(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forwardCycles = max(n, 0)
}

// IncForwardCycles counts one forward attempt, successful or not
func (m *Message) IncForwardCycles() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forwardCycles++
}
