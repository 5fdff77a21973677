package message

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ZentaChain/zentalk-msgcore/pkg/protocol"
)

func TestStatusTransitions(t *testing.T) {
	m := New()
	assert.Equal(t, protocol.StatusNone, m.Status())
	assert.Empty(t, m.StatusText())

	for _, s := range []protocol.Status{
		protocol.StatusOrigin,
		protocol.StatusSent,
		protocol.StatusAbandoned,
		protocol.StatusUnread,
		protocol.StatusRead,
	} {
		m.SetStatus(s)
		assert.Equal(t, s, m.Status())
		assert.Equal(t, s.Text(), m.StatusText())
	}
}

func TestDeliveredIsTerminal(t *testing.T) {
	m := New()
	m.SetStatus(protocol.StatusSent)
	m.SetStatus(protocol.StatusDelivered)
	assert.True(t, m.IsDelivered())

	for _, s := range []protocol.Status{
		protocol.StatusNone,
		protocol.StatusUnread,
		protocol.StatusOrigin,
		protocol.StatusSent,
		protocol.StatusRead,
		protocol.StatusAbandoned,
	} {
		m.SetStatus(s)
		assert.Equal(t, protocol.StatusDelivered, m.Status(), "status changed to %q", s)
	}
	assert.Equal(t, "delivered to destination node", m.StatusText())
}

func TestSentNodesAppendOnly(t *testing.T) {
	m := New()
	assert.Empty(t, m.SentNodes())
	assert.False(t, m.HasSentNode("n1"))

	m.AddSentNode("n1")
	m.AddSentNode("n2")
	m.AddSentNode("n3")
	assert.Equal(t, []string{"n1", "n2", "n3"}, m.SentNodes())
	assert.True(t, m.HasSentNode("n2"))

	// callers get a copy
	nodes := m.SentNodes()
	nodes[0] = "changed"
	assert.Equal(t, "n1", m.SentNodes()[0])

	// relay count is tracked separately
	assert.Equal(t, 0, m.RelayCount())
}

func TestRelayCounters(t *testing.T) {
	m := New()

	m.SetRelayCount(3)
	assert.Equal(t, 3, m.RelayCount())
	m.SetRelayCount(-5)
	assert.Equal(t, 0, m.RelayCount())

	m.IncForwardCycles()
	m.IncForwardCycles()
	assert.Equal(t, 2, m.ForwardCycles())
	m.SetForwardCycles(10)
	assert.Equal(t, 10, m.ForwardCycles())
	m.SetForwardCycles(-1)
	assert.Equal(t, 0, m.ForwardCycles())
}

func TestConcurrentRelayBookkeeping(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.AddSentNode(fmt.Sprintf("node-%d", i))
			m.IncForwardCycles()
		}(i)
	}
	wg.Wait()

	assert.Len(t, m.SentNodes(), 50)
	assert.Equal(t, 50, m.ForwardCycles())
}
