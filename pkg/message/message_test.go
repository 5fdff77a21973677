package message

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/zentalk-msgcore/pkg/protocol"
)

func TestNew(t *testing.T) {
	before := time.Now().Unix()
	m := New()
	after := time.Now().Unix()

	assert.Equal(t, protocol.Version, m.Version())
	assert.GreaterOrEqual(t, m.TimeCreated(), before)
	assert.LessOrEqual(t, m.TimeCreated(), after)
	assert.Equal(t, protocol.StatusNone, m.Status())
	assert.Zero(t, m.TimeReceived())
	assert.Empty(t, m.Checksum())
}

func TestIDIsLazyAndStable(t *testing.T) {
	m := New()

	id := m.ID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, m.ID())
	assert.Contains(t, m.String(), id)

	assert.NotEqual(t, id, New().ID())
}

func TestSetID(t *testing.T) {
	m := New()
	require.NoError(t, m.SetID("cafebabe-0000-4000-8000-000000000001"))
	assert.Equal(t, "cafebabe-0000-4000-8000-000000000001", m.ID())

	// same id again is fine, a different one is refused
	require.NoError(t, m.SetID("cafebabe-0000-4000-8000-000000000001"))
	assert.Error(t, m.SetID("cafebabe-0000-4000-8000-000000000002"))
	assert.Equal(t, "cafebabe-0000-4000-8000-000000000001", m.ID())

	generated := New()
	id := generated.ID()
	assert.Error(t, generated.SetID(uuid.NewString()))
	assert.Equal(t, id, generated.ID())
}

func TestKeyMaterialIsCopied(t *testing.T) {
	m := New()

	pem := []byte("-----BEGIN PUBLIC KEY-----")
	m.SetDstSslPubKey(pem)
	m.SetSrcSslKeyPub(pem)
	pem[0] = 'X'

	assert.Equal(t, byte('-'), m.DstSslPubKey()[0])
	assert.Equal(t, byte('-'), m.SrcSslKeyPub()[0])

	got := m.DstSslPubKey()
	got[0] = 'Y'
	assert.Equal(t, byte('-'), m.DstSslPubKey()[0])
}

func TestAccessors(t *testing.T) {
	m := New()
	m.SetRelayNodeID("relay")
	m.SetSrcNodeID("src")
	m.SetDstNodeID("dst")
	m.SetBody("body")
	m.SetPassword("password")
	m.SetChecksum("checksum as received")
	m.SetEncryptionMode(protocol.EncryptionModeSource)
	m.SetIgnore(true)
	m.SetTimeCreated(5)
	m.SetTimeReceived(6)
	m.SetSubject("subject")
	m.SetText("text")
	m.SetSrcUserNickname("nick")

	assert.Equal(t, "relay", m.RelayNodeID())
	assert.Equal(t, "src", m.SrcNodeID())
	assert.Equal(t, "dst", m.DstNodeID())
	assert.Equal(t, "body", m.Body())
	assert.Equal(t, "password", m.Password())
	assert.Equal(t, "checksum as received", m.Checksum())
	assert.Equal(t, protocol.EncryptionModeSource, m.EncryptionMode())
	assert.True(t, m.Ignore())
	assert.Equal(t, int64(5), m.TimeCreated())
	assert.Equal(t, int64(6), m.TimeReceived())
	assert.Equal(t, "subject", m.Subject())
	assert.Equal(t, "text", m.Text())
	assert.Equal(t, "nick", m.SrcUserNickname())
}
