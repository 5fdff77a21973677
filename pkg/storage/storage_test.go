package storage

import (
	"crypto/rand"
	"crypto/rsa"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/zentalk-msgcore/pkg/crypto"
	"github.com/ZentaChain/zentalk-msgcore/pkg/message"
	"github.com/ZentaChain/zentalk-msgcore/pkg/protocol"
)

func newTestDB(t *testing.T) *MessageDB {
	t.Helper()
	db, err := NewMessageDB(filepath.Join(t.TempDir(), "messages.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestMessage(dst string, created int64, status protocol.Status) *message.Message {
	m := message.New()
	m.SetSrcNodeID("node-a")
	m.SetDstNodeID(dst)
	m.SetTimeCreated(created)
	m.SetStatus(status)
	m.SetText("transient text")
	m.SetSubject("transient subject")
	return m
}

func TestSaveGetMessage(t *testing.T) {
	db := newTestDB(t)

	m := newTestMessage("node-b", 1000, protocol.StatusOrigin)
	m.SetRelayNodeID("node-r")
	m.SetBody("body")
	m.SetPassword("password")
	m.SetChecksum("dfb7c21ea3e4b20de9de3575b395c54033e77e759a1e084e")
	m.AddSentNode("node-x")
	m.SetRelayCount(1)
	m.SetForwardCycles(2)
	m.SetEncryptionMode(protocol.EncryptionModeDestination)
	m.SetIgnore(true)
	m.SetTimeReceived(1001)
	require.NoError(t, db.SaveMessage(m))

	loaded, err := db.GetMessage(m.ID())
	require.NoError(t, err)

	assert.Equal(t, m.Record(), loaded.Record())

	// transient fields are never persisted
	assert.Empty(t, loaded.Text())
	assert.Empty(t, loaded.Subject())
	assert.Empty(t, loaded.SrcSslKeyPub())
}

func TestGetMessageNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetMessage("cafebabe-0000-4000-8000-000000000001")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveMessageUpserts(t *testing.T) {
	db := newTestDB(t)

	m := newTestMessage("node-b", 1000, protocol.StatusOrigin)
	require.NoError(t, db.SaveMessage(m))

	m.SetStatus(protocol.StatusSent)
	m.AddSentNode("node-c")
	require.NoError(t, db.SaveMessage(m))

	loaded, err := db.GetMessage(m.ID())
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusSent, loaded.Status())
	assert.Equal(t, []string{"node-c"}, loaded.SentNodes())

	all, err := db.ListMessages(ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSaveMessageRejectsInvalidRecord(t *testing.T) {
	db := newTestDB(t)

	m := newTestMessage("node-b", 1000, protocol.StatusOrigin)
	m.SetChecksum("not a checksum")

	err := db.SaveMessage(m)
	assert.ErrorIs(t, err, message.ErrInvalidRecord)
}

func TestListMessages(t *testing.T) {
	db := newTestDB(t)

	msgs := []*message.Message{
		newTestMessage("node-b", 3000, protocol.StatusSent),
		newTestMessage("node-b", 1000, protocol.StatusOrigin),
		newTestMessage("node-c", 2000, protocol.StatusSent),
		newTestMessage("node-b", 2500, protocol.StatusDelivered),
	}
	for _, m := range msgs {
		require.NoError(t, db.SaveMessage(m))
	}

	all, err := db.ListMessages(ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].TimeCreated(), all[i].TimeCreated())
	}

	sent, err := db.ListMessages(ListFilter{Status: protocol.StatusSent})
	require.NoError(t, err)
	require.Len(t, sent, 2)
	assert.Equal(t, msgs[2].ID(), sent[0].ID())
	assert.Equal(t, msgs[0].ID(), sent[1].ID())

	toB, err := db.ListMessages(ListFilter{DstNodeID: "node-b", Status: protocol.StatusSent})
	require.NoError(t, err)
	require.Len(t, toB, 1)
	assert.Equal(t, msgs[0].ID(), toB[0].ID())

	limited, err := db.ListMessages(ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := db.ListMessages(ListFilter{DstNodeID: "node-z"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestUpdateStatus(t *testing.T) {
	db := newTestDB(t)

	m := newTestMessage("node-b", 1000, protocol.StatusOrigin)
	require.NoError(t, db.SaveMessage(m))

	tests := []struct {
		name         string
		requested    protocol.Status
		wantPrevious protocol.Status
		wantCurrent  protocol.Status
	}{
		{"origin to sent", protocol.StatusSent, protocol.StatusOrigin, protocol.StatusSent},
		{"sent to sent", protocol.StatusSent, protocol.StatusSent, protocol.StatusSent},
		{"sent to delivered", protocol.StatusDelivered, protocol.StatusSent, protocol.StatusDelivered},
		{"delivered is terminal", protocol.StatusAbandoned, protocol.StatusDelivered, protocol.StatusDelivered},
		{"delivered to delivered", protocol.StatusDelivered, protocol.StatusDelivered, protocol.StatusDelivered},
	}

	// each case starts from the status the previous one left behind
	for _, tt := range tests {
		previous, current, err := db.UpdateStatus(m.ID(), tt.requested)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.wantPrevious, previous, tt.name)
		assert.Equal(t, tt.wantCurrent, current, tt.name)
	}

	loaded, err := db.GetMessage(m.ID())
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusDelivered, loaded.Status())

	_, _, err = db.UpdateStatus(m.ID(), protocol.Status("Z"))
	assert.Error(t, err)

	_, _, err = db.UpdateStatus("cafebabe-0000-4000-8000-000000000001", protocol.StatusRead)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordRelay(t *testing.T) {
	db := newTestDB(t)

	m := newTestMessage("node-b", 1000, protocol.StatusOrigin)
	require.NoError(t, db.SaveMessage(m))

	_, err := db.RecordRelay(m.ID(), "node-r1")
	require.NoError(t, err)
	updated, err := db.RecordRelay(m.ID(), "node-r2")
	require.NoError(t, err)

	assert.Equal(t, []string{"node-r1", "node-r2"}, updated.SentNodes())
	assert.Equal(t, 2, updated.RelayCount())
	assert.Equal(t, 2, updated.ForwardCycles())

	loaded, err := db.GetMessage(m.ID())
	require.NoError(t, err)
	assert.Equal(t, updated.Record(), loaded.Record())

	_, err = db.RecordRelay(m.ID(), "")
	assert.Error(t, err)

	_, err = db.RecordRelay("cafebabe-0000-4000-8000-000000000001", "node-r1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentRecordRelay(t *testing.T) {
	db := newTestDB(t)

	m := newTestMessage("node-b", 1000, protocol.StatusOrigin)
	require.NoError(t, db.SaveMessage(m))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := db.RecordRelay(m.ID(), "node-r")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	loaded, err := db.GetMessage(m.ID())
	require.NoError(t, err)
	assert.Len(t, loaded.SentNodes(), 10)
	assert.Equal(t, 10, loaded.RelayCount())
}

func TestSenderKeys(t *testing.T) {
	db := newTestDB(t)

	m := newTestMessage("node-b", 1000, protocol.StatusUnread)
	require.NoError(t, db.SaveMessage(m))

	pem := []byte("-----BEGIN PUBLIC KEY-----\nAAAA\n-----END PUBLIC KEY-----\n")

	_, err := db.GetSenderKey(m.ID())
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.SaveSenderKey(m.ID(), pem))
	got, err := db.GetSenderKey(m.ID())
	require.NoError(t, err)
	assert.Equal(t, pem, got)

	// attached on load
	loaded, err := db.GetMessage(m.ID())
	require.NoError(t, err)
	assert.Equal(t, pem, loaded.SrcSslKeyPub())

	assert.ErrorIs(t, db.SaveSenderKey("cafebabe-0000-4000-8000-000000000001", pem), ErrNotFound)
	assert.ErrorIs(t, db.SaveSenderKey("not-a-uuid", pem), ErrInvalidID)
}

func TestDeleteMessage(t *testing.T) {
	db := newTestDB(t)

	m := newTestMessage("node-b", 1000, protocol.StatusUnread)
	require.NoError(t, db.SaveMessage(m))
	require.NoError(t, db.SaveSenderKey(m.ID(), []byte("pem")))

	require.NoError(t, db.DeleteMessage(m.ID()))

	_, err := db.GetMessage(m.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetSenderKey(m.ID())
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, db.DeleteMessage(m.ID()), ErrNotFound)
}

func TestPurgeMessages(t *testing.T) {
	db := newTestDB(t)

	old := newTestMessage("node-b", 1000, protocol.StatusDelivered)
	recent := newTestMessage("node-b", 5000, protocol.StatusDelivered)
	pending := newTestMessage("node-b", 1000, protocol.StatusSent)
	for _, m := range []*message.Message{old, recent, pending} {
		require.NoError(t, db.SaveMessage(m))
	}
	require.NoError(t, db.SaveSenderKey(old.ID(), []byte("pem")))

	count, err := db.PurgeMessages(protocol.StatusDelivered, 2000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = db.GetMessage(old.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetSenderKey(old.ID())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.GetMessage(recent.ID())
	assert.NoError(t, err)
	_, err = db.GetMessage(pending.ID())
	assert.NoError(t, err)

	db.purgeFinished(2000)
	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, map[protocol.Status]int{
		protocol.StatusDelivered: 1,
		protocol.StatusSent:      1,
	}, stats)
}

func TestSealedMessageSurvivesStorage(t *testing.T) {
	db := newTestDB(t)

	alice, err := rsa.GenerateKey(rand.Reader, 3072)
	require.NoError(t, err)
	bob, err := rsa.GenerateKey(rand.Reader, 3072)
	require.NoError(t, err)
	alicePub, err := crypto.ExportPublicKeyPEM(&alice.PublicKey)
	require.NoError(t, err)
	bobPub, err := crypto.ExportPublicKeyPEM(&bob.PublicKey)
	require.NoError(t, err)

	m := newTestMessage("node-b", 1000, protocol.StatusOrigin)
	m.SetText("hello world")
	m.SetDstSslPubKey(bobPub)
	require.NoError(t, m.Encrypt(alice))
	require.NoError(t, db.SaveMessage(m))
	require.NoError(t, db.SaveSenderKey(m.ID(), alicePub))

	loaded, err := db.GetMessage(m.ID())
	require.NoError(t, err)
	loaded.SetDstSslPubKey(bobPub)

	text, err := loaded.Decrypt(bob)
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}
