package message

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/zentalk-msgcore/pkg/crypto"
)

// party is a node identity used by the tests
type party struct {
	nodeID string
	key    *rsa.PrivateKey
	pubPEM []byte
}

var (
	partiesOnce sync.Once
	parties     map[string]*party
	partiesErr  error
)

// testParties returns alice, bob and mallory. 3072-bit keys are the smallest
// that can wrap a message key and keep the suite quick.
func testParties(t *testing.T) (alice, bob, mallory *party) {
	t.Helper()
	partiesOnce.Do(func() {
		parties = make(map[string]*party)
		for _, name := range []string{"alice", "bob", "mallory"} {
			key, err := rsa.GenerateKey(rand.Reader, 3072)
			if err != nil {
				partiesErr = err
				return
			}
			pub, err := crypto.ExportPublicKeyPEM(&key.PublicKey)
			if err != nil {
				partiesErr = err
				return
			}
			parties[name] = &party{nodeID: "node-" + name, key: key, pubPEM: pub}
		}
	})
	require.NoError(t, partiesErr)
	return parties["alice"], parties["bob"], parties["mallory"]
}

// draft builds an unsealed message from alice to bob
func draft(t *testing.T) *Message {
	t.Helper()
	alice, bob, _ := testParties(t)

	m := New()
	m.SetSrcNodeID(alice.nodeID)
	m.SetDstNodeID(bob.nodeID)
	m.SetDstSslPubKey(bob.pubPEM)
	m.SetSubject("hi")
	m.SetText("hello world")
	m.SetSrcUserNickname("alice")
	m.SetTimeCreated(1000)
	m.SetEncryptionMode("D")
	return m
}

// sealed encrypts a draft with alice's key
func sealed(t *testing.T) *Message {
	t.Helper()
	alice, _, _ := testParties(t)

	m := draft(t)
	require.NoError(t, m.Encrypt(alice.key))
	return m
}

// received rebuilds a sealed message the way bob's node sees it: from its
// record, with the key material supplied again.
func received(t *testing.T, m *Message) *Message {
	t.Helper()
	alice, bob, _ := testParties(t)

	r, err := FromRecord(m.Record())
	require.NoError(t, err)
	r.SetSrcSslKeyPub(alice.pubPEM)
	r.SetDstSslPubKey(bob.pubPEM)
	return r
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}
