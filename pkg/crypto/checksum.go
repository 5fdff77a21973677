package crypto

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"

	"golang.org/x/crypto/ripemd160"

	"github.com/ZentaChain/zentalk-msgcore/pkg/protocol"
)

// ChecksumInput is everything a message checksum is derived from
type ChecksumInput struct {
	Version      int
	ID           string
	SrcNodeID    string
	DstNodeID    string
	DstPublicKey []byte // recipient public key PEM
	Text         string // plaintext body
	TimeCreated  int64
	Key          string // message key in its base64 text form
}

// MessageChecksum computes the 48 hex character fingerprint of a message:
//
//	fp  = RIPEMD160(HMAC-SHA512(key, json))
//	sum = SHA512(hex(SHA512(fp)))[:8]
//
// and returns hex(fp) + sum. The JSON object holds version, id, srcNodeId,
// dstNodeId, dstSslPubKey and text (both base64) and timeCreated, in that
// order. The key is never part of the JSON.
func MessageChecksum(in ChecksumInput) (string, error) {
	data, err := protocol.EncodeObject([]protocol.Field{
		{Key: "version", Value: in.Version},
		{Key: "id", Value: in.ID},
		{Key: "srcNodeId", Value: in.SrcNodeID},
		{Key: "dstNodeId", Value: in.DstNodeID},
		{Key: "dstSslPubKey", Value: base64.StdEncoding.EncodeToString(in.DstPublicKey)},
		{Key: "text", Value: base64.StdEncoding.EncodeToString([]byte(in.Text))},
		{Key: "timeCreated", Value: in.TimeCreated},
	})
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha512.New, []byte(in.Key))
	mac.Write(data)
	digest := mac.Sum(nil)

	rmd := ripemd160.New()
	rmd.Write(digest)
	fingerprint := rmd.Sum(nil)

	// second stage hashes the hex text of the first digest, not its bytes
	first := sha512.Sum512(fingerprint)
	second := sha512.Sum512([]byte(hex.EncodeToString(first[:])))

	return hex.EncodeToString(fingerprint) + hex.EncodeToString(second[:])[:8], nil
}

// IsChecksum reports whether s has the shape of a message checksum
func IsChecksum(s string) bool {
	if len(s) != protocol.ChecksumLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
