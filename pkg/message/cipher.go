package message

import (
	"crypto/rsa"
	"crypto/subtle"

	"go.uber.org/zap"

	"github.com/ZentaChain/zentalk-msgcore/pkg/crypto"
	"github.com/ZentaChain/zentalk-msgcore/pkg/protocol"
)

// Encrypt seals subject, text, nickname and the ignore flag for the
// recipient whose public key is set with SetDstSslPubKey, signing both the
// message key and the text with key. On success password, body and checksum
// are replaced together; on failure the record is left untouched.
//
// key is only borrowed for the duration of the call.
func (m *Message) Encrypt(key *rsa.PrivateKey) error {
	const op = "encrypt"

	m.mu.Lock()
	defer m.mu.Unlock()

	if key == nil {
		return opError(op, ErrSigningKeyMissing, nil)
	}
	if len(m.dstSslPubKey) == 0 {
		return opError(op, ErrDstPublicKeyMissing, nil)
	}

	dstKey, err := crypto.ImportPublicKeyPEM(m.dstSslPubKey)
	if err != nil {
		return opError(op, ErrKeyWrap, err)
	}

	msgKey, err := crypto.GenerateMessageKey(m.rand)
	if err != nil {
		return opError(op, ErrKeyGeneration, err)
	}

	// Password envelope: the message key wrapped for the recipient
	keySig, err := crypto.SignData([]byte(msgKey), key, protocol.DefaultSignAlgo)
	if err != nil {
		return opError(op, ErrKeySign, err)
	}

	wrappedKey, err := crypto.RSAEncrypt([]byte(msgKey), dstKey)
	if err != nil {
		return opError(op, ErrKeyWrap, err)
	}

	passwordEnv := &protocol.PasswordEnvelope{
		EncryptedKey: wrappedKey,
		Signature:    keySig,
		SignAlgo:     protocol.DefaultSignAlgo,
	}
	passwordJSON, err := passwordEnv.Marshal()
	if err != nil {
		return opError(op, ErrEnvelopeEncode, err)
	}
	password, err := protocol.Armor(passwordJSON)
	if err != nil {
		return opError(op, ErrEnvelopeEncode, err)
	}

	// Content envelope: signed plaintext
	textSig, err := crypto.SignData([]byte(m.text), key, protocol.DefaultSignAlgo)
	if err != nil {
		return opError(op, ErrTextSign, err)
	}

	contentEnv := &protocol.ContentEnvelope{
		Subject:         m.subject,
		Text:            m.text,
		Signature:       textSig,
		SignAlgo:        protocol.DefaultSignAlgo,
		SrcUserNickname: m.srcUserNickname,
		Ignore:          m.ignore,
	}
	contentJSON, err := contentEnv.Marshal()
	if err != nil {
		return opError(op, ErrEnvelopeEncode, err)
	}
	compressed, err := protocol.Compress(contentJSON)
	if err != nil {
		return opError(op, ErrEnvelopeEncode, err)
	}

	// Body envelope: content encrypted with the message key
	iv, err := crypto.GenerateIV(m.rand)
	if err != nil {
		return opError(op, ErrIVGeneration, err)
	}

	data, err := crypto.AESCBCEncrypt(compressed, msgKey, iv)
	if err != nil {
		return opError(op, ErrBodyEncrypt, err)
	}

	bodyEnv := &protocol.BodyEnvelope{Data: data, IV: iv}
	bodyJSON, err := bodyEnv.Marshal()
	if err != nil {
		return opError(op, ErrEnvelopeEncode, err)
	}
	body, err := protocol.Armor(bodyJSON)
	if err != nil {
		return opError(op, ErrEnvelopeEncode, err)
	}

	in := m.checksumInput(m.text, msgKey)
	checksum, err := crypto.MessageChecksum(in)
	if err != nil {
		return opError(op, ErrChecksumInput, err)
	}

	m.password = password
	m.body = body
	m.checksum = checksum

	if m.trace {
		m.log().Debug("message encrypted", traceFields(in, checksum)...)
	}

	return nil
}

// Decrypt opens a message addressed to key's owner. The sender public key
// (SetSrcSslKeyPub) verifies both signatures; the recipient public key
// (SetDstSslPubKey) only feeds the checksum. The id must already be set. On
// success subject, nickname, ignore and text are populated and the text is
// returned.
//
// key is only borrowed for the duration of the call.
func (m *Message) Decrypt(key *rsa.PrivateKey) (string, error) {
	const op = "decrypt"

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case key == nil:
		return "", opError(op, ErrDecryptionKeyMissing, nil)
	case len(m.srcSslKeyPub) == 0:
		return "", opError(op, ErrSrcPublicKeyMissing, nil)
	case m.dstNodeID == "":
		return "", opError(op, ErrDstNodeIDMissing, nil)
	case len(m.dstSslPubKey) == 0:
		return "", opError(op, ErrDstPublicKeyUnset, nil)
	case m.password == "":
		return "", opError(op, ErrPasswordMissing, nil)
	case m.checksum == "":
		return "", opError(op, ErrChecksumMissing, nil)
	case m.id == "":
		return "", opError(op, ErrIDMissing, nil)
	}

	srcKey, err := crypto.ImportPublicKeyPEM(m.srcSslKeyPub)
	if err != nil {
		return "", opError(op, ErrSrcPublicKeyInvalid, err)
	}

	// Recover and authenticate the message key
	passwordJSON, err := protocol.Unarmor(m.password)
	if err != nil {
		return "", opError(op, ErrPasswordEnvelope, err)
	}
	passwordEnv, err := protocol.UnmarshalPasswordEnvelope(passwordJSON)
	if err != nil {
		return "", opError(op, ErrPasswordEnvelope, err)
	}

	candidate, err := crypto.RSADecrypt(passwordEnv.EncryptedKey, key)
	if err != nil {
		return "", opError(op, ErrKeyUnwrap, err)
	}
	if err := crypto.VerifySignature(candidate, passwordEnv.Signature, srcKey, passwordEnv.SignAlgo); err != nil {
		return "", opError(op, ErrKeySignature, err)
	}
	msgKey := string(candidate)

	// Open the body
	bodyJSON, err := protocol.Unarmor(m.body)
	if err != nil {
		return "", opError(op, ErrBodyEnvelope, err)
	}
	bodyEnv, err := protocol.UnmarshalBodyEnvelope(bodyJSON)
	if err != nil {
		return "", opError(op, ErrBodyEnvelope, err)
	}

	compressed, err := crypto.AESCBCDecrypt(bodyEnv.Data, msgKey, bodyEnv.IV)
	if err != nil {
		return "", opError(op, ErrBodyDecrypt, err)
	}

	contentJSON, err := protocol.Decompress(compressed)
	if err != nil {
		return "", opError(op, ErrContentEnvelope, err)
	}
	content, err := protocol.UnmarshalContentEnvelope(contentJSON)
	if err != nil {
		return "", opError(op, ErrContentEnvelope, err)
	}

	if err := crypto.VerifySignature([]byte(content.Text), content.Signature, srcKey, content.SignAlgo); err != nil {
		return "", opError(op, ErrTextSignature, err)
	}

	// Bind the plaintext to the record metadata
	in := m.checksumInput(content.Text, msgKey)
	checksum, err := crypto.MessageChecksum(in)
	if err != nil {
		return "", opError(op, ErrChecksumInput, err)
	}

	if subtle.ConstantTimeCompare([]byte(checksum), []byte(m.checksum)) != 1 {
		mismatch := &ChecksumMismatchError{
			Expected:     m.checksum,
			Actual:       checksum,
			Version:      in.Version,
			ID:           in.ID,
			SrcNodeID:    in.SrcNodeID,
			DstNodeID:    in.DstNodeID,
			DstPublicKey: in.DstPublicKey,
			Subject:      content.Subject,
			Text:         content.Text,
			TimeCreated:  in.TimeCreated,
			Key:          msgKey,
		}
		m.log().Warn("message checksum does not match",
			zap.String("id", in.ID),
			zap.String("srcNodeId", in.SrcNodeID),
			zap.String("dstNodeId", in.DstNodeID),
		)
		if m.trace {
			m.log().Debug("checksum mismatch context", mismatch.LogFields()...)
		}
		return "", opError(op, ErrChecksumMismatch, mismatch)
	}

	m.subject = content.Subject
	m.srcUserNickname = content.SrcUserNickname
	m.ignore = content.Ignore
	m.text = content.Text

	if m.trace {
		m.log().Debug("message decrypted", traceFields(in, checksum)...)
	}

	return content.Text, nil
}

func (m *Message) checksumInput(text, msgKey string) crypto.ChecksumInput {
	return crypto.ChecksumInput{
		Version:      m.version,
		ID:           m.idLocked(),
		SrcNodeID:    m.srcNodeID,
		DstNodeID:    m.dstNodeID,
		DstPublicKey: m.dstSslPubKey,
		Text:         text,
		TimeCreated:  m.timeCreated,
		Key:          msgKey,
	}
}

func traceFields(in crypto.ChecksumInput, checksum string) []zap.Field {
	return []zap.Field{
		zap.String("checksum", checksum),
		zap.Int("version", in.Version),
		zap.String("id", in.ID),
		zap.String("srcNodeId", in.SrcNodeID),
		zap.String("dstNodeId", in.DstNodeID),
		zap.ByteString("dstSslPubKey", in.DstPublicKey),
		zap.String("text", in.Text),
		zap.Int64("timeCreated", in.TimeCreated),
		zap.String("password", in.Key),
	}
}

func (m *Message) log() *zap.Logger {
	if m.logger == nil {
		return zap.NewNop()
	}
	return m.logger
}
