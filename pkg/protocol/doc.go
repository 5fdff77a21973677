// Package protocol defines the message envelope format shared by every
// node of the store-and-forward chat network.
//
// # Envelopes
//
// A message travels with two opaque text fields, password and body. Both are
// "armored": a JSON object, gzip-compressed at the best level, then base64
// encoded.
//
//   - password: {"password": b64(RSA(key)), "sign": b64(sig(key)), "signAlgo": 1}
//   - body:     {"data": b64(AES-256-CBC(gzip(content))), "iv": b64(iv)}
//   - content:  {"subject","text","sign","signAlgo","srcUserNickname","ignore"}
//     with subject, text and nickname base64 encoded
//
// The message key is base64 text of 256 random bytes and is used in that
// text form everywhere (signature input, HMAC key, AES passphrase).
//
// # JSON
//
// Objects are written by EncodeObject with a fixed key order and PHP
// json_encode escaping. Older nodes hash this exact text for the message
// checksum, so it must not be replaced by encoding/json output.
//
// # Status codes
//
//   - U unread, received from another node
//   - O origin, created locally
//   - S sent to at least one node
//   - D delivered to the destination (terminal)
//   - R read
//   - X abandoned after reaching forwarding limits
package protocol
