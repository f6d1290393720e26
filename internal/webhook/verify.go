package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

const signaturePrefix = "v0="

// encryptToken computes HMAC-SHA256(secret, plainToken) in hex, per spec
// §4.6's URL validation handshake.
func encryptToken(secret, plainToken string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(plainToken))

	return hex.EncodeToString(mac.Sum(nil))
}

// verifySignature implements spec §4.6: expected = "v0=" +
// hex(HMAC-SHA256(secret, "v0:" + timestamp + ":" + body)), compared
// against provided using constant-time byte comparison. A plain == would
// leak timing information about how many leading bytes match, letting an
// attacker recover the signature one byte at a time — this is the one
// ambient concern where the standard library, not a third-party library, is
// the idiomatic choice even measured against the pack; no example repo
// reaches for an HMAC wrapper.
func verifySignature(secret, timestamp, body, provided string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + timestamp + ":" + body))

	expected := signaturePrefix + hex.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
