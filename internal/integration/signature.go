package integration

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// VerifyHexHMAC checks an HMAC-SHA256 signature rendered as a hex string,
// the scheme GitHub uses for X-Hub-Signature-256 (spec §4.6). prefix is
// stripped if present (GitHub sends "sha256=<hex>").
func VerifyHexHMAC(secret, body []byte, header, prefix string) bool {
	sig := header
	if prefix != "" && len(header) > len(prefix) && header[:len(prefix)] == prefix {
		sig = header[len(prefix):]
	}
	expected := hmacHex(secret, body)
	return constantTimeHexEqual(expected, sig)
}

// VerifyBase64HMAC checks an HMAC-SHA256 signature rendered as base64,
// the scheme Line uses for X-Line-Signature.
func VerifyBase64HMAC(secret, body []byte, header string) bool {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}

// VerifySharedSecret checks a plain shared-secret header, the scheme
// GitLab uses (X-Gitlab-Token): no hashing, just a constant-time compare.
func VerifySharedSecret(secret []byte, header string) bool {
	return hmac.Equal(secret, []byte(header))
}

func hmacHex(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func constantTimeHexEqual(expected, got string) bool {
	e, errE := hex.DecodeString(expected)
	g, errG := hex.DecodeString(got)
	if errE != nil || errG != nil {
		return false
	}
	return hmac.Equal(e, g)
}
