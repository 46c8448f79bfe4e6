package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// ValidSignature checks an X-Line-Signature header: the base64 HMAC-SHA256
// of the raw body keyed by the channel secret.
func ValidSignature(secret []byte, body []byte, header string) bool {
	if header == "" {
		return false
	}
	expected, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return false
	}
	return hmac.Equal(Sign(secret, body), expected)
}

// Sign returns the raw HMAC-SHA256 digest of body.
func Sign(secret []byte, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}
