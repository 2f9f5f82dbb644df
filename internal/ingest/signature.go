package ingest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha256="

// VerifySignature checks an X-Hub-Signature-256 header value against the
// request body using the shared app secret. Comparison is constant-time.
func VerifySignature(body []byte, header, appSecret string) bool {
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	provided := strings.TrimPrefix(header, signaturePrefix)

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(provided))
}
