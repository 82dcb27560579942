package service

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"

	perr "codefrog/internal/platform/errors"
)

// VerifySignature checks the X-Hub-Signature header against the request
// body. The provider signs with HMAC-SHA1 and sends "sha1=<hex>".
func VerifySignature(secret, body []byte, header string) error {
	if len(secret) == 0 {
		return perr.Internalf("webhook secret not configured")
	}
	mac := hmac.New(sha1.New, secret)
	mac.Write(body)
	want := "sha1=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(want), []byte(header)) {
		return perr.Unauthorizedf("webhook signature mismatch")
	}
	return nil
}
