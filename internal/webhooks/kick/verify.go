package kickwebhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// HeaderSignature carries the hex HMAC of the request body.
const HeaderSignature = "Kick-Event-Signature"

// Verifier checks Kick webhook signatures against the shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("kick webhook secret is required")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify checks the HMAC-SHA256 of the body in constant time.
func (v *Verifier) Verify(body []byte, signature string) error {
	if signature == "" {
		return errors.New("kick signature missing")
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return errors.New("kick signature mismatch")
	}
	return nil
}
