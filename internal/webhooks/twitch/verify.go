package twitchwebhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// EventSub header names.
const (
	HeaderMessageID        = "Twitch-Eventsub-Message-Id"
	HeaderMessageTimestamp = "Twitch-Eventsub-Message-Timestamp"
	HeaderMessageSignature = "Twitch-Eventsub-Message-Signature"
	HeaderMessageType      = "Twitch-Eventsub-Message-Type"
)

// EventSub message types.
const (
	MessageTypeNotification = "notification"
	MessageTypeVerification = "webhook_callback_verification"
	MessageTypeRevocation   = "revocation"
)

const signaturePrefix = "sha256="

// maxTimestampSkew bounds replay: EventSub retries within minutes, so
// anything older is rejected.
const maxTimestampSkew = 10 * time.Minute

// Verifier checks EventSub message signatures against the subscription
// secret.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier builds a verifier for the given EventSub secret.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("eventsub secret is required")
	}
	return &Verifier{secret: []byte(secret), now: time.Now}, nil
}

// Verify checks the HMAC over message id + timestamp + body and rejects
// stale timestamps. The comparison is constant-time.
func (v *Verifier) Verify(messageID, timestamp string, body []byte, signature string) error {
	if messageID == "" || timestamp == "" {
		return errors.New("eventsub message headers missing")
	}
	if !strings.HasPrefix(signature, signaturePrefix) {
		return errors.New("eventsub signature malformed")
	}

	sentAt, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return errors.New("eventsub timestamp malformed")
	}
	if v.now().Sub(sentAt).Abs() > maxTimestampSkew {
		return errors.New("eventsub timestamp outside accepted window")
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(messageID))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	expected := signaturePrefix + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return errors.New("eventsub signature mismatch")
	}
	return nil
}
