package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"go.uber.org/zap"
)

// Verifier checks X-Razorpay-Signature headers against the webhook secret.
type Verifier struct {
	secret []byte
	logger *zap.Logger
}

func NewVerifier(webhookSecret string, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{secret: []byte(webhookSecret), logger: logger}
}

// Verify reports whether signatureHex is exactly the lower case hex
// HMAC-SHA256 of body. It never panics; malformed input is simply a mismatch.
func (v *Verifier) Verify(body []byte, signatureHex string) bool {
	if len(v.secret) == 0 {
		v.logger.Error("webhook secret not configured")
		return false
	}
	if signatureHex == "" {
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	// hmac.Equal is constant time for equal lengths and false otherwise
	if !hmac.Equal([]byte(expected), []byte(signatureHex)) {
		v.logger.Warn("webhook signature mismatch",
			zap.Int("length", len(signatureHex)),
			zap.Bool("length_ok", len(signatureHex) == len(expected)),
		)
		return false
	}
	return true
}

// Sign returns the hex signature the provider would send for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
