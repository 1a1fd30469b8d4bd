package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Signature headers
const (
	HeaderTimestamp = "X-Reconcile-Timestamp"
	HeaderNonce     = "X-Reconcile-Nonce"
	HeaderSignature = "X-Reconcile-Signature"
)

// DefaultTimestampWindow is the maximum accepted age of a signed request
const DefaultTimestampWindow = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("request is not signed")
	ErrBadTimestamp     = errors.New("signature timestamp is invalid or outside the accepted window")
	ErrBadSignature     = errors.New("signature does not match")
)

// RequestSigner computes HMAC-SHA256 signatures with a shared secret
type RequestSigner struct {
	secret []byte
	now    func() time.Time
}

// NewRequestSigner returns nil when secret is empty; a nil signer signs nothing
func NewRequestSigner(secret string) *RequestSigner {
	if secret == "" {
		return nil
	}
	return &RequestSigner{secret: []byte(secret), now: time.Now}
}

// Sign sets the signature headers of req for body
func (s *RequestSigner) Sign(req *http.Request, body []byte) {
	if s == nil {
		return
	}
	ts := strconv.FormatInt(s.now().Unix(), 10)
	nonce := uuid.NewString()
	req.Header.Set(HeaderTimestamp, ts)
	req.Header.Set(HeaderNonce, nonce)
	req.Header.Set(HeaderSignature, s.signature(ts, nonce, body))
}

// Verify checks headers against body. Requests older or newer than window
// are rejected.
func (s *RequestSigner) Verify(h http.Header, body []byte, window time.Duration) error {
	ts, nonce, sig := h.Get(HeaderTimestamp), h.Get(HeaderNonce), h.Get(HeaderSignature)
	if ts == "" || nonce == "" || sig == "" {
		return ErrMissingSignature
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrBadTimestamp
	}
	age := s.now().Sub(time.Unix(unix, 0))
	if age > window || age < -window {
		return ErrBadTimestamp
	}

	want, err := hex.DecodeString(sig)
	if err != nil {
		return ErrBadSignature
	}
	got, _ := hex.DecodeString(s.signature(ts, nonce, body))
	if !hmac.Equal(got, want) {
		return ErrBadSignature
	}
	return nil
}

func (s *RequestSigner) signature(ts, nonce string, body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(ts))
	mac.Write([]byte{'.'})
	mac.Write([]byte(nonce))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
