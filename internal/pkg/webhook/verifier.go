package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Machine-readable rejection reasons, in the order checks run. The first
// failing check wins.
const (
	ReasonMissingSecret    = "missing-secret"
	ReasonMissingSignature = "missing-signature"
	ReasonMissingTimestamp = "missing-timestamp"
	ReasonMissingEventID   = "missing-event-id"
	ReasonInvalidTimestamp = "invalid-timestamp"
	ReasonStaleTimestamp   = "stale-timestamp"
	ReasonInvalidSignature = "invalid-signature"
	ReasonDuplicateEvent   = "duplicate-event"
)

// MaxWebhookAge bounds how far a webhook timestamp may drift from the local
// clock in either direction.
const MaxWebhookAge = 5 * time.Minute

// VerifyInput is the ephemeral webhook envelope handed to Verify. Timestamp
// carries the raw header value in epoch milliseconds.
type VerifyInput struct {
	Provider     string
	RawBody      []byte
	Signature    string
	Timestamp    string
	EventID      string
	SharedSecret string
	Now          time.Time
}

// VerifyResult reports either acceptance with the parsed timestamp or the
// first rejection reason.
type VerifyResult struct {
	OK        bool
	Reason    string
	Timestamp time.Time
	EventID   string
}

// Verifier authenticates inbound webhooks and guards against replays. The
// replay store is consulted only after the signature has been validated, so
// unauthenticated traffic can never probe or pollute it.
type Verifier struct {
	replay ReplayStore
}

func NewVerifier(replay ReplayStore) *Verifier {
	return &Verifier{replay: replay}
}

// Verify runs the check chain: secret, envelope fields, timestamp parse and
// freshness, HMAC signature, replay. A non-nil error means the replay store
// itself failed; callers must treat that as a rejection, not a pass.
func (v *Verifier) Verify(ctx context.Context, in VerifyInput) (VerifyResult, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	if in.SharedSecret == "" {
		return rejected(ReasonMissingSecret), nil
	}
	if in.Signature == "" {
		return rejected(ReasonMissingSignature), nil
	}
	if in.Timestamp == "" {
		return rejected(ReasonMissingTimestamp), nil
	}
	if in.EventID == "" {
		return rejected(ReasonMissingEventID), nil
	}

	timestampMs, err := strconv.ParseInt(strings.TrimSpace(in.Timestamp), 10, 64)
	if err != nil {
		return rejected(ReasonInvalidTimestamp), nil
	}
	timestamp := time.UnixMilli(timestampMs)

	drift := now.Sub(timestamp)
	if drift < 0 {
		drift = -drift
	}
	if drift > MaxWebhookAge {
		return rejected(ReasonStaleTimestamp), nil
	}

	expected := ComputeSignature(in.SharedSecret, in.Timestamp, in.RawBody)
	if !signaturesMatch(expected, in.Signature) {
		return rejected(ReasonInvalidSignature), nil
	}

	fresh, err := v.replay.CheckAndRecord(ctx, EventKey(in.Provider, in.EventID), now)
	if err != nil {
		return VerifyResult{}, err
	}
	if !fresh {
		return rejected(ReasonDuplicateEvent), nil
	}

	return VerifyResult{OK: true, Timestamp: timestamp, EventID: in.EventID}, nil
}

// EventKey scopes an event id by its provider; two envelopes with the same
// key are the same logical event regardless of body differences.
func EventKey(provider, eventID string) string {
	return provider + ":" + eventID
}

// ComputeSignature returns the hex HMAC-SHA256 over "{timestamp}.{rawBody}".
func ComputeSignature(secret, timestamp string, rawBody []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'.'})
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}

// signaturesMatch compares two hex signatures in constant time. Unequal or
// zero lengths fail fast without a timing-safe comparison.
func signaturesMatch(expectedHex, providedHex string) bool {
	expected, err := hex.DecodeString(expectedHex)
	if err != nil {
		return false
	}
	provided, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(providedHex)))
	if err != nil {
		return false
	}
	if len(expected) == 0 || len(expected) != len(provided) {
		return false
	}
	return hmac.Equal(expected, provided)
}

func rejected(reason string) VerifyResult {
	return VerifyResult{OK: false, Reason: reason}
}
