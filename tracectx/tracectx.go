// Package tracectx establishes and propagates request correlation state:
// an X-Request-Id, a W3C trace-context traceparent, and an opaque
// tracestate. Malformed inbound values are silently replaced, never
// rejected; correlation must not be able to fail a request.
package tracectx

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Canonical header names.
const (
	HeaderRequestID   = "X-Request-Id"
	HeaderTraceparent = "Traceparent"
	HeaderTracestate  = "Tracestate"
)

const (
	traceparentLen = 55
	traceIDHexLen  = 32
	spanIDHexLen   = 16
	defaultFlags   = "01"
)

// RequestContext is the correlation state of one request. All fields are
// normalized: the traceparent, when present, is lowercase and structurally
// valid.
type RequestContext struct {
	RequestID   string
	Traceparent string
	TraceID     string
	Tracestate  string
}

// Ensure derives a complete RequestContext from inbound headers. A trimmed
// non-blank X-Request-Id is reused as-is; otherwise a fresh UUID is
// assigned. A structurally valid traceparent is preserved (normalized to
// lowercase); an absent or malformed one is regenerated with new random
// identifiers. Calling Ensure again on the headers it produced yields the
// same context.
func Ensure(h http.Header) RequestContext {
	rc := RequestContext{}

	if h != nil {
		rc.RequestID = strings.TrimSpace(h.Get(HeaderRequestID))
		rc.Tracestate = strings.TrimSpace(h.Get(HeaderTracestate))
		rc.Traceparent, rc.TraceID = normalizeTraceparent(h.Get(HeaderTraceparent))
	}

	if rc.RequestID == "" {
		rc.RequestID = uuid.NewString()
	}
	if rc.Traceparent == "" {
		rc.Traceparent, rc.TraceID = generateTraceparent()
	}

	return rc
}

// PropagationHeaders returns the headers a collaborator forwards downstream.
func (rc RequestContext) PropagationHeaders() http.Header {
	h := make(http.Header, 3)
	rc.Apply(h)
	return h
}

// Apply sets the correlation headers on h, replacing existing values.
// Suitable for both outbound requests and response mirroring.
func (rc RequestContext) Apply(h http.Header) {
	if h == nil {
		return
	}
	if rc.RequestID != "" {
		h.Set(HeaderRequestID, rc.RequestID)
	}
	if rc.Traceparent != "" {
		h.Set(HeaderTraceparent, rc.Traceparent)
	}
	if rc.Tracestate != "" {
		h.Set(HeaderTracestate, rc.Tracestate)
	}
}

// MergeUpstream folds correlation headers received from a downstream
// response back into rc. A non-blank X-Request-Id wins; a traceparent
// replaces the current one only when structurally valid; tracestate is
// left untouched.
func MergeUpstream(rc RequestContext, h http.Header) RequestContext {
	if h == nil {
		return rc
	}

	if id := strings.TrimSpace(h.Get(HeaderRequestID)); id != "" {
		rc.RequestID = id
	}
	if tp, traceID := normalizeTraceparent(h.Get(HeaderTraceparent)); tp != "" {
		rc.Traceparent = tp
		rc.TraceID = traceID
	}

	return rc
}

// normalizeTraceparent validates raw against the version-00 format
// "00-<32 hex>-<16 hex>-<2 hex>". Input hex is accepted case-insensitively
// and returned lowercase. All-zero trace or span identifiers are invalid.
// Returns ("", "") for anything unusable.
func normalizeTraceparent(raw string) (traceparent, traceID string) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if len(s) != traceparentLen {
		return "", ""
	}
	if s[2] != '-' || s[35] != '-' || s[52] != '-' {
		return "", ""
	}

	version := s[0:2]
	trace := s[3:35]
	span := s[36:52]
	flags := s[53:55]

	if version != "00" {
		return "", ""
	}
	if !isLowerHex(trace) || !isLowerHex(span) || !isLowerHex(flags) {
		return "", ""
	}
	if isAllZero(trace) || isAllZero(span) {
		return "", ""
	}

	return s, trace
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func isAllZero(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '0' {
			return false
		}
	}
	return true
}

// generateTraceparent builds a fresh version-00 traceparent with random
// trace and span identifiers and the sampled flag set.
func generateTraceparent() (traceparent, traceID string) {
	var buf [24]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand is effectively infallible; fall back to UUID bytes
		// rather than propagate an error out of correlation plumbing.
		a, b := uuid.New(), uuid.New()
		copy(buf[0:16], a[:])
		copy(buf[16:24], b[:8])
	}

	trace := hex.EncodeToString(buf[0:16])
	if isAllZero(trace) {
		buf[0] = 1
		trace = hex.EncodeToString(buf[0:16])
	}
	span := hex.EncodeToString(buf[16:24])
	if isAllZero(span) {
		buf[16] = 1
		span = hex.EncodeToString(buf[16:24])
	}

	return "00-" + trace + "-" + span + "-" + defaultFlags, trace
}
