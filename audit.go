package authedge

import (
	"context"
	"errors"
	"io"

	"github.com/caldercay/authedge/internal/audit"
	"github.com/caldercay/authedge/tracectx"
	"go.uber.org/zap"
)

// Audit event types emitted by the engine.
const (
	AuditLoginSuccess         = "login_success"
	AuditLoginFailure         = "login_failure"
	AuditSessionIssued        = "session_issued"
	AuditSessionVerifySuccess = "session_verify_success"
	AuditSessionVerifyFailure = "session_verify_failure"
	AuditSessionRotated       = "session_rotated"
	AuditCSRFRejected         = "csrf_rejected"
	AuditLogout               = "logout"
)

// AuditEvent and AuditSink re-export the internal audit model so callers can
// plug sinks without importing an internal package.
type (
	AuditEvent = audit.Event
	AuditSink  = audit.Sink
)

// NewJSONAuditSink writes one JSON event per line to w.
func NewJSONAuditSink(w io.Writer) AuditSink {
	return audit.NewJSONWriterSink(w)
}

// NewZapAuditSink logs events through a zap logger; failures at warn level.
func NewZapAuditSink(logger *zap.Logger) AuditSink {
	return audit.NewZapSink(logger)
}

// NewChannelAuditSink buffers events in a channel, mostly for tests.
func NewChannelAuditSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// emitAudit fills in timestamp and request correlation and hands the event
// to the dispatcher. Event payloads never include credentials; err is
// reduced to a stable code string.
func (e *Engine) emitAudit(ctx context.Context, eventType, userID string, success bool, err error, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := audit.Event{
		Timestamp: e.now(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Error:     auditErrorCode(err),
		Metadata:  metadata,
	}
	if rc, ok := tracectx.FromContext(ctx); ok {
		event.RequestID = rc.RequestID
		event.TraceID = rc.TraceID
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrCSRFRejected):
		return "csrf_rejected"
	case errors.Is(err, ErrInvalidUserID):
		return "invalid_user_id"
	case errors.Is(err, ErrEngineNotReady):
		return "engine_not_ready"
	default:
		return "internal_error"
	}
}
