package goAlert

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/goAlert/internal/audit"
)

// NoOpSink discards audit entries.
type NoOpSink = audit.NoOpSink

// ChannelSink forwards audit entries to a buffered channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON document per audit entry.
type JSONWriterSink = audit.JSONWriterSink

// MultiSink fans entries out to several sinks in order.
type MultiSink = audit.MultiSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a JSONWriterSink writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// AuditStore persists audit entries. Implementations live under store/.
type AuditStore interface {
	AppendAudit(ctx context.Context, entry AuditLogEntry) error
}

const storeSinkTimeout = 5 * time.Second

// StoreSink writes audit entries to an AuditStore. Write failures are
// logged and never reach the code path that produced the entry.
type StoreSink struct {
	store AuditStore
	log   *zap.Logger
}

// NewStoreSink returns a StoreSink. A nil logger discards failures.
func NewStoreSink(store AuditStore, log *zap.Logger) *StoreSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &StoreSink{store: store, log: log}
}

// Emit implements AuditSink. Writes without a caller deadline are bounded
// by a 5 second timeout.
func (s *StoreSink) Emit(ctx context.Context, entry AuditLogEntry) {
	if s == nil || s.store == nil {
		return
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, storeSinkTimeout)
		defer cancel()
	}
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		s.log.Error("audit write failed",
			zap.Error(err),
			zap.String("audit_id", entry.ID),
			zap.String("event_type", entry.EventType),
			zap.String("user_id", entry.UserID),
		)
	}
}
