package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	goalert "github.com/MrEthical07/goAlert"
	"github.com/MrEthical07/goAlert/phi"
)

const (
	auditTable          = "audit_logs"
	securityEventsTable = "security_events"
	defaultAuditLimit   = 100
)

// auditDetails is the sealed part of an audit row.
type auditDetails struct {
	Action       string               `json:"action"`
	Outcome      goalert.AuditOutcome `json:"outcome"`
	RiskLevel    goalert.RiskLevel    `json:"risk_level"`
	ErrorMessage string               `json:"error_message,omitempty"`
	Metadata     map[string]string    `json:"metadata,omitempty"`
	Device       goalert.DeviceInfo   `json:"device_info"`
}

// AuditLog is the append-only audit_logs repository.
type AuditLog struct {
	q      Querier
	sealer *phi.Sealer
}

var _ goalert.AuditStore = (*AuditLog)(nil)

// NewAuditLog returns an AuditLog that seals details with sealer.
func NewAuditLog(q Querier, sealer *phi.Sealer) (*AuditLog, error) {
	if sealer == nil {
		return nil, errors.New("postgres: audit log requires a sealer")
	}
	return &AuditLog{q: q, sealer: sealer}, nil
}

// AppendAudit implements goalert.AuditStore.
func (r *AuditLog) AppendAudit(ctx context.Context, e goalert.AuditLogEntry) error {
	sealed, err := r.sealer.Seal(auditDetails{
		Action:       e.Action,
		Outcome:      e.Outcome,
		RiskLevel:    e.RiskLevel,
		ErrorMessage: e.ErrorMessage,
		Metadata:     e.Metadata,
		Device:       e.Device,
	})
	if err != nil {
		return fmt.Errorf("seal audit details: %w", err)
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}

	query, args, err := psql.Insert(auditTable).
		Columns("id", "user_id", "action", "details_encrypted", "timestamp", "user_agent", "ip_address").
		Values(id, nullable(e.UserID), e.EventType, sealed, ts, nullable(e.Device.UserAgent), nullable(e.Device.IP)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build append audit: %w", err)
	}
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// ListAudit returns userID's entries, newest first, with details opened.
func (r *AuditLog) ListAudit(ctx context.Context, userID string, limit int) ([]goalert.AuditLogEntry, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	query, args, err := psql.Select("id", "COALESCE(user_id, '')", "action", "details_encrypted", "timestamp").
		From(auditTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("timestamp DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list audit: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var out []goalert.AuditLogEntry
	for rows.Next() {
		var (
			e      goalert.AuditLogEntry
			sealed string
			d      auditDetails
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.EventType, &sealed, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		if err := r.sealer.Open(sealed, &d); err != nil {
			return nil, fmt.Errorf("open audit %s: %w", e.ID, err)
		}
		e.Action = d.Action
		e.Outcome = d.Outcome
		e.RiskLevel = d.RiskLevel
		e.ErrorMessage = d.ErrorMessage
		e.Metadata = d.Metadata
		e.Device = d.Device
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	return out, nil
}

// SecurityEvents is the security_events repository.
type SecurityEvents struct {
	q Querier
}

var _ goalert.SecurityEventWriter = (*SecurityEvents)(nil)

// NewSecurityEvents returns a repository over q.
func NewSecurityEvents(q Querier) *SecurityEvents {
	return &SecurityEvents{q: q}
}

// WriteBatch inserts events in one statement.
func (r *SecurityEvents) WriteBatch(ctx context.Context, events []goalert.SecurityEvent) error {
	if len(events) == 0 {
		return nil
	}
	b := psql.Insert(securityEventsTable).
		Columns("id", "user_id", "event_type", "severity", "details", "created_at")
	for _, ev := range events {
		details, err := marshalJSON(ev.Details)
		if err != nil {
			return fmt.Errorf("marshal security event details: %w", err)
		}
		ts := ev.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		b = b.Values(uuid.NewString(), nullable(ev.UserID), ev.Type, string(ev.Severity), details, ts)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build security events: %w", err)
	}
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("write security events: %w", err)
	}
	return nil
}
