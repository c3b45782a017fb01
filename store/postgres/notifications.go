package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/MrEthical07/goAlert/notify"
)

const notificationsTable = "notifications"

var notificationColumns = []string{
	"id",
	"recipient_id",
	"COALESCE(sender_id, '')",
	"type",
	"title",
	"message",
	"priority",
	"data",
	"created_at",
	"read_at",
}

// Notifications is the notifications repository.
type Notifications struct {
	q Querier
}

var _ notify.Store = (*Notifications)(nil)

// NewNotifications returns a repository over q.
func NewNotifications(q Querier) *Notifications {
	return &Notifications{q: q}
}

// Insert implements notify.Store.
func (r *Notifications) Insert(ctx context.Context, n notify.Notification) error {
	data, err := marshalJSON(n.Data)
	if err != nil {
		return fmt.Errorf("marshal notification data: %w", err)
	}
	query, args, err := psql.Insert(notificationsTable).
		Columns("id", "recipient_id", "sender_id", "type", "title", "message", "priority", "data", "created_at").
		Values(n.ID, n.RecipientID, nullable(n.SenderID), n.Type, n.Title, n.Message, string(n.Priority), data, n.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert notification: %w", err)
	}
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// Get implements notify.Store.
func (r *Notifications) Get(ctx context.Context, id string) (notify.Notification, error) {
	query, args, err := psql.Select(notificationColumns...).
		From(notificationsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return notify.Notification{}, fmt.Errorf("build get notification: %w", err)
	}

	n, err := scanNotification(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notify.Notification{}, notify.ErrNotFound
		}
		return notify.Notification{}, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// List returns recipientID's notifications, newest first.
func (r *Notifications) List(ctx context.Context, recipientID string, opts notify.ListOptions) ([]notify.Notification, error) {
	b := psql.Select(notificationColumns...).
		From(notificationsTable).
		Where(sq.Eq{"recipient_id": recipientID}).
		OrderBy("created_at DESC", "id DESC")
	if opts.UnreadOnly {
		b = b.Where(sq.Eq{"read_at": nil})
	}
	if opts.Limit > 0 {
		b = b.Limit(uint64(opts.Limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list notifications: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]notify.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

// MarkRead sets read_at only while it is still null. It reports false
// without error when the row was already read.
func (r *Notifications) MarkRead(ctx context.Context, id, recipientID string, at time.Time) (bool, error) {
	query, args, err := psql.Update(notificationsTable).
		Set("read_at", at).
		Where(sq.And{sq.Eq{"id": id}, sq.Eq{"recipient_id": recipientID}, sq.Eq{"read_at": nil}}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build mark read: %w", err)
	}
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("mark read: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	exists, args, err := psql.Select("1").
		From(notificationsTable).
		Where(sq.And{sq.Eq{"id": id}, sq.Eq{"recipient_id": recipientID}}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build notification exists: %w", err)
	}
	var found bool
	if err := r.q.QueryRow(ctx, exists, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("notification exists: %w", err)
	}
	if !found {
		return false, notify.ErrNotFound
	}
	return false, nil
}

func scanNotification(row pgx.Row) (notify.Notification, error) {
	var (
		n        notify.Notification
		priority string
		data     []byte
	)
	if err := row.Scan(&n.ID, &n.RecipientID, &n.SenderID, &n.Type, &n.Title, &n.Message, &priority, &data, &n.CreatedAt, &n.ReadAt); err != nil {
		return notify.Notification{}, err
	}
	n.Priority = notify.Priority(priority)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return notify.Notification{}, fmt.Errorf("decode notification data: %w", err)
		}
	}
	return n, nil
}
