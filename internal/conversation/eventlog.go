package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/atendezap/atendezap/internal/session"
)

// EventLogDB is the slice of pgxpool.Pool the event log needs.
type EventLogDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EventLog persists every user/bot exchange to Postgres for long-term
// history, independent of the TTL-bound session.
type EventLog struct {
	db EventLogDB
}

// NewEventLog creates the exchange log.
func NewEventLog(db EventLogDB) *EventLog {
	return &EventLog{db: db}
}

var _ ExchangeLogger = (*EventLog)(nil)

// conversationKey identifies one thread: "wa:{businessID}:{phone}".
func conversationKey(businessID uuid.UUID, phone string) string {
	return fmt.Sprintf("wa:%s:%s", businessID, phone)
}

// AppendExchange records one user message and the bot reply (when any),
// creating the conversation row on first contact.
func (l *EventLog) AppendExchange(ctx context.Context, businessID uuid.UUID, phone, userText, botText string) error {
	key := conversationKey(businessID, phone)
	convID, err := l.ensureConversation(ctx, key, businessID, phone)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := l.appendMessage(ctx, convID, session.RoleUser, userText, now); err != nil {
		return err
	}
	if botText != "" {
		if err := l.appendMessage(ctx, convID, session.RoleBot, botText, now); err != nil {
			return err
		}
	}

	_, err = l.db.Exec(ctx, `
		UPDATE conversations SET last_message_at = $2, updated_at = $2
		WHERE id = $1`, convID, now)
	if err != nil {
		return fmt.Errorf("conversation: update last activity: %w", err)
	}
	return nil
}

// RecentMessages returns the newest messages of a thread, oldest first.
func (l *EventLog) RecentMessages(ctx context.Context, businessID uuid.UUID, phone string, limit int) ([]session.HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.Query(ctx, `
		SELECT m.role, m.content, m.created_at
		FROM conversation_messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.conversation_key = $1
		ORDER BY m.created_at DESC
		LIMIT $2`, conversationKey(businessID, phone), limit)
	if err != nil {
		return nil, fmt.Errorf("conversation: load messages: %w", err)
	}
	defer rows.Close()

	var entries []session.HistoryEntry
	for rows.Next() {
		var e session.HistoryEntry
		if err := rows.Scan(&e.Role, &e.Content, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("conversation: scan message: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first query, oldest-first result.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (l *EventLog) ensureConversation(ctx context.Context, key string, businessID uuid.UUID, phone string) (uuid.UUID, error) {
	var id uuid.UUID
	err := l.db.QueryRow(ctx,
		`SELECT id FROM conversations WHERE conversation_key = $1`, key).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("conversation: look up thread: %w", err)
	}

	id = uuid.New()
	now := time.Now().UTC()
	_, err = l.db.Exec(ctx, `
		INSERT INTO conversations (id, conversation_key, business_id, phone, channel, started_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'whatsapp', $5, $5, $5)
		ON CONFLICT (conversation_key) DO NOTHING`,
		id, key, businessID, phone, now)
	if err != nil {
		return uuid.Nil, fmt.Errorf("conversation: create thread: %w", err)
	}

	// A concurrent insert may have won the conflict; re-read either way.
	if err := l.db.QueryRow(ctx,
		`SELECT id FROM conversations WHERE conversation_key = $1`, key).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("conversation: re-read thread: %w", err)
	}
	return id, nil
}

func (l *EventLog) appendMessage(ctx context.Context, convID uuid.UUID, role, content string, ts time.Time) error {
	_, err := l.db.Exec(ctx, `
		INSERT INTO conversation_messages (id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), convID, role, content, ts)
	if err != nil {
		return fmt.Errorf("conversation: insert message: %w", err)
	}
	return nil
}
