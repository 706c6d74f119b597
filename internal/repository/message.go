package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/VtGoodgame/Chat-service/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// messageDB is the subset of pgxpool.Pool the repository uses.
type messageDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type MessageRepository struct {
	db messageDB
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: pool}
}

// Append stores a new message. The msg_id and timestamp are assigned here,
// never taken from the wire frame. Timestamps are true UTC; the original
// service shifted them +3h before storing, which we deliberately do not.
func (r *MessageRepository) Append(ctx context.Context, chatID string, senderID int64, content string) (*model.Message, error) {
	msg := &model.Message{
		MsgID:     uuid.NewString(),
		ChatID:    chatID,
		Content:   &content,
		SenderID:  senderID,
		Timestamp: time.Now().UTC(),
		Readers:   []model.Member{},
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO chat_messages (msg_id, chat_id, sender_id, content, ts, readers)
		VALUES ($1, $2, $3, $4, $5, '[]')
	`, msg.MsgID, msg.ChatID, msg.SenderID, msg.Content, msg.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("append message to chat %s: %w", chatID, err)
	}
	return msg, nil
}

// List returns one page of a chat's messages, newest first. A row that fails
// to scan or carries malformed readers JSON is logged and skipped; it never
// fails the whole page.
func (r *MessageRepository) List(ctx context.Context, chatID string, limit, offset int) ([]model.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx, `
		SELECT msg_id, chat_id, sender_id, content, ts, readers
		FROM chat_messages
		WHERE chat_id = $1
		ORDER BY ts DESC
		OFFSET $2 LIMIT $3
	`, chatID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages of chat %s: %w", chatID, err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		var readersRaw []byte
		if err := rows.Scan(&m.MsgID, &m.ChatID, &m.SenderID, &m.Content, &m.Timestamp, &readersRaw); err != nil {
			log.Printf("[Chat] skipping unreadable message row in chat %s: %v", chatID, err)
			continue
		}
		if err := json.Unmarshal(readersRaw, &m.Readers); err != nil {
			log.Printf("[Chat] skipping message %s with malformed readers: %v", m.MsgID, err)
			continue
		}
		if m.Readers == nil {
			m.Readers = []model.Member{}
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages of chat %s: %w", chatID, err)
	}

	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}
