package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/VtGoodgame/Chat-service/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a chat does not exist.
var ErrNotFound = errors.New("chat not found")

type ChatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

// FindByMembers returns the id of a chat of the given type that both users
// participate in. Membership is matched as a set; the caller's order of ids
// does not matter.
func (r *ChatRepository) FindByMembers(ctx context.Context, userA, userB int64, chatType string) (string, error) {
	var chatID string
	err := r.pool.QueryRow(ctx, `
		SELECT c.chat_id FROM chats c
		WHERE c.chat_type = $3
		  AND EXISTS (SELECT 1 FROM chat_members m WHERE m.chat_id = c.chat_id AND m.user_id = $1)
		  AND EXISTS (SELECT 1 FROM chat_members m WHERE m.chat_id = c.chat_id AND m.user_id = $2)
		LIMIT 1
	`, userA, userB, chatType).Scan(&chatID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("find chat by members: %w", err)
	}
	return chatID, nil
}

// UpsertMember creates the chat with defaults if it does not exist yet and
// set-inserts the member. Adding a user_id already present is a no-op, so
// two concurrent calls for the same pair cannot duplicate a member.
func (r *ChatRepository) UpsertMember(ctx context.Context, chatID string, member model.Member) (*model.Chat, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin upsert member: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO chats (chat_id, chat_type, chat_name)
		VALUES ($1, 'simple', NULL)
		ON CONFLICT (chat_id) DO NOTHING
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("upsert chat %s: %w", chatID, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO chat_members (chat_id, user_id, user_name, avatar)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chat_id, user_id) DO NOTHING
	`, chatID, member.UserID, member.UserName, member.Avatar)
	if err != nil {
		return nil, fmt.Errorf("upsert member %d into chat %s: %w", member.UserID, chatID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit upsert member: %w", err)
	}

	return r.Get(ctx, chatID)
}

// Get returns the chat with its full member list.
func (r *ChatRepository) Get(ctx context.Context, chatID string) (*model.Chat, error) {
	var chat model.Chat
	err := r.pool.QueryRow(ctx, `
		SELECT chat_id, chat_type, chat_name FROM chats WHERE chat_id = $1
	`, chatID).Scan(&chat.ChatID, &chat.ChatType, &chat.ChatName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get chat %s: %w", chatID, err)
	}

	members, err := r.members(ctx, chatID)
	if err != nil {
		return nil, err
	}
	chat.Members = members
	return &chat, nil
}

// ListByMember returns every chat the user participates in, each hydrated
// with its member list.
func (r *ChatRepository) ListByMember(ctx context.Context, userID int64) ([]model.Chat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.chat_id, c.chat_type, c.chat_name
		FROM chats c
		JOIN chat_members m ON m.chat_id = c.chat_id
		WHERE m.user_id = $1
		ORDER BY c.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats for user %d: %w", userID, err)
	}
	defer rows.Close()

	var chats []model.Chat
	for rows.Next() {
		var chat model.Chat
		if err := rows.Scan(&chat.ChatID, &chat.ChatType, &chat.ChatName); err != nil {
			return nil, fmt.Errorf("scan chat row: %w", err)
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list chats for user %d: %w", userID, err)
	}

	for i := range chats {
		members, err := r.members(ctx, chats[i].ChatID)
		if err != nil {
			return nil, err
		}
		chats[i].Members = members
	}
	return chats, nil
}

func (r *ChatRepository) members(ctx context.Context, chatID string) ([]model.Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, user_name, avatar
		FROM chat_members
		WHERE chat_id = $1
		ORDER BY joined_at
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("load members of chat %s: %w", chatID, err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.UserID, &m.UserName, &m.Avatar); err != nil {
			return nil, fmt.Errorf("scan member row: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
