package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/VtGoodgame/Chat-service/internal/model"
	"github.com/VtGoodgame/Chat-service/internal/repository"

	"github.com/google/uuid"
)

var (
	// ErrBlocked means a block exists between the two users, in either
	// direction.
	ErrBlocked = errors.New("blocked by user")
	// ErrBlocklistUnavailable means the block check itself failed, so the
	// chat cannot be created.
	ErrBlocklistUnavailable = errors.New("blacklist check failed")
)

// ChatStore is the persistence contract the lifecycle service needs.
// *repository.ChatRepository satisfies it.
type ChatStore interface {
	FindByMembers(ctx context.Context, userA, userB int64, chatType string) (string, error)
	UpsertMember(ctx context.Context, chatID string, member model.Member) (*model.Chat, error)
	Get(ctx context.Context, chatID string) (*model.Chat, error)
	ListByMember(ctx context.Context, userID int64) ([]model.Chat, error)
}

// UserDirectory is the slice of the user-service the lifecycle service
// needs. *upstream.UserClient satisfies it.
type UserDirectory interface {
	LookupByUsername(ctx context.Context, username string) (*model.User, error)
	CheckBlocked(ctx context.Context, cookieHeader, username string) (model.BlockStatus, error)
}

// ChatService owns conversation lifecycle: find-or-create between two
// users, membership, and lookups. It is the only writer of chat membership.
type ChatService struct {
	store ChatStore
	users UserDirectory
}

func NewChatService(store ChatStore, users UserDirectory) *ChatService {
	return &ChatService{store: store, users: users}
}

// FindOrCreate returns the id of the simple chat between the two members,
// creating it on first use. Creation is two idempotent member upserts; two
// racers both missing the lookup can still each create a chat, which is the
// store's long-standing behavior and is not deduplicated here.
func (s *ChatService) FindOrCreate(ctx context.Context, me, other model.Member) (string, error) {
	chatID, err := s.store.FindByMembers(ctx, me.UserID, other.UserID, model.ChatTypeSimple)
	if err == nil {
		return chatID, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("find chat for users %d/%d: %w", me.UserID, other.UserID, err)
	}

	chatID = uuid.NewString()
	if _, err := s.store.UpsertMember(ctx, chatID, me); err != nil {
		return "", fmt.Errorf("add member %d to new chat: %w", me.UserID, err)
	}
	if _, err := s.store.UpsertMember(ctx, chatID, other); err != nil {
		return "", fmt.Errorf("add member %d to new chat: %w", other.UserID, err)
	}

	log.Printf("[Chat] created chat %s for users %d and %d", chatID, me.UserID, other.UserID)
	return chatID, nil
}

// CreateWithUsername is the REST entry point: resolve the counterpart by
// username, refuse if a block exists, then find-or-create the pair's chat
// and return it hydrated.
func (s *ChatService) CreateWithUsername(ctx context.Context, cookieHeader string, me model.WhoAmI, username string) (*model.Chat, error) {
	target, err := s.users.LookupByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	status, err := s.users.CheckBlocked(ctx, cookieHeader, target.Username)
	if err != nil {
		log.Printf("[Chat] blacklist check for %q failed: %v", username, err)
		return nil, ErrBlocklistUnavailable
	}
	if status.Blocked() {
		return nil, ErrBlocked
	}

	chatID, err := s.FindOrCreate(ctx,
		model.Member{UserID: me.UserID, UserName: me.Username, Avatar: me.Avatar},
		model.Member{UserID: target.ID, UserName: target.Username, Avatar: target.Avatar},
	)
	if err != nil {
		return nil, err
	}

	return s.store.Get(ctx, chatID)
}

// ListForUser returns every chat the user is a member of, hydrated.
func (s *ChatService) ListForUser(ctx context.Context, userID int64) ([]model.Chat, error) {
	return s.store.ListByMember(ctx, userID)
}

// GetInfo returns the chat with its members, or repository.ErrNotFound.
func (s *ChatService) GetInfo(ctx context.Context, chatID string) (*model.Chat, error) {
	return s.store.Get(ctx, chatID)
}
