package service

import (
	"context"
	"errors"
	"testing"

	"github.com/VtGoodgame/Chat-service/internal/model"
	"github.com/VtGoodgame/Chat-service/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore mimics the repository's set-union membership semantics in
// memory.
type fakeStore struct {
	chats   map[string]*model.Chat
	upserts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{chats: make(map[string]*model.Chat)}
}

func (s *fakeStore) FindByMembers(_ context.Context, userA, userB int64, chatType string) (string, error) {
	for id, chat := range s.chats {
		if chat.ChatType != chatType {
			continue
		}
		var hasA, hasB bool
		for _, m := range chat.Members {
			hasA = hasA || m.UserID == userA
			hasB = hasB || m.UserID == userB
		}
		if hasA && hasB {
			return id, nil
		}
	}
	return "", repository.ErrNotFound
}

func (s *fakeStore) UpsertMember(_ context.Context, chatID string, member model.Member) (*model.Chat, error) {
	s.upserts++
	chat, ok := s.chats[chatID]
	if !ok {
		chat = &model.Chat{ChatID: chatID, ChatType: model.ChatTypeSimple}
		s.chats[chatID] = chat
	}
	for _, m := range chat.Members {
		if m.UserID == member.UserID {
			return chat, nil
		}
	}
	chat.Members = append(chat.Members, member)
	return chat, nil
}

func (s *fakeStore) Get(_ context.Context, chatID string) (*model.Chat, error) {
	chat, ok := s.chats[chatID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return chat, nil
}

func (s *fakeStore) ListByMember(_ context.Context, userID int64) ([]model.Chat, error) {
	var out []model.Chat
	for _, chat := range s.chats {
		for _, m := range chat.Members {
			if m.UserID == userID {
				out = append(out, *chat)
				break
			}
		}
	}
	return out, nil
}

type fakeDirectory struct {
	user     *model.User
	userErr  error
	status   model.BlockStatus
	blockErr error
}

func (d fakeDirectory) LookupByUsername(context.Context, string) (*model.User, error) {
	return d.user, d.userErr
}

func (d fakeDirectory) CheckBlocked(context.Context, string, string) (model.BlockStatus, error) {
	return d.status, d.blockErr
}

func TestFindOrCreateIsStable(t *testing.T) {
	store := newFakeStore()
	svc := NewChatService(store, fakeDirectory{})

	first, err := svc.FindOrCreate(context.Background(), alice, bob)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := svc.FindOrCreate(context.Background(), alice, bob)
	require.NoError(t, err)
	assert.Equal(t, first, second, "a second call must find the existing chat")

	// Order of the pair must not matter.
	third, err := svc.FindOrCreate(context.Background(), bob, alice)
	require.NoError(t, err)
	assert.Equal(t, first, third)

	assert.Equal(t, 2, store.upserts, "creation is exactly two member upserts")

	chat, err := store.Get(context.Background(), first)
	require.NoError(t, err)
	assert.Len(t, chat.Members, 2)
}

func TestCreateWithUsernameHappyPath(t *testing.T) {
	store := newFakeStore()
	dir := fakeDirectory{user: &model.User{ID: 2, Username: "bob"}}
	svc := NewChatService(store, dir)

	me := model.WhoAmI{UserID: 1, Username: "alice"}
	chat, err := svc.CreateWithUsername(context.Background(), "cookie", me, "bob")
	require.NoError(t, err)
	require.NotNil(t, chat)
	assert.Len(t, chat.Members, 2)
	assert.Equal(t, model.ChatTypeSimple, chat.ChatType)
}

func TestCreateWithUsernameUnknownUser(t *testing.T) {
	svc := NewChatService(newFakeStore(), fakeDirectory{userErr: errors.New("user not found")})

	_, err := svc.CreateWithUsername(context.Background(), "cookie", model.WhoAmI{UserID: 1}, "ghost")
	assert.Error(t, err)
}

func TestCreateWithUsernameBlocked(t *testing.T) {
	store := newFakeStore()
	dir := fakeDirectory{
		user:   &model.User{ID: 2, Username: "bob"},
		status: model.BlockStatus{YouBlockedUser: true},
	}
	svc := NewChatService(store, dir)

	_, err := svc.CreateWithUsername(context.Background(), "cookie", model.WhoAmI{UserID: 1, Username: "alice"}, "bob")
	assert.ErrorIs(t, err, ErrBlocked)
	assert.Equal(t, 0, store.upserts, "no chat may be created for a blocked pair")
}

func TestCreateWithUsernameBlocklistDown(t *testing.T) {
	store := newFakeStore()
	dir := fakeDirectory{
		user:     &model.User{ID: 2, Username: "bob"},
		blockErr: errors.New("timeout"),
	}
	svc := NewChatService(store, dir)

	_, err := svc.CreateWithUsername(context.Background(), "cookie", model.WhoAmI{UserID: 1, Username: "alice"}, "bob")
	assert.ErrorIs(t, err, ErrBlocklistUnavailable)
	assert.Equal(t, 0, store.upserts)
}

func TestListForUser(t *testing.T) {
	store := newFakeStore()
	svc := NewChatService(store, fakeDirectory{})

	id, err := svc.FindOrCreate(context.Background(), alice, bob)
	require.NoError(t, err)

	chats, err := svc.ListForUser(context.Background(), alice.UserID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, id, chats[0].ChatID)

	none, err := svc.ListForUser(context.Background(), 99)
	require.NoError(t, err)
	assert.Empty(t, none)
}
