package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/VtGoodgame/Chat-service/internal/model"
	"github.com/VtGoodgame/Chat-service/internal/service"
	"github.com/VtGoodgame/Chat-service/internal/upstream"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuth authenticates any request that carries a cookie.
type fakeAuth struct{}

func (fakeAuth) WhoAmI(_ context.Context, cookieHeader string) model.WhoAmI {
	if cookieHeader == "" {
		return model.WhoAmI{}
	}
	return model.WhoAmI{UserID: 1, Username: "alice"}
}

type fakeLifecycle struct {
	chats     []model.Chat
	created   *model.Chat
	createErr error
}

func (f fakeLifecycle) ListForUser(context.Context, int64) ([]model.Chat, error) {
	return f.chats, nil
}

func (f fakeLifecycle) CreateWithUsername(context.Context, string, model.WhoAmI, string) (*model.Chat, error) {
	return f.created, f.createErr
}

type fakeLister struct {
	msgs []model.Message
}

func (f fakeLister) List(context.Context, string, int, int) ([]model.Message, error) {
	return f.msgs, nil
}

func newTestApp(lifecycle fakeLifecycle, lister fakeLister) *fiber.App {
	app := fiber.New()
	h := NewChatHandler(fakeAuth{}, lifecycle, lister)
	app.Get("/wss/chats", h.GetChats)
	app.Post("/wss/create_chat", h.CreateChat)
	app.Get("/wss/chat_messages/:chat_id", h.GetMessages)
	return app
}

func TestGetChatsRequiresIdentity(t *testing.T) {
	app := newTestApp(fakeLifecycle{}, fakeLister{})

	req := httptest.NewRequest("GET", "/wss/chats", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestGetChatsReturnsHydratedList(t *testing.T) {
	name := "general"
	app := newTestApp(fakeLifecycle{chats: []model.Chat{{
		ChatID:   "c1",
		ChatType: model.ChatTypeSimple,
		ChatName: &name,
		Members:  []model.Member{{UserID: 1, UserName: "alice"}, {UserID: 2, UserName: "bob"}},
	}}}, fakeLister{})

	req := httptest.NewRequest("GET", "/wss/chats", nil)
	req.Header.Set("Cookie", "access_token=x")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var chats []model.Chat
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&chats))
	require.Len(t, chats, 1)
	assert.Equal(t, "c1", chats[0].ChatID)
	assert.Len(t, chats[0].Members, 2)
}

func TestCreateChatRequiresUsername(t *testing.T) {
	app := newTestApp(fakeLifecycle{}, fakeLister{})

	req := httptest.NewRequest("POST", "/wss/create_chat", nil)
	req.Header.Set("Cookie", "access_token=x")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestCreateChatStatusMapping(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"unknown user":         {upstream.ErrUserNotFound, 404},
		"blocked":              {service.ErrBlocked, 403},
		"blacklist down":       {service.ErrBlocklistUnavailable, 400},
		"unexpected store err": {assert.AnError, 500},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			app := newTestApp(fakeLifecycle{createErr: tc.err}, fakeLister{})

			req := httptest.NewRequest("POST", "/wss/create_chat?username=bob", nil)
			req.Header.Set("Cookie", "access_token=x")
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestCreateChatReturnsChat(t *testing.T) {
	app := newTestApp(fakeLifecycle{created: &model.Chat{
		ChatID:   "c1",
		ChatType: model.ChatTypeSimple,
		Members:  []model.Member{{UserID: 1, UserName: "alice"}, {UserID: 2, UserName: "bob"}},
	}}, fakeLister{})

	req := httptest.NewRequest("POST", "/wss/create_chat?username=bob", nil)
	req.Header.Set("Cookie", "access_token=x")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var chat model.Chat
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&chat))
	assert.Equal(t, "c1", chat.ChatID)
}

func TestGetMessagesPage(t *testing.T) {
	now := time.Now().UTC()
	content := "hi"
	app := newTestApp(fakeLifecycle{}, fakeLister{msgs: []model.Message{{
		MsgID:     "m1",
		ChatID:    "c1",
		Content:   &content,
		SenderID:  2,
		Timestamp: now,
		Readers:   []model.Member{},
	}}})

	req := httptest.NewRequest("GET", "/wss/chat_messages/c1?limit=2&offset=0", nil)
	req.Header.Set("Cookie", "access_token=x")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var msgs []model.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].MsgID)
	assert.NotNil(t, msgs[0].Readers, "readers must round-trip even when empty")
}

func TestGetMessagesRequiresIdentity(t *testing.T) {
	app := newTestApp(fakeLifecycle{}, fakeLister{})

	req := httptest.NewRequest("GET", "/wss/chat_messages/c1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}
