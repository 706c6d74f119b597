package handler

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/VtGoodgame/Chat-service/internal/model"
	"github.com/VtGoodgame/Chat-service/internal/repository"
	"github.com/VtGoodgame/Chat-service/internal/service"
	"github.com/VtGoodgame/Chat-service/internal/upstream"

	"github.com/gofiber/fiber/v2"
)

// ChatLifecycle is the part of the chat service the REST surface uses.
type ChatLifecycle interface {
	ListForUser(ctx context.Context, userID int64) ([]model.Chat, error)
	CreateWithUsername(ctx context.Context, cookieHeader string, me model.WhoAmI, username string) (*model.Chat, error)
}

// MessageLister pages through a chat's stored messages.
type MessageLister interface {
	List(ctx context.Context, chatID string, limit, offset int) ([]model.Message, error)
}

type ChatHandler struct {
	auth     service.IdentityProvider
	chats    ChatLifecycle
	messages MessageLister
}

func NewChatHandler(auth service.IdentityProvider, chats ChatLifecycle, messages MessageLister) *ChatHandler {
	return &ChatHandler{auth: auth, chats: chats, messages: messages}
}

// GetChats returns every chat the caller is a member of.
// GET /api/chat-service/wss/chats
func (h *ChatHandler) GetChats(c *fiber.Ctx) error {
	who := h.auth.WhoAmI(c.Context(), c.Get("Cookie"))
	if !who.Authenticated() {
		return c.Status(401).JSON(fiber.Map{"error": "not authenticated"})
	}

	chats, err := h.chats.ListForUser(c.Context(), who.UserID)
	if err != nil {
		log.Printf("[Chat] list chats for user %d: %v", who.UserID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to list chats"})
	}
	if chats == nil {
		chats = []model.Chat{}
	}
	return c.JSON(chats)
}

// CreateChat finds or creates the caller's simple chat with the named user.
// POST /api/chat-service/wss/create_chat?username=X
func (h *ChatHandler) CreateChat(c *fiber.Ctx) error {
	who := h.auth.WhoAmI(c.Context(), c.Get("Cookie"))
	if !who.Authenticated() {
		return c.Status(401).JSON(fiber.Map{"error": "not authenticated"})
	}

	username := c.Query("username")
	if username == "" {
		return c.Status(400).JSON(fiber.Map{"error": "username is required"})
	}

	chat, err := h.chats.CreateWithUsername(c.Context(), c.Get("Cookie"), who, username)
	if err != nil {
		switch {
		case errors.Is(err, upstream.ErrUserNotFound):
			return c.Status(404).JSON(fiber.Map{"error": "user not found"})
		case errors.Is(err, service.ErrBlocked):
			return c.Status(403).JSON(fiber.Map{"error": "blocked by user"})
		case errors.Is(err, service.ErrBlocklistUnavailable):
			return c.Status(400).JSON(fiber.Map{"error": "failed to check user"})
		case errors.Is(err, repository.ErrNotFound):
			return c.Status(404).JSON(fiber.Map{"error": "chat not found after creation"})
		}
		log.Printf("[Chat] create chat with %q: %v", username, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to create chat"})
	}

	return c.JSON(chat)
}

// GetMessages returns one page of a chat's history, newest first.
// GET /api/chat-service/wss/chat_messages/:chat_id?limit=50&offset=0
func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	who := h.auth.WhoAmI(c.Context(), c.Get("Cookie"))
	if !who.Authenticated() {
		return c.Status(401).JSON(fiber.Map{"error": "not authenticated"})
	}

	chatID := c.Params("chat_id")
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	msgs, err := h.messages.List(c.Context(), chatID, limit, offset)
	if err != nil {
		log.Printf("[Chat] list messages of chat %s: %v", chatID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to get messages"})
	}
	return c.JSON(msgs)
}
