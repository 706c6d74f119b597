package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/VtGoodgame/Chat-service/internal/model"

	"github.com/gofiber/contrib/websocket"
)

// Close codes sent on rejected sessions. 1011 for not-found and blocked
// matches what the service has always sent; clients key off the reason text.
const (
	closeNotAuthenticated = 1008
	closeRejected         = 1011
)

const (
	reasonNotAuthenticated = "Not authenticated"
	reasonChatNotFound     = "Chat not found in DB"
	reasonNoCounterpart    = "User not found in current chat"
	reasonBlocked          = "Blocked by user"
)

// Conn is the slice of a WebSocket connection the session protocol needs.
// *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// IdentityProvider resolves the user behind a Cookie header. An empty
// (zero UserID) result means unauthenticated.
type IdentityProvider interface {
	WhoAmI(ctx context.Context, cookieHeader string) model.WhoAmI
}

// ChatGetter loads a chat with its members.
type ChatGetter interface {
	GetInfo(ctx context.Context, chatID string) (*model.Chat, error)
}

// BlockChecker reports whether a block exists in either direction between
// the cookie's owner and the named user.
type BlockChecker interface {
	CheckBlocked(ctx context.Context, cookieHeader, username string) (model.BlockStatus, error)
}

// MessageAppender persists one chat message.
type MessageAppender interface {
	Append(ctx context.Context, chatID string, senderID int64, content string) (*model.Message, error)
}

// Session drives the per-connection chat protocol: authorize the connection
// against a chat, register it, then relay frames until disconnect.
type Session struct {
	registry *Registry
	auth     IdentityProvider
	chats    ChatGetter
	blocks   BlockChecker
	messages MessageAppender

	authTimeout  time.Duration
	storeTimeout time.Duration
}

func NewSession(registry *Registry, auth IdentityProvider, chats ChatGetter, blocks BlockChecker, messages MessageAppender, authTimeout time.Duration) *Session {
	if authTimeout <= 0 {
		authTimeout = 2 * time.Second
	}
	return &Session{
		registry:     registry,
		auth:         auth,
		chats:        chats,
		blocks:       blocks,
		messages:     messages,
		authTimeout:  authTimeout,
		storeTimeout: 5 * time.Second,
	}
}

type rejection struct {
	code   int
	reason string
}

// Run owns the connection from handshake to close. Rejections close the
// socket with a code/reason pair and leave no trace: no registry entry, no
// persisted message.
func (s *Session) Run(conn Conn, chatID, cookieHeader string) {
	who, rej := s.authorize(chatID, cookieHeader)
	if rej != nil {
		log.Printf("[WS] rejected connection to chat %s: %s", chatID, rej.reason)
		s.closeWith(conn, rej.code, rej.reason)
		return
	}

	client := NewClient(who.UserID, who.Username)
	s.registry.Join(chatID, client)
	// Leave is idempotent, and this defer is the only cleanup path: it must
	// run however the loop below exits.
	defer s.registry.Leave(chatID, client)

	go writeLoop(conn, client)

	s.relay(conn, chatID)
}

// authorize runs the checks in fixed order; the first failure wins and no
// further work happens.
func (s *Session) authorize(chatID, cookieHeader string) (model.WhoAmI, *rejection) {
	// Each check gets its own timeout window so a slow identity lookup
	// cannot eat the blacklist check's budget.
	who := func() model.WhoAmI {
		ctx, cancel := context.WithTimeout(context.Background(), s.authTimeout)
		defer cancel()
		return s.auth.WhoAmI(ctx, cookieHeader)
	}()
	if !who.Authenticated() {
		return who, &rejection{closeNotAuthenticated, reasonNotAuthenticated}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.storeTimeout)
	chat, err := s.chats.GetInfo(ctx, chatID)
	cancel()
	if err != nil {
		return who, &rejection{closeRejected, reasonChatNotFound}
	}

	var counterpart *model.Member
	for i := range chat.Members {
		if chat.Members[i].UserID != who.UserID {
			counterpart = &chat.Members[i]
			break
		}
	}
	if counterpart == nil {
		return who, &rejection{closeRejected, reasonNoCounterpart}
	}

	blockCtx, blockCancel := context.WithTimeout(context.Background(), s.authTimeout)
	status, err := s.blocks.CheckBlocked(blockCtx, cookieHeader, counterpart.UserName)
	blockCancel()
	if err != nil {
		// Can't prove the pair isn't blocked; deny.
		log.Printf("[WS] blacklist check failed for chat %s: %v", chatID, err)
		return who, &rejection{closeRejected, reasonBlocked}
	}
	if status.Blocked() {
		return who, &rejection{closeRejected, reasonBlocked}
	}

	return who, nil
}

// relay is the active loop: one frame in, fan-out to the room (sender
// included), then persist. Fan-out runs before the store write, so a crash
// between the two can deliver a message that was never persisted; that
// trade favors latency and is visible only in logs.
func (s *Session) relay(conn Conn, chatID string) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[WS] connection to chat %s closed: %v", chatID, err)
			return
		}

		var frame model.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			log.Printf("[WS] malformed frame in chat %s: %v", chatID, err)
			continue
		}

		// The outgoing payload carries only what the sender provided.
		out, err := json.Marshal(frame)
		if err != nil {
			log.Printf("[WS] marshal frame for chat %s: %v", chatID, err)
			continue
		}

		s.registry.Broadcast(chatID, out)

		ctx, cancel := context.WithTimeout(context.Background(), s.storeTimeout)
		if _, err := s.messages.Append(ctx, frame.ChatID, frame.SenderID, frame.Content); err != nil {
			// Already delivered; the loss is durability, not delivery.
			log.Printf("[WS] failed to persist message in chat %s: %v", frame.ChatID, err)
		}
		cancel()
	}
}

// writeLoop drains the client's Send channel onto the socket. A write error
// closes the connection, which unblocks the read loop and triggers the
// normal leave path.
func writeLoop(conn Conn, client *Client) {
	defer conn.Close()
	for msg := range client.Send {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (s *Session) closeWith(conn Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
		log.Printf("[WS] write close frame: %v", err)
	}
	_ = conn.Close()
}
