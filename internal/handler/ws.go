package handler

import (
	"github.com/VtGoodgame/Chat-service/internal/service"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

type WSHandler struct {
	session *service.Session
}

func NewWSHandler(session *service.Session) *WSHandler {
	return &WSHandler{session: session}
}

// Upgrade accepts the WebSocket handshake and hands the connection to the
// room session. Authorization happens after the handshake, inside the
// session, so rejections arrive as close frames with a reason the client
// can read.
// GET /api/chat-service/wss/chat?chat_id=...
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	stashUpgradeState(c)

	return websocket.New(h.handleConnection)(c)
}

// stashUpgradeState puts the chat_id query param and the Cookie header into
// Locals for the websocket handler. Query and Get return views into the
// request buffer, which fasthttp recycles once the handler returns; the
// websocket handler outlives that, so the values are stored as detached
// copies.
func stashUpgradeState(c *fiber.Ctx) {
	c.Locals("chat_id", utils.CopyString(c.Query("chat_id")))
	c.Locals("cookie", utils.CopyString(c.Get("Cookie")))
}

func (h *WSHandler) handleConnection(conn *websocket.Conn) {
	chatID, _ := conn.Locals("chat_id").(string)
	cookie, _ := conn.Locals("cookie").(string)
	h.session.Run(conn, chatID, cookie)
}
