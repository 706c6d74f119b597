package model

// Frame is the WebSocket wire format, identical in both directions. The
// relay echoes back exactly what the sender provided; msg_id and timestamp
// exist only on the persisted record, never on the wire.
type Frame struct {
	ChatID   string `json:"chat_id"`
	SenderID int64  `json:"sender_id"`
	Content  string `json:"content"`
}
