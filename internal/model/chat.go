package model

import "time"

// Member is one participant of a chat. Identity is UserID; the name and
// avatar are denormalized copies taken from the user-service at join time.
type Member struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
	Avatar   string `json:"avatar,omitempty"`
}

// Chat is a persisted conversation. A "simple" chat holds exactly two
// members once fully created; membership only grows.
type Chat struct {
	ChatID   string   `json:"chat_id"`
	ChatType string   `json:"chat_type"`
	ChatName *string  `json:"chat_name"`
	Members  []Member `json:"members"`
}

const (
	ChatTypeSimple = "simple"
	ChatTypeGroup  = "group"
)

// Message is a stored chat message. Immutable after insert except for the
// readers list, which grows as recipients mark it read.
type Message struct {
	MsgID     string    `json:"msg_id"`
	ChatID    string    `json:"chat_id"`
	Content   *string   `json:"content"`
	SenderID  int64     `json:"sender_id"`
	Timestamp time.Time `json:"timestamp"`
	Readers   []Member  `json:"readers"`
}
