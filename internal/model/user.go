package model

// WhoAmI is the auth-service's view of the current user. A zero UserID means
// the request carried no resolvable identity.
type WhoAmI struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

func (w WhoAmI) Authenticated() bool {
	return w.UserID != 0
}

// User is the user-service's short profile representation.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// BlockStatus is the user-service blacklist check result, covering both
// directions of a block between the caller and another user.
type BlockStatus struct {
	BlockedByUser  bool `json:"blocked_by_user"`
	YouBlockedUser bool `json:"you_blocked_user"`
}

func (b BlockStatus) Blocked() bool {
	return b.BlockedByUser || b.YouBlockedUser
}
