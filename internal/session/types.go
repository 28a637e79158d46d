package session

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one immutable turn in a session's history.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// Session is one ongoing conversation. Timestamps are seconds since epoch.
type Session struct {
	ID               string            `json:"session_id"`
	CreatedAt        int64             `json:"created_at"`
	LastAccessAt     int64             `json:"last_access"`
	Messages         []Message         `json:"messages"`
	MessageCount     int               `json:"message_count"`
	FrustrationLevel int               `json:"frustration_level"`
	Context          map[string]string `json:"context"`
}

// Overview summarizes every live session for the debug endpoint.
type Overview struct {
	TotalSessions int                 `json:"total_sessions"`
	Sessions      []string            `json:"sessions"`
	Details       map[string]*Session `json:"details"`
}
