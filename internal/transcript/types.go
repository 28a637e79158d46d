// Package transcript archives completed conversation turns. The archive is
// best-effort and strictly auxiliary: session state itself lives only in the
// in-process session store.
package transcript

import (
	"context"
	"time"
)

// TurnRecord is one archived user or assistant turn.
type TurnRecord struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"session_id"`
	Role             string    `json:"role"`
	Content          string    `json:"content"`
	FrustrationLevel int       `json:"frustration_level"`
	Pattern          string    `json:"pattern,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Store persists and retrieves archived turns.
type Store interface {
	SaveTurn(ctx context.Context, record TurnRecord) error
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error)
	Close() error
}
