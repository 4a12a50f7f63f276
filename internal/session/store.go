package session

import (
	"context"
	"encoding/json"
)

// Record is the durable slice of a session: both tokens plus the serialized
// user profile trusted across restarts.
type Record struct {
	AccessToken  string          `json:"authToken,omitempty"`
	RefreshToken string          `json:"refreshToken,omitempty"`
	User         json.RawMessage `json:"user,omitempty"`
}

// Empty reports whether the record carries no credentials at all.
func (r Record) Empty() bool {
	return r.AccessToken == "" && r.RefreshToken == ""
}

// Store persists a session record across process restarts.
//
// Single-writer discipline: only the Manager's Login/Refresh/Logout paths
// write; everything else reads through the Manager's snapshot.
type Store interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
}
