//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"strings"
	"time"
)

// SessionStatus represents the lifecycle state of a session.
type SessionStatus string

const (
	// SessionStatusInitializing is the state a session is created in. It is
	// entered exactly once and is excluded from tracker polling.
	SessionStatusInitializing SessionStatus = "initializing"
	// SessionStatusReady means provisioning succeeded and the session is
	// waiting for the user to open the tunnel.
	SessionStatusReady SessionStatus = "ready"
	// SessionStatusLive means the external service reports an open tunnel.
	SessionStatusLive SessionStatus = "live"
	// SessionStatusClosed is terminal.
	SessionStatusClosed SessionStatus = "closed"
)

// Valid reports whether the status is a known session status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusInitializing, SessionStatusReady, SessionStatusLive, SessionStatusClosed:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status permits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusClosed
}

// CanTransitionTo reports whether moving from s to next is a legal forward
// transition. All statuses may move to closed; closed never regresses.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	if s == next {
		return false
	}
	switch s {
	case SessionStatusInitializing:
		return next == SessionStatusReady || next == SessionStatusClosed
	case SessionStatusReady:
		return next == SessionStatusLive || next == SessionStatusClosed
	case SessionStatusLive:
		return next == SessionStatusClosed
	case SessionStatusClosed:
		return false
	default:
		return false
	}
}

// ParseSessionStatus normalizes a status string and reports whether it is supported.
func ParseSessionStatus(value string) (SessionStatus, bool) {
	status := SessionStatus(strings.ToLower(strings.TrimSpace(value)))
	if status.Valid() {
		return status, true
	}
	return "", false
}

// SessionMeta is the typed attribute set attached to a session. Optional
// fields are pointers or omitempty so that "absent" survives round-trips
// through the jsonb column unchanged.
type SessionMeta struct {
	// ByUsername is the username of the user the session was created for.
	ByUsername string `json:"byUsername,omitempty"`

	// SessionShouldDisconnectAt is the policy deadline in epoch milliseconds.
	// Nil means the session is unbounded. Set once at creation, never updated.
	SessionShouldDisconnectAt *int64 `json:"sessionShouldDisconnectAt"`

	// AuthToken is the tunnel bearer token. Standard mode only.
	AuthToken string `json:"authToken,omitempty"`

	// SharingProfileID is the read-only sharing profile created in the
	// credential backend. Standard mode only.
	SharingProfileID *int64 `json:"sharingProfileId,omitempty"`

	// TransparentMode marks sessions delegated to the transparent service.
	TransparentMode bool `json:"transparentMode,omitempty"`

	// TransparentFile is the connection descriptor filename returned by the
	// transparent service. Transparent mode only.
	TransparentFile string `json:"transparentFile,omitempty"`

	ReadyAt  *time.Time `json:"readyAt,omitempty"`
	LiveAt   *time.Time `json:"liveAt,omitempty"`
	ClosedAt *time.Time `json:"closedAt,omitempty"`
}

// DeadlinePassed reports whether the policy disconnect deadline is set and
// lies in the past relative to now.
func (m SessionMeta) DeadlinePassed(now time.Time) bool {
	if m.SessionShouldDisconnectAt == nil {
		return false
	}
	return *m.SessionShouldDisconnectAt < now.UnixMilli()
}

// Session is one end-to-end grant of remote access from a user to a
// connection target, tracked from provisioning through teardown.
type Session struct {
	ID           string        `json:"id"             db:"id"`
	UserID       string        `json:"user_id"        db:"user_id"`
	ConnectionID string        `json:"connection_id"  db:"connection_id"`
	AccessRuleID string        `json:"access_rule_id" db:"access_rule_id"`
	Status       SessionStatus `json:"status"         db:"status"`
	Meta         SessionMeta   `json:"meta"           db:"meta"`
	CreatedAt    time.Time     `json:"created_at"     db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"     db:"updated_at"`
}

// Transparent reports whether the session is reconciled against the
// transparent service rather than the tunnel service.
func (s *Session) Transparent() bool {
	return s.Meta.TransparentMode
}

// CreateSessionRequest represents parameters to insert a new session row.
type CreateSessionRequest struct {
	UserID       string      `json:"user_id"`
	ConnectionID string      `json:"connection_id"`
	AccessRuleID string      `json:"access_rule_id"`
	Meta         SessionMeta `json:"meta"`
}

// Validate validates CreateSessionRequest.
func (r *CreateSessionRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user_id is required")
	}
	if strings.TrimSpace(r.ConnectionID) == "" {
		return errors.New("connection_id is required")
	}
	if strings.TrimSpace(r.AccessRuleID) == "" {
		return errors.New("access_rule_id is required")
	}
	return nil
}

// ProvisionedUpdate carries the provisioning outcome written when a session
// moves from initializing to ready.
type ProvisionedUpdate struct {
	AuthToken        string
	SharingProfileID *int64
	TransparentMode  bool
	TransparentFile  string
}
