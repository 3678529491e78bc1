// Package testutil provides testing utilities and helpers for the session broker.
package testutil

import (
	"time"

	"github.com/rajapam/broker/internal/domain/model"
)

// ConnectionBuilder provides a fluent interface for building Connection objects for testing.
type ConnectionBuilder struct {
	conn *model.Connection
}

// NewConnection creates a new ConnectionBuilder with sensible defaults.
func NewConnection() *ConnectionBuilder {
	return &ConnectionBuilder{
		conn: &model.Connection{
			ID:       "c-test",
			Name:     "test connection",
			Hostname: "10.0.0.10",
			Protocol: model.ProtocolRDP,
		},
	}
}

// WithID sets the connection id.
func (b *ConnectionBuilder) WithID(id string) *ConnectionBuilder {
	b.conn.ID = id
	return b
}

// WithName sets the connection name.
func (b *ConnectionBuilder) WithName(name string) *ConnectionBuilder {
	b.conn.Name = name
	return b
}

// WithHostname sets the target hostname.
func (b *ConnectionBuilder) WithHostname(hostname string) *ConnectionBuilder {
	b.conn.Hostname = hostname
	return b
}

// WithProtocol sets the remote-access protocol.
func (b *ConnectionBuilder) WithProtocol(protocol model.Protocol) *ConnectionBuilder {
	b.conn.Protocol = protocol
	return b
}

// WithPort sets an explicit target port.
func (b *ConnectionBuilder) WithPort(port int) *ConnectionBuilder {
	b.conn.Meta.Port = &port
	return b
}

// WithDisabled marks the connection disabled.
func (b *ConnectionBuilder) WithDisabled() *ConnectionBuilder {
	b.conn.Meta.IsDisabled = true
	return b
}

// Build returns the constructed Connection.
func (b *ConnectionBuilder) Build() model.Connection {
	return *b.conn
}

// AccessRuleBuilder provides a fluent interface for building AccessRule objects for testing.
type AccessRuleBuilder struct {
	rule *model.AccessRule
}

// NewAccessRule creates a new AccessRuleBuilder with sensible defaults.
func NewAccessRule() *AccessRuleBuilder {
	return &AccessRuleBuilder{
		rule: &model.AccessRule{
			ID:   "ar-test",
			Name: "test rule",
		},
	}
}

// WithID sets the rule id.
func (b *AccessRuleBuilder) WithID(id string) *AccessRuleBuilder {
	b.rule.ID = id
	return b
}

// WithName sets the rule name.
func (b *AccessRuleBuilder) WithName(name string) *AccessRuleBuilder {
	b.rule.Name = name
	return b
}

// WithTransparentMode enables transparent-mode delegation.
func (b *AccessRuleBuilder) WithTransparentMode() *AccessRuleBuilder {
	b.rule.Meta.TransparentMode = true
	return b
}

// WithTimeWindow appends an allowed time window.
func (b *AccessRuleBuilder) WithTimeWindow(window model.TimeWindow) *AccessRuleBuilder {
	b.rule.Meta.TimeWindows = append(b.rule.Meta.TimeWindows, window)
	return b
}

// Build returns the constructed AccessRule.
func (b *AccessRuleBuilder) Build() model.AccessRule {
	return *b.rule
}

// SessionBuilder provides a fluent interface for building Session objects for testing.
type SessionBuilder struct {
	session *model.Session
}

// NewSession creates a new SessionBuilder with sensible defaults.
func NewSession() *SessionBuilder {
	now := TestTime()
	return &SessionBuilder{
		session: &model.Session{
			ID:           "s-test",
			UserID:       "u-test",
			ConnectionID: "c-test",
			AccessRuleID: "ar-test",
			Status:       model.SessionStatusReady,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

// WithID sets the session id.
func (b *SessionBuilder) WithID(id string) *SessionBuilder {
	b.session.ID = id
	return b
}

// WithUserID sets the subject user id.
func (b *SessionBuilder) WithUserID(id string) *SessionBuilder {
	b.session.UserID = id
	return b
}

// WithConnectionID sets the target connection id.
func (b *SessionBuilder) WithConnectionID(id string) *SessionBuilder {
	b.session.ConnectionID = id
	return b
}

// WithStatus sets the lifecycle status.
func (b *SessionBuilder) WithStatus(status model.SessionStatus) *SessionBuilder {
	b.session.Status = status
	return b
}

// WithAuthToken sets the tunnel bearer token.
func (b *SessionBuilder) WithAuthToken(token string) *SessionBuilder {
	b.session.Meta.AuthToken = token
	return b
}

// WithTransparentFile marks the session transparent and records its descriptor file.
func (b *SessionBuilder) WithTransparentFile(filename string) *SessionBuilder {
	b.session.Meta.TransparentMode = true
	b.session.Meta.TransparentFile = filename
	return b
}

// WithDeadline sets the policy disconnect deadline.
func (b *SessionBuilder) WithDeadline(at time.Time) *SessionBuilder {
	ms := at.UnixMilli()
	b.session.Meta.SessionShouldDisconnectAt = &ms
	return b
}

// Build returns the constructed Session.
func (b *SessionBuilder) Build() model.Session {
	return *b.session
}
