//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import "strings"

// Protocol identifies the remote-access protocol of a connection target.
type Protocol string

const (
	ProtocolRDP Protocol = "rdp"
	ProtocolSSH Protocol = "ssh"
)

// ConnectionMeta holds per-target settings used when building proxy
// connection parameters.
type ConnectionMeta struct {
	Port       *int   `json:"port,omitempty"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	Domain     string `json:"domain,omitempty"`
	Security   string `json:"security,omitempty"`
	IgnoreCert bool   `json:"ignoreCert,omitempty"`
	IsDisabled bool   `json:"isDisabled,omitempty"`
}

// Connection is a backend RDP/SSH target. Read-only from the broker's
// perspective; managed by the admin dashboard.
type Connection struct {
	ID       string         `json:"id"       db:"id"`
	Name     string         `json:"name"     db:"name"`
	Hostname string         `json:"hostname" db:"hostname"`
	Protocol Protocol       `json:"protocol" db:"protocol"`
	Meta     ConnectionMeta `json:"meta"     db:"meta"`
}

// PortOrDefault returns the configured target port, falling back to the
// protocol default.
func (c *Connection) PortOrDefault() int {
	if c.Meta.Port != nil && *c.Meta.Port > 0 {
		return *c.Meta.Port
	}
	if c.Protocol == ProtocolSSH {
		return 22
	}
	return 3389
}

// TimeWindow describes one allowed access window of an access rule.
// Days are lowercase three-letter weekday names ("mon".."sun"); Start and End
// are wall-clock "HH:MM" strings interpreted in Timezone (UTC when empty).
type TimeWindow struct {
	Days  []string `json:"days"`
	Start string   `json:"start"`
	End   string   `json:"end"`
	TZ    string   `json:"timezone,omitempty"`
}

// AccessRuleMeta carries the policy knobs of an access rule.
type AccessRuleMeta struct {
	TransparentMode     bool         `json:"transparentMode,omitempty"`
	TimeWindows         []TimeWindow `json:"timeWindows,omitempty"`
	DisableClipboard    bool         `json:"disableClipboard,omitempty"`
	DisableFileTransfer bool         `json:"disableFileTransfer,omitempty"`
}

// AccessRule is a named policy object linking users/groups to
// connections/connection-groups.
type AccessRule struct {
	ID   string         `json:"id"   db:"id"`
	Name string         `json:"name" db:"name"`
	Meta AccessRuleMeta `json:"meta" db:"meta"`
}

// User is the subject a session is brokered for.
type User struct {
	ID       string `json:"id"       db:"id"`
	Username string `json:"username" db:"username"`
}

// AccessGrant is one flattened (connection, accessRule) pair derived from a
// user's direct and group-indirect grants. Derived, never persisted.
type AccessGrant struct {
	Connection Connection
	AccessRule AccessRule
}

/// Key returns the dedup key of the grant: structural identity of the pair.
func (g AccessGrant) Key() string {
	return g.Connection.ID + "\x00" + g.AccessRule.ID
}

// Setting is a typed system configuration row.
type Setting struct {
	Type  string `json:"type"  db:"type"`
	Name  string `json:"name"  db:"name"`
	Value string `json:"value" db:"value"`
}

// Names of system settings consumed by the broker.
const (
	SettingTransparentIPAddress = "transparentIpAddress"
	SettingTransparentModeRDP   = "transparentModeRDP"
	SettingLicense              = "license"
	SettingLicenseChallenge     = "licenseChallenge"
	SettingExpiryDate           = "pamExpiryDate"
	SettingHAMode               = "haMode"
	SettingHAPeerAddress        = "haPeerAddress"
)

// SettingTypeSystem is the type bucket for broker system settings.
const SettingTypeSystem = "system"

// TrueSetting reports whether a raw setting value represents an enabled flag.
func TrueSetting(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}
