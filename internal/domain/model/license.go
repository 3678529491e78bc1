//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"slices"
	"time"
)

// FeatureChallenge gates periodic challenge renewal on licenses that carry it.
const FeatureChallenge = "chn"

// License is the externally supplied license document. The broker never
// issues or mutates licenses; it only evaluates them at admission time.
type License struct {
	// Valid is the overall license validity flag computed by the license service.
	Valid bool `json:"isLicenseValid"`
	// HardwareValid reports whether the hardware/token binding checks passed.
	HardwareValid bool `json:"isHwValid"`
	// IssuedAt is the license issuance time in epoch seconds.
	IssuedAt int64 `json:"issued_at"`
	// RemainingDays is the number of days of validity left, when known.
	RemainingDays *int `json:"remainingDays,omitempty"`
	// Features is the set of licensed feature flags.
	Features []string `json:"features,omitempty"`
	// ConnectionLimit caps the number of in-use connections. Zero means unlimited.
	ConnectionLimit int `json:"connection_limit,omitempty"`
	// SessionLimit caps the number of concurrently live sessions. Zero means unlimited.
	SessionLimit int `json:"session_limit,omitempty"`
}

// HasFeature reports whether the license carries the named feature flag.
func (l *License) HasFeature(name string) bool {
	return slices.Contains(l.Features, name)
}

// AgeDays returns the license age in fractional days at the given time.
func (l *License) AgeDays(now time.Time) float64 {
	return now.Sub(time.Unix(l.IssuedAt, 0)).Hours() / 24
}

// LicenseChallenge is the state of the periodic challenge/response renewal.
type LicenseChallenge struct {
	Valid      bool       `json:"isValid"`
	AnsweredAt *time.Time `json:"answeredAt,omitempty"`
}

// ConnectResult is the structured outcome of a connect attempt. Callers must
// branch on Success; failures carry a user-facing message and no payload.
type ConnectResult struct {
	Success bool `json:"success"`
	// Message is the human-readable denial/failure reason. Empty on success.
	Message string `json:"message,omitempty"`
	// SessionID identifies the created session, when one was inserted.
	SessionID string `json:"session_id,omitempty"`
	// TokenPayload is the serialized credential or descriptor produced by the
	// mode-specific provisioner.
	TokenPayload string `json:"tokenPayload,omitempty"`
	// License echoes the evaluated license back to the caller.
	License *License `json:"license,omitempty"`
}

// Deny builds a failed ConnectResult with the given user-facing message.
func Deny(message string) *ConnectResult {
	return &ConnectResult{Success: false, Message: message}
}
