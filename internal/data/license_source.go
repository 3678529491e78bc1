package data

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rajapam/broker/internal/core"
	"github.com/rajapam/broker/internal/domain/model"
)

// SettingsLicenseSource reads the license documents the license agent writes
// into system settings. The broker only evaluates them; issuance and renewal
// happen elsewhere.
type SettingsLicenseSource struct {
	settings core.SettingsRepository
}

// NewSettingsLicenseSource creates a new SettingsLicenseSource backed by the
// given settings accessor.
func NewSettingsLicenseSource(settings core.SettingsRepository) *SettingsLicenseSource {
	if settings == nil {
		panic("SettingsRepository is required")
	}
	return &SettingsLicenseSource{settings: settings}
}

// Current returns the license state as persisted right now. A missing license
// setting yields a nil License, which the gate treats as invalid.
func (s *SettingsLicenseSource) Current(ctx context.Context) (*core.LicenseState, error) {
	state := &core.LicenseState{}

	raw, ok, err := s.settings.Lookup(ctx, model.SettingLicense)
	if err != nil {
		return nil, fmt.Errorf("lookup license setting: %w", err)
	}
	if ok {
		var lic model.License
		if err := json.Unmarshal([]byte(raw), &lic); err != nil {
			return nil, fmt.Errorf("decode license setting: %w", err)
		}
		state.License = &lic
	}

	raw, ok, err = s.settings.Lookup(ctx, model.SettingLicenseChallenge)
	if err != nil {
		return nil, fmt.Errorf("lookup license challenge setting: %w", err)
	}
	if ok {
		var challenge model.LicenseChallenge
		if err := json.Unmarshal([]byte(raw), &challenge); err != nil {
			return nil, fmt.Errorf("decode license challenge setting: %w", err)
		}
		state.Challenge = &challenge
	}

	expiry, err := s.expiryDate(ctx)
	if err != nil {
		return nil, err
	}
	state.ExpiryDate = expiry

	return state, nil
}

// expiryDate parses the global expiry setting, stored as epoch milliseconds.
// An absent or malformed value means no expiry is enforced.
func (s *SettingsLicenseSource) expiryDate(ctx context.Context) (*time.Time, error) {
	raw, ok, err := s.settings.Lookup(ctx, model.SettingExpiryDate)
	if err != nil {
		return nil, fmt.Errorf("lookup expiry date setting: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || millis <= 0 {
		return nil, nil
	}

	t := time.UnixMilli(millis)
	return &t, nil
}
