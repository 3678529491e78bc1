// Package devseed populates a development database with a small directory:
// a couple of users, connection targets, access rules and the settings the
// connect path expects. Every insert is idempotent so repeated startups are
// safe.
package devseed

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rajapam/broker/internal/domain/model"
)

// Run executes the development seeding workflow against the provided DB.
func Run(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	steps := []struct {
		name string
		fn   func(context.Context, *sql.DB) error
	}{
		{"users", seedUsers},
		{"connections", seedConnections},
		{"access rules", seedAccessRules},
		{"settings", seedSettings},
	}

	for _, step := range steps {
		if err := step.fn(ctx, db); err != nil {
			return fmt.Errorf("seed %s: %w", step.name, err)
		}
		if logger != nil {
			logger.InfoContext(ctx, "seeded", "step", step.name)
		}
	}
	return nil
}

func seedUsers(ctx context.Context, db *sql.DB) error {
	users := []struct{ id, username string }{
		{"u-alice", "alice"},
		{"u-bob", "bob"},
	}
	for _, u := range users {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO users (id, username) VALUES ($1, $2)
			ON CONFLICT (id) DO NOTHING`, u.id, u.username); err != nil {
			return err
		}
	}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO user_groups (id, name) VALUES ('ug-operators', 'operators')
		ON CONFLICT (id) DO NOTHING`); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO user_group_members (group_id, user_id) VALUES ('ug-operators', 'u-bob')
		ON CONFLICT DO NOTHING`)
	return err
}

func seedConnections(ctx context.Context, db *sql.DB) error {
	rdpPort, sshPort := 3389, 22
	connections := []struct {
		id, name, hostname string
		protocol           model.Protocol
		meta               model.ConnectionMeta
	}{
		{"c-rdp-dev", "dev windows host", "10.0.0.10", model.ProtocolRDP, model.ConnectionMeta{Port: &rdpPort}},
		{"c-ssh-dev", "dev linux host", "10.0.0.20", model.ProtocolSSH, model.ConnectionMeta{Port: &sshPort}},
	}
	for _, c := range connections {
		meta, err := json.Marshal(c.meta)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, `
			INSERT INTO connections (id, name, hostname, protocol, meta)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING`,
			c.id, c.name, c.hostname, c.protocol, meta); err != nil {
			return err
		}
	}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO connection_groups (id, name) VALUES ('cg-dev', 'dev hosts')
		ON CONFLICT (id) DO NOTHING`); err != nil {
		return err
	}
	for _, id := range []string{"c-rdp-dev", "c-ssh-dev"} {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO connection_group_members (group_id, connection_id) VALUES ('cg-dev', $1)
			ON CONFLICT DO NOTHING`, id); err != nil {
			return err
		}
	}
	return nil
}

func seedAccessRules(ctx context.Context, db *sql.DB) error {
	meta, err := json.Marshal(model.AccessRuleMeta{})
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO access_rules (id, name, meta) VALUES ('ar-anytime', 'anytime access', $1)
		ON CONFLICT (id) DO NOTHING`, meta); err != nil {
		return err
	}

	links := []struct{ table, query string }{
		{"user link", `
			INSERT INTO access_rule_user_links (rule_id, subject_type, subject_id)
			VALUES ('ar-anytime', 'user', 'u-alice')
			ON CONFLICT DO NOTHING`},
		{"group link", `
			INSERT INTO access_rule_user_links (rule_id, subject_type, subject_id)
			VALUES ('ar-anytime', 'user_group', 'ug-operators')
			ON CONFLICT DO NOTHING`},
		{"connection group link", `
			INSERT INTO access_rule_connection_links (rule_id, target_type, target_id)
			VALUES ('ar-anytime', 'connection_group', 'cg-dev')
			ON CONFLICT DO NOTHING`},
	}
	for _, l := range links {
		if _, err := db.ExecContext(ctx, l.query); err != nil {
			return fmt.Errorf("%s: %w", l.table, err)
		}
	}
	return nil
}

func seedSettings(ctx context.Context, db *sql.DB) error {
	license, err := json.Marshal(model.License{
		Valid:         true,
		HardwareValid: true,
		IssuedAt:      time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	settings := []struct{ name, value string }{
		{model.SettingLicense, string(license)},
		{model.SettingHAMode, "false"},
	}
	for _, s := range settings {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO settings (type, name, value) VALUES ($1, $2, $3)
			ON CONFLICT (type, name) DO NOTHING`,
			model.SettingTypeSystem, s.name, s.value); err != nil {
			return err
		}
	}
	return nil
}
