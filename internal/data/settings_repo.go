package data

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/rajapam/broker/internal/errors"

	"github.com/rajapam/broker/internal/data/pgxutil"
	"github.com/rajapam/broker/internal/domain/model"
)

// settingsCacheTTL bounds staleness of cached settings. Settings change
// rarely (admin dashboard writes), so a short TTL is enough to keep the hot
// path off Postgres.
const settingsCacheTTL = 30 * time.Second

const settingsCachePrefix = "broker:settings:"

// SettingsRepo is the single accessor for system settings. Reads go through
// an optional Redis cache; misses fall back to Postgres.
type SettingsRepo struct {
	DB    *sql.DB
	cache *RedisCacheRepo
}

// NewSettingsRepo creates a new SettingsRepo instance with the given database connection.
// The cache may be nil, in which case every read hits Postgres.
func NewSettingsRepo(db *sql.DB, cache *RedisCacheRepo) *SettingsRepo {
	return &SettingsRepo{DB: db, cache: cache}
}

// Get returns the raw value of a system setting; NotFound when absent.
func (r *SettingsRepo) Get(ctx context.Context, name string) (string, error) {
	value, ok, err := r.Lookup(ctx, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperrors.NotFoundf("setting %q not found", name)
	}
	return value, nil
}

// Lookup returns the raw value and whether the setting exists, reserving
// errors for lookup failures.
func (r *SettingsRepo) Lookup(ctx context.Context, name string) (string, bool, error) {
	if name == "" {
		return "", false, errors.New("setting name is required")
	}

	if r.cache != nil {
		cached, err := r.cache.Get(ctx, settingsCachePrefix+name)
		// Cache failures degrade to a Postgres read.
		if err == nil && cached != nil {
			return string(cached), true, nil
		}
	}

	var setting model.Setting
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			SELECT type, name, value
			FROM settings
			WHERE type = $1 AND name = $2`,
			model.SettingTypeSystem, name)
		if err != nil {
			return err
		}
		defer rows.Close()

		setting, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Setting])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.MapDBError(err)
	}

	if r.cache != nil {
		// Best effort; a failed cache write only costs the next read.
		_ = r.cache.Set(ctx, settingsCachePrefix+name, []byte(setting.Value), settingsCacheTTL)
	}

	return setting.Value, true, nil
}
