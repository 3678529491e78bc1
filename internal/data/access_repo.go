package data

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/rajapam/broker/internal/errors"

	"github.com/rajapam/broker/internal/data/pgxutil"
	"github.com/rajapam/broker/internal/domain/model"
)

// AccessRepo resolves the flattened grant set for a user. A grant exists via
// four paths: user to connection, user to connection group, user group to
// connection, and user group to connection group. All four collapse into the
// same (connection, accessRule) pair shape.
type AccessRepo struct {
	DB *sql.DB
}

// NewAccessRepo creates a new AccessRepo instance with the given database connection.
func NewAccessRepo(db *sql.DB) *AccessRepo {
	return &AccessRepo{DB: db}
}

// accessGrantQuery flattens every grant path in one pass. Disabled
// connections are intentionally kept in the result; the disabled check
// belongs to the caller and applies to the matched pair only.
const accessGrantQuery = `
	WITH subject_rules AS (
		SELECT rule_id
		FROM access_rule_user_links
		WHERE (subject_type = 'user' AND subject_id = $1)
		   OR (subject_type = 'user_group' AND subject_id IN (
				SELECT group_id FROM user_group_members WHERE user_id = $1))
	),
	rule_connections AS (
		SELECT l.rule_id, l.target_id AS connection_id
		FROM access_rule_connection_links l
		WHERE l.target_type = 'connection'
		UNION
		SELECT l.rule_id, m.connection_id
		FROM access_rule_connection_links l
		JOIN connection_group_members m ON m.group_id = l.target_id
		WHERE l.target_type = 'connection_group'
	)
	SELECT DISTINCT
		c.id       AS connection_id,
		c.name     AS connection_name,
		c.hostname AS hostname,
		c.protocol AS protocol,
		c.meta     AS connection_meta,
		r.id       AS rule_id,
		r.name     AS rule_name,
		r.meta     AS rule_meta
	FROM subject_rules sr
	JOIN rule_connections rc ON rc.rule_id = sr.rule_id
	JOIN connections c ON c.id = rc.connection_id
	JOIN access_rules r ON r.id = sr.rule_id`

// accessGrantRow is the flat scan target for accessGrantQuery.
type accessGrantRow struct {
	ConnectionID   string               `db:"connection_id"`
	ConnectionName string               `db:"connection_name"`
	Hostname       string               `db:"hostname"`
	Protocol       model.Protocol       `db:"protocol"`
	ConnectionMeta model.ConnectionMeta `db:"connection_meta"`
	RuleID         string               `db:"rule_id"`
	RuleName       string               `db:"rule_name"`
	RuleMeta       model.AccessRuleMeta `db:"rule_meta"`
}

// ListGrants returns the deduplicated (connection, accessRule) pairs the user
// holds through any grant path. An empty result means no access; callers must
// not distinguish "no grants" from "user unknown".
func (r *AccessRepo) ListGrants(ctx context.Context, userID string) ([]model.AccessGrant, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	var rows []accessGrantRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		result, err := pgxConn.Query(ctx, accessGrantQuery, userID)
		if err != nil {
			return err
		}
		defer result.Close()

		rows, err = pgx.CollectRows(result, pgx.RowToStructByName[accessGrantRow])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}

	grants := make([]model.AccessGrant, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		grant := model.AccessGrant{
			Connection: model.Connection{
				ID:       row.ConnectionID,
				Name:     row.ConnectionName,
				Hostname: row.Hostname,
				Protocol: row.Protocol,
				Meta:     row.ConnectionMeta,
			},
			AccessRule: model.AccessRule{
				ID:   row.RuleID,
				Name: row.RuleName,
				Meta: row.RuleMeta,
			},
		}
		if _, dup := seen[grant.Key()]; dup {
			continue
		}
		seen[grant.Key()] = struct{}{}
		grants = append(grants, grant)
	}

	return grants, nil
}
