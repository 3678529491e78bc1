package data

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/rajapam/broker/internal/core"
	"github.com/rajapam/broker/internal/data/pgxutil"
)

// GuacamoleRepo provisions throwaway identities in the tunnel proxy's
// credential schema (MySQL). Each standard-mode session gets its own entity,
// hashed-credential user, connection with parameters, and a read-only sharing
// profile the user may hand out.
type GuacamoleRepo struct {
	DB *sql.DB
}

// NewGuacamoleRepo creates a new GuacamoleRepo instance with the given
// database connection.
func NewGuacamoleRepo(db *sql.DB) *GuacamoleRepo {
	return &GuacamoleRepo{DB: db}
}

// sharingProfilePermissions are granted to the owning entity on the sharing
// profile so the session owner fully controls shared views.
var sharingProfilePermissions = []string{"READ", "UPDATE", "DELETE", "ADMINISTER"}

// Provision writes the full credential set in one transaction and returns the
// backend row ids the broker needs to remember.
func (r *GuacamoleRepo) Provision(
	ctx context.Context,
	params core.ProvisionCredentialsParams,
) (*core.ProvisionedCredentials, error) {
	if params.Username == "" || params.Password == "" {
		return nil, errors.New("username and password are required")
	}
	if params.Connection == nil {
		return nil, errors.New("connection is required")
	}

	salt, hash, err := hashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var provisioned core.ProvisionedCredentials
	err = pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		entityID, err := insertReturningID(ctx, tx,
			"INSERT INTO guacamole_entity (name, type) VALUES (?, 'USER')",
			params.Username)
		if err != nil {
			return fmt.Errorf("insert entity: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO guacamole_user (entity_id, password_hash, password_salt, password_date)
			VALUES (?, UNHEX(?), UNHEX(?), NOW())`,
			entityID, hash, salt)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}

		connectionID, err := insertReturningID(ctx, tx, `
			INSERT INTO guacamole_connection
				(connection_name, protocol, failover_only, proxy_hostname, proxy_port, proxy_encryption_method)
			VALUES (?, ?, 0, NULL, NULL, NULL)`,
			params.Connection.Name, string(params.Connection.Protocol))
		if err != nil {
			return fmt.Errorf("insert connection: %w", err)
		}

		for name, value := range params.Parameters {
			if value == "" {
				continue
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO guacamole_connection_parameter (connection_id, parameter_name, parameter_value)
				VALUES (?, ?, ?)`,
				connectionID, name, value)
			if err != nil {
				return fmt.Errorf("insert connection parameter %q: %w", name, err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO guacamole_connection_permission (entity_id, connection_id, permission)
			VALUES (?, ?, 'READ')`,
			entityID, connectionID)
		if err != nil {
			return fmt.Errorf("insert connection permission: %w", err)
		}

		sharingProfileID, err := insertReturningID(ctx, tx, `
			INSERT INTO guacamole_sharing_profile (sharing_profile_name, primary_connection_id)
			VALUES (?, ?)`,
			params.Username, connectionID)
		if err != nil {
			return fmt.Errorf("insert sharing profile: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO guacamole_sharing_profile_parameter (sharing_profile_id, parameter_name, parameter_value)
			VALUES (?, 'read-only', 'true')`,
			sharingProfileID)
		if err != nil {
			return fmt.Errorf("insert sharing profile parameter: %w", err)
		}

		for _, permission := range sharingProfilePermissions {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO guacamole_sharing_profile_permission (entity_id, sharing_profile_id, permission)
				VALUES (?, ?, ?)`,
				entityID, sharingProfileID, permission)
			if err != nil {
				return fmt.Errorf("insert sharing profile permission %q: %w", permission, err)
			}
		}

		provisioned = core.ProvisionedCredentials{
			ConnectionID:     connectionID,
			SharingProfileID: sharingProfileID,
		}
		return nil
	}})
	if err != nil {
		return nil, err
	}

	return &provisioned, nil
}

// Revoke removes the throwaway identity and everything hanging off it.
// The schema cascades user rows and permissions from the entity; the
// connection and sharing profile are removed explicitly. Revoking an unknown
// username is a no-op.
func (r *GuacamoleRepo) Revoke(ctx context.Context, username string) error {
	if username == "" {
		return errors.New("username is required")
	}

	return pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		var entityID int64
		err := tx.QueryRowContext(ctx,
			"SELECT entity_id FROM guacamole_entity WHERE name = ? AND type = 'USER'",
			username).Scan(&entityID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lookup entity: %w", err)
		}

		// The sharing profile carries the throwaway username; its parameters
		// and permissions cascade from the profile row.
		_, err = tx.ExecContext(ctx,
			"DELETE FROM guacamole_sharing_profile WHERE sharing_profile_name = ?",
			username)
		if err != nil {
			return fmt.Errorf("delete sharing profile: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			DELETE c FROM guacamole_connection c
			JOIN guacamole_connection_permission p ON p.connection_id = c.connection_id
			WHERE p.entity_id = ?`,
			entityID)
		if err != nil {
			return fmt.Errorf("delete connection: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			"DELETE FROM guacamole_entity WHERE entity_id = ?",
			entityID)
		if err != nil {
			return fmt.Errorf("delete entity: %w", err)
		}
		return nil
	}})
}

func insertReturningID(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// hashPassword derives the backend's salted SHA-256 credential pair: a random
// salt and sha256(password + salt), both uppercase hex as the schema stores
// them via UNHEX.
func hashPassword(password string) (salt, hash string, err error) {
	var raw [10]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", "", err
	}

	saltSum := sha256.Sum256([]byte(hex.EncodeToString(raw[:])))
	salt = strings.ToUpper(hex.EncodeToString(saltSum[:]))

	hashSum := sha256.Sum256([]byte(password + salt))
	hash = strings.ToUpper(hex.EncodeToString(hashSum[:]))

	return salt, hash, nil
}
