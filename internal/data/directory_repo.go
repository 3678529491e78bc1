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

// Shared sentinel errors for directory lookups.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrConnectionNotFound = errors.New("connection not found")
)

// DirectoryRepo provides read-only lookups against the user and connection
// directory. The directory is managed by the admin dashboard; the broker
// only reads it.
type DirectoryRepo struct {
	DB *sql.DB
}

// NewDirectoryRepo creates a new DirectoryRepo instance with the given database connection.
func NewDirectoryRepo(db *sql.DB) *DirectoryRepo {
	return &DirectoryRepo{DB: db}
}

const userColumns = `id, username`

const connectionColumns = `id, name, hostname, protocol, meta`

// GetUser retrieves a user by ID.
func (r *DirectoryRepo) GetUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, errors.New("user id is required")
	}
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetUserByUsername retrieves a user by username.
func (r *DirectoryRepo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	if username == "" {
		return nil, errors.New("username is required")
	}
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *DirectoryRepo) getUser(ctx context.Context, query, arg string) (*model.User, error) {
	var user model.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, query, arg)
		if err != nil {
			return err
		}
		defer rows.Close()

		user, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, apperrors.MapDBError(err)
	}

	return &user, nil
}

// GetConnection retrieves a connection by ID.
func (r *DirectoryRepo) GetConnection(ctx context.Context, id string) (*model.Connection, error) {
	if id == "" {
		return nil, errors.New("connection id is required")
	}

	var conn model.Connection
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx,
			`SELECT `+connectionColumns+` FROM connections WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()

		conn, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Connection])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConnectionNotFound
		}
		return nil, apperrors.MapDBError(err)
	}

	return &conn, nil
}
