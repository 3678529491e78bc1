package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	apperrors "github.com/rajapam/broker/internal/errors"

	"github.com/rajapam/broker/internal/core"
	"github.com/rajapam/broker/internal/data/pgxutil"
	"github.com/rajapam/broker/internal/domain/model"
)

// ErrSessionNotFound is returned when a session is not found.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepo provides database operations for session lifecycle management.
type SessionRepo struct {
	DB  *sql.DB
	now func() time.Time
}

// NewSessionRepo creates a new SessionRepo instance with the given database connection.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{
		DB:  db,
		now: time.Now,
	}
}

// sessionColumns defines the column list for Session SELECT queries to ensure consistent field mapping.
const sessionColumns = `id, user_id, connection_id, access_rule_id, status, meta, created_at, updated_at`

// Create inserts a new session row in the initializing status.
func (r *SessionRepo) Create(
	ctx context.Context,
	req *model.CreateSessionRequest,
) (*model.Session, error) {
	if req == nil {
		return nil, errors.New("create session request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	meta, err := json.Marshal(req.Meta)
	if err != nil {
		return nil, fmt.Errorf("marshal session meta: %w", err)
	}

	now := r.now()
	id := uuid.NewString()

	query := `
		INSERT INTO sessions (id, user_id, connection_id, access_rule_id, status, meta, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING ` + sessionColumns

	var session model.Session
	err = pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, query,
			id, req.UserID, req.ConnectionID, req.AccessRuleID,
			model.SessionStatusInitializing, meta, now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		session, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Session])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}

	return &session, nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*model.Session, error) {
	if id == "" {
		return nil, errors.New("session id is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSessionNotFound
	}

	var session model.Session
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx,
			`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()

		session, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Session])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, apperrors.MapDBError(err)
	}

	return &session, nil
}

// UpdateStatus moves a session to the given status and merges the
// "<status>At" timestamp into meta. The jsonb concatenation keeps every meta
// key the update does not name. Rows already closed never change; the stored
// row is returned either way so callers observe the winning state.
func (r *SessionRepo) UpdateStatus(
	ctx context.Context,
	params core.UpdateSessionStatusParams,
) (*model.Session, error) {
	if params.ID == "" {
		return nil, errors.New("session id is required")
	}
	if !params.Status.Valid() {
		return nil, fmt.Errorf("invalid session status %q", params.Status)
	}

	at := params.At
	if at.IsZero() {
		at = r.now()
	}

	patch, err := json.Marshal(map[string]any{
		string(params.Status) + "At": at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal meta patch: %w", err)
	}

	query := `
		UPDATE sessions
		SET status = $2,
		    meta = meta || $3::jsonb,
		    updated_at = $4
		WHERE id = $1 AND status <> 'closed'
		RETURNING ` + sessionColumns

	var session model.Session
	err = pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, query, params.ID, params.Status, patch, at)
		if err != nil {
			return err
		}
		defer rows.Close()

		session, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Session])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the session does not exist or it is already closed.
		return r.GetByID(ctx, params.ID)
	}
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}

	return &session, nil
}

// MarkProvisioned merges the provisioning outcome into meta and moves the
// session from initializing to ready. Only sessions still initializing are
// eligible; anything else returns NotFound so the caller can re-read.
func (r *SessionRepo) MarkProvisioned(
	ctx context.Context,
	id string,
	update model.ProvisionedUpdate,
) (*model.Session, error) {
	if id == "" {
		return nil, errors.New("session id is required")
	}

	now := r.now()

	fields := map[string]any{
		"readyAt": now.UTC().Format(time.RFC3339),
	}
	if update.AuthToken != "" {
		fields["authToken"] = update.AuthToken
	}
	if update.SharingProfileID != nil {
		fields["sharingProfileId"] = *update.SharingProfileID
	}
	if update.TransparentMode {
		fields["transparentMode"] = true
	}
	if update.TransparentFile != "" {
		fields["transparentFile"] = update.TransparentFile
	}

	patch, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal meta patch: %w", err)
	}

	query := `
		UPDATE sessions
		SET status = $2,
		    meta = meta || $3::jsonb,
		    updated_at = $4
		WHERE id = $1 AND status = 'initializing'
		RETURNING ` + sessionColumns

	var session model.Session
	err = pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, query, id, model.SessionStatusReady, patch, now)
		if err != nil {
			return err
		}
		defer rows.Close()

		session, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Session])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}

	return &session, nil
}

// ListUnclosed returns the tracker's working set: every session whose status
// is neither closed nor initializing, oldest first.
func (r *SessionRepo) ListUnclosed(ctx context.Context) ([]*model.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE status NOT IN ('closed', 'initializing')
		ORDER BY created_at ASC`

	var sessions []*model.Session
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		sessions, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Session])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}

	return sessions, nil
}

// CountConnectionsInUse counts distinct connections with at least one
// non-closed session.
func (r *SessionRepo) CountConnectionsInUse(ctx context.Context) (int, error) {
	return r.countSessions(ctx, `
		SELECT COUNT(DISTINCT connection_id)
		FROM sessions
		WHERE status <> 'closed'`)
}

// CountLiveSessions counts sessions currently in the live status.
func (r *SessionRepo) CountLiveSessions(ctx context.Context) (int, error) {
	return r.countSessions(ctx, `
		SELECT COUNT(*)
		FROM sessions
		WHERE status = 'live'`)
}

func (r *SessionRepo) countSessions(ctx context.Context, query string) (int, error) {
	var count int
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		return pgxConn.QueryRow(ctx, query).Scan(&count)
	})
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	return count, nil
}
