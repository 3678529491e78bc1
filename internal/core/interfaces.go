package core

import (
	"context"
	"io"
	"time"

	"github.com/rajapam/broker/internal/domain/model"
)

// This file contains repository and collaborator interface definitions (ports
// in hexagonal architecture). Service implementations should depend on these
// interfaces, not concrete implementations.

// UpdateSessionStatusParams groups parameters for SessionRepository.UpdateStatus.
type UpdateSessionStatusParams struct {
	ID     string
	Status model.SessionStatus
	// At is stamped into meta as the "<status>At" marker. Zero means now.
	At time.Time
}

// SessionRepository defines the interface for session data operations.
type SessionRepository interface {
	Create(ctx context.Context, req *model.CreateSessionRequest) (*model.Session, error)
	GetByID(ctx context.Context, id string) (*model.Session, error)

	// UpdateStatus moves a session to the given status, merging the status
	// timestamp into meta without dropping existing keys. Sessions already
	// closed are never updated; the stored row is returned either way.
	UpdateStatus(ctx context.Context, params UpdateSessionStatusParams) (*model.Session, error)

	// MarkProvisioned merges the provisioning outcome into meta and moves the
	// session from initializing to ready.
	MarkProvisioned(ctx context.Context, id string, update model.ProvisionedUpdate) (*model.Session, error)

	// ListUnclosed returns sessions whose status is neither closed nor
	// initializing, i.e. the tracker's working set.
	ListUnclosed(ctx context.Context) ([]*model.Session, error)

	// CountConnectionsInUse counts distinct connections with at least one
	// non-closed session. Used for the license connection limit.
	CountConnectionsInUse(ctx context.Context) (int, error)

	// CountLiveSessions counts sessions currently in the live status. Used
	// for the license session limit.
	CountLiveSessions(ctx context.Context) (int, error)
}

// DirectoryRepository defines point lookups against the user/connection
// directory. The broker reads the directory; it never writes it.
type DirectoryRepository interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetConnection(ctx context.Context, id string) (*model.Connection, error)
}

// AccessRepository resolves a user's direct and group-indirect grants into a
// flattened, deduplicated (connection, accessRule) set.
type AccessRepository interface {
	ListGrants(ctx context.Context, userID string) ([]model.AccessGrant, error)
}

// SettingsRepository is the single accessor for system settings.
type SettingsRepository interface {
	// Get returns the raw value of a system setting; NotFound when absent.
	Get(ctx context.Context, name string) (string, error)

	// Lookup returns the raw value and whether the setting exists, reserving
	// errors for lookup failures.
	Lookup(ctx context.Context, name string) (string, bool, error)
}

// LicenseState bundles the externally supplied license documents evaluated at
// admission time.
type LicenseState struct {
	License    *model.License
	Challenge  *model.LicenseChallenge
	ExpiryDate *time.Time
}

// LicenseSource yields the current license state.
type LicenseSource interface {
	Current(ctx context.Context) (*LicenseState, error)
}

// ProvisionCredentialsParams groups parameters for CredentialStore.Provision.
type ProvisionCredentialsParams struct {
	Username   string
	Password   string
	Connection *model.Connection
	// Parameters are the protocol connection parameters written verbatim to
	// the backend parameter table.
	Parameters map[string]string
}

// ProvisionedCredentials is the backend outcome of a standard-mode provision.
type ProvisionedCredentials struct {
	ConnectionID     int64
	SharingProfileID int64
}

// CredentialStore provisions throwaway users and connection records in the
// proxy credential backend.
type CredentialStore interface {
	Provision(ctx context.Context, params ProvisionCredentialsParams) (*ProvisionedCredentials, error)

	// Revoke removes the throwaway user and everything hanging off it.
	// Idempotent; revoking an unknown user is not an error.
	Revoke(ctx context.Context, username string) error
}

// TunnelCredentials are the throwaway credentials exchanged for a tunnel token.
type TunnelCredentials struct {
	Username string
	Password string
}

// TunnelStatus is the tunnel service's report for one token.
type TunnelStatus struct {
	HasTunnel bool `json:"hasTunnel"`
	HadTunnel bool `json:"hadTunnel"`
}

// TunnelAPI is the standard-mode tunnel service.
type TunnelAPI interface {
	// Login exchanges credentials for a bearer token.
	Login(ctx context.Context, creds TunnelCredentials) (string, error)
	Status(ctx context.Context, token string) (*TunnelStatus, error)
	// Invalidate tears down the tunnel for a token. The returned flag is the
	// service's ok acknowledgment.
	Invalidate(ctx context.Context, token string) (bool, error)
}

// TransparentSessionRequest carries everything the transparent service needs
// to set up a delegated session.
type TransparentSessionRequest struct {
	SessionID string `json:"sessionId"`
	Hostname  string `json:"hostname"`
	Port      int    `json:"port"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password,omitempty"`
	Domain    string `json:"domain,omitempty"`
	// RDPTemplate is the transparentModeRDP system setting, passed through.
	RDPTemplate         string `json:"rdpConnection,omitempty"`
	DisableClipboard    bool   `json:"disableClipboard,omitempty"`
	DisableFileTransfer bool   `json:"disableFileTransfer,omitempty"`
}

// TransparentDownload is the connection descriptor handed back by the
// transparent service on session creation.
type TransparentDownload struct {
	Filename      string `json:"filename"`
	RDPConnection string `json:"rdpConnection"`
}

// TransparentSessionResult is the transparent service's creation outcome.
type TransparentSessionResult struct {
	Success  bool                 `json:"success"`
	Message  string               `json:"message,omitempty"`
	Download *TransparentDownload `json:"download,omitempty"`
}

// TransparentLiveness is the transparent service's one-letter session state.
type TransparentLiveness string

const (
	TransparentNotAvailable TransparentLiveness = "na"
	TransparentClosed       TransparentLiveness = "c"
	TransparentInitializing TransparentLiveness = "i"
	TransparentLive         TransparentLiveness = "l"
)

// TransparentAPI is the transparent-mode proxy service.
type TransparentAPI interface {
	CreateSession(ctx context.Context, req TransparentSessionRequest) (*TransparentSessionResult, error)
	Liveness(ctx context.Context, sessionID string) (TransparentLiveness, error)
	Terminate(ctx context.Context, sessionID string) error
	RequestVideoRendering(ctx context.Context, sessionID string) error
}

// EncodeKind selects the recording artifact an encode task produces.
type EncodeKind string

const (
	EncodeKeystrokes EncodeKind = "keystrokes"
	EncodeOCR        EncodeKind = "ocr"
)

// EncodeTask is one scheduled encode unit, keyed by session and kind.
type EncodeTask struct {
	SessionID string     `json:"session_id"`
	Kind      EncodeKind `json:"kind"`
}

// EncodeQueue is the delayed, at-least-once encode task queue.
type EncodeQueue interface {
	// Schedule enqueues the task to become due at runAt. Re-scheduling an
	// already queued task keeps the earliest due time.
	Schedule(ctx context.Context, task EncodeTask, runAt time.Time) error

	// PopDue atomically removes and returns up to limit tasks due at now.
	PopDue(ctx context.Context, now time.Time, limit int) ([]EncodeTask, error)

	// TryClaim sets the processed marker for the task. Returns false when the
	// task was already claimed, making redelivery a no-op for consumers.
	TryClaim(ctx context.Context, task EncodeTask) (bool, error)
}

// EncoderAPI is the recording encoder microservice.
type EncoderAPI interface {
	Encode(ctx context.Context, task EncodeTask) error
}

// SaveDescriptorParams groups parameters for DescriptorStore.Save.
type SaveDescriptorParams struct {
	SessionID string
	Filename  string
	Content   io.Reader
}

// DescriptorStore persists transparent-mode connection descriptors for later
// download.
type DescriptorStore interface {
	Save(ctx context.Context, params SaveDescriptorParams) error
	// Open returns the descriptor content and its original filename.
	Open(ctx context.Context, sessionID string) (io.ReadCloser, string, error)
}
