package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/rajapam/broker/config"
	"github.com/rajapam/broker/internal/core"
	"github.com/rajapam/broker/internal/domain/model"
	apperrors "github.com/rajapam/broker/internal/errors"
)

// ProvisionOutcome is what a successful provision hands back to the connect
// pipeline: the serialized payload for the caller and the meta update to
// persist on the session row.
type ProvisionOutcome struct {
	TokenPayload string
	Update       model.ProvisionedUpdate
}

// ProvisionServiceOptions groups dependencies for ProvisionService.
type ProvisionServiceOptions struct {
	Credentials core.CredentialStore    // Required: proxy credential backend
	Tunnel      core.TunnelAPI          // Required: standard-mode tunnel service
	Transparent core.TransparentAPI     // Required: transparent-mode service
	Settings    core.SettingsRepository // Required: transparent RDP template lookup
	Descriptors core.DescriptorStore    // Required: transparent descriptor storage
	Recording   config.RecordingConfig  // Recording artifact configuration
	Logger      *slog.Logger            // Optional: structured logger
}

// ProvisionService materializes a session in one of the two proxy modes.
//
// Standard mode provisions a throwaway identity in the credential backend and
// exchanges it for a tunnel bearer token. Transparent mode delegates the whole
// session to the transparent service and stores the connection descriptor it
// returns.
type ProvisionService struct {
	credentials core.CredentialStore
	tunnel      core.TunnelAPI
	transparent core.TransparentAPI
	settings    core.SettingsRepository
	descriptors core.DescriptorStore
	recording   config.RecordingConfig
	logger      *slog.Logger
}

// NewProvisionService constructs a new ProvisionService.
func NewProvisionService(opts ProvisionServiceOptions) (*ProvisionService, error) {
	if opts.Credentials == nil {
		return nil, errors.New("CredentialStore is required")
	}
	if opts.Tunnel == nil {
		return nil, errors.New("TunnelAPI is required")
	}
	if opts.Transparent == nil {
		return nil, errors.New("TransparentAPI is required")
	}
	if opts.Settings == nil {
		return nil, errors.New("SettingsRepository is required")
	}
	if opts.Descriptors == nil {
		return nil, errors.New("DescriptorStore is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "provision_service")
	}

	return &ProvisionService{
		credentials: opts.Credentials,
		tunnel:      opts.Tunnel,
		transparent: opts.Transparent,
		settings:    opts.Settings,
		descriptors: opts.Descriptors,
		recording:   opts.Recording,
		logger:      logger,
	}, nil
}

// Provision runs the mode-specific provisioning flow for the session.
// The access rule's transparentMode flag selects the mode.
func (s *ProvisionService) Provision(
	ctx context.Context,
	session *model.Session,
	grant *model.AccessGrant,
) (*ProvisionOutcome, error) {
	if grant.AccessRule.Meta.TransparentMode {
		return s.provisionTransparent(ctx, session, grant)
	}
	return s.provisionStandard(ctx, session, grant)
}

// standardTokenPayload is the credential payload returned to standard-mode
// callers.
type standardTokenPayload struct {
	AuthToken string `json:"authToken"`
}

func (s *ProvisionService) provisionStandard(
	ctx context.Context,
	session *model.Session,
	grant *model.AccessGrant,
) (*ProvisionOutcome, error) {
	username, err := randomHex(8)
	if err != nil {
		return nil, fmt.Errorf("generate username: %w", err)
	}
	password, err := randomHex(16)
	if err != nil {
		return nil, fmt.Errorf("generate password: %w", err)
	}

	conn := &grant.Connection
	params := s.connectionParameters(session.ID, conn, &grant.AccessRule)

	provisioned, err := s.credentials.Provision(ctx, core.ProvisionCredentialsParams{
		Username:   username,
		Password:   password,
		Connection: conn,
		Parameters: params,
	})
	if err != nil {
		return nil, fmt.Errorf("provision credentials: %w", err)
	}

	token, err := s.tunnel.Login(ctx, core.TunnelCredentials{
		Username: username,
		Password: password,
	})
	if err != nil || token == "" {
		// The throwaway identity is useless without a token; clean it up so
		// the backend does not accumulate orphans.
		if revokeErr := s.credentials.Revoke(ctx, username); revokeErr != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to revoke credentials after login failure",
				"session_id", session.ID,
				"error", revokeErr,
			)
		}
		if err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "tunnel login failed",
				"session_id", session.ID,
				"error", err,
			)
		}
		return nil, apperrors.ProvisioningFailed("Invalid tunnel response")
	}

	payload, err := json.Marshal(standardTokenPayload{AuthToken: token})
	if err != nil {
		return nil, fmt.Errorf("encode token payload: %w", err)
	}

	sharingProfileID := provisioned.SharingProfileID
	return &ProvisionOutcome{
		TokenPayload: string(payload),
		Update: model.ProvisionedUpdate{
			AuthToken:        token,
			SharingProfileID: &sharingProfileID,
		},
	}, nil
}

// connectionParameters builds the protocol parameter set written to the
// credential backend. Empty values are dropped by the store.
func (s *ProvisionService) connectionParameters(
	sessionID string,
	conn *model.Connection,
	rule *model.AccessRule,
) map[string]string {
	params := map[string]string{
		"hostname": conn.Hostname,
		"port":     strconv.Itoa(conn.PortOrDefault()),
		"username": conn.Meta.Username,
		"password": conn.Meta.Password,
	}

	if s.recording.RecordingsDir != "" {
		params["recording-path"] = s.recording.RecordingsDir
		params["recording-name"] = sessionID
		params["recording-include-keys"] = "true"
	}

	switch conn.Protocol {
	case model.ProtocolRDP:
		params["domain"] = conn.Meta.Domain
		params["security"] = conn.Meta.Security
		if conn.Meta.IgnoreCert {
			params["ignore-cert"] = "true"
		}
		if rule.Meta.DisableClipboard {
			params["disable-copy"] = "true"
			params["disable-paste"] = "true"
		}
		if !rule.Meta.DisableFileTransfer {
			params["enable-drive"] = "true"
		}
	case model.ProtocolSSH:
		if rule.Meta.DisableClipboard {
			params["disable-copy"] = "true"
			params["disable-paste"] = "true"
		}
		if !rule.Meta.DisableFileTransfer {
			params["enable-sftp"] = "true"
		}
	}

	return params
}

// transparentTokenPayload is the descriptor payload returned to
// transparent-mode callers.
type transparentTokenPayload struct {
	TransparentFile string `json:"transparentFile"`
}

func (s *ProvisionService) provisionTransparent(
	ctx context.Context,
	session *model.Session,
	grant *model.AccessGrant,
) (*ProvisionOutcome, error) {
	rdpTemplate, ok, err := s.settings.Lookup(ctx, model.SettingTransparentModeRDP)
	if err != nil {
		return nil, fmt.Errorf("lookup transparent rdp template: %w", err)
	}
	if !ok || strings.TrimSpace(rdpTemplate) == "" {
		return nil, apperrors.PolicyDenied("Configure transparent mode requirements in the settings menu")
	}

	conn := &grant.Connection
	result, err := s.transparent.CreateSession(ctx, core.TransparentSessionRequest{
		SessionID:           session.ID,
		Hostname:            conn.Hostname,
		Port:                conn.PortOrDefault(),
		Username:            conn.Meta.Username,
		Password:            conn.Meta.Password,
		Domain:              conn.Meta.Domain,
		RDPTemplate:         rdpTemplate,
		DisableClipboard:    grant.AccessRule.Meta.DisableClipboard,
		DisableFileTransfer: grant.AccessRule.Meta.DisableFileTransfer,
	})
	if err != nil {
		return nil, err
	}

	if !result.Success {
		message := result.Message
		if message == "" {
			message = "The session could not be established: contact the support team"
		}
		return nil, apperrors.ProvisioningFailed(message)
	}
	if result.Download == nil || result.Download.Filename == "" {
		return nil, apperrors.ProvisioningFailed("The file Not prepared from Transparent Server!")
	}

	// Descriptor storage is best effort; the caller already holds the
	// descriptor content in the token payload path of the dashboard.
	if err := s.descriptors.Save(ctx, core.SaveDescriptorParams{
		SessionID: session.ID,
		Filename:  result.Download.Filename,
		Content:   strings.NewReader(result.Download.RDPConnection),
	}); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to store connection descriptor",
			"session_id", session.ID,
			"filename", result.Download.Filename,
			"error", err,
		)
	}

	payload, err := json.Marshal(transparentTokenPayload{TransparentFile: result.Download.Filename})
	if err != nil {
		return nil, fmt.Errorf("encode token payload: %w", err)
	}

	return &ProvisionOutcome{
		TokenPayload: string(payload),
		Update: model.ProvisionedUpdate{
			TransparentMode: true,
			TransparentFile: result.Download.Filename,
		},
	}, nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
