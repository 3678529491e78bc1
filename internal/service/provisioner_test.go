package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/rajapam/broker/config"
	"github.com/rajapam/broker/internal/core"
	"github.com/rajapam/broker/internal/domain/model"
	apperrors "github.com/rajapam/broker/internal/errors"
	"github.com/rajapam/broker/internal/mocks"
)

type provisionTestEnv struct {
	credentials *mocks.MockCredentialStore
	tunnel      *mocks.MockTunnelAPI
	transparent *mocks.MockTransparentAPI
	settings    *mocks.MockSettingsRepository
	descriptors *mocks.MockDescriptorStore
	svc         *ProvisionService
}

func newProvisionTestEnv(t *testing.T, recording config.RecordingConfig) *provisionTestEnv {
	t.Helper()
	ctrl := gomock.NewController(t)

	env := &provisionTestEnv{
		credentials: mocks.NewMockCredentialStore(ctrl),
		tunnel:      mocks.NewMockTunnelAPI(ctrl),
		transparent: mocks.NewMockTransparentAPI(ctrl),
		settings:    mocks.NewMockSettingsRepository(ctrl),
		descriptors: mocks.NewMockDescriptorStore(ctrl),
	}

	var err error
	env.svc, err = NewProvisionService(ProvisionServiceOptions{
		Credentials: env.credentials,
		Tunnel:      env.tunnel,
		Transparent: env.transparent,
		Settings:    env.settings,
		Descriptors: env.descriptors,
		Recording:   recording,
	})
	require.NoError(t, err)
	return env
}

func rdpGrant() *model.AccessGrant {
	return &model.AccessGrant{
		Connection: model.Connection{
			ID:       "c-1",
			Hostname: "10.0.0.10",
			Protocol: model.ProtocolRDP,
			Meta: model.ConnectionMeta{
				Username: "svc-user",
				Password: "svc-pass",
				Domain:   "CORP",
			},
		},
		AccessRule: model.AccessRule{ID: "ar-1"},
	}
}

func transparentGrant() *model.AccessGrant {
	grant := rdpGrant()
	grant.AccessRule.Meta.TransparentMode = true
	return grant
}

func TestProvisionStandardSuccess(t *testing.T) {
	env := newProvisionTestEnv(t, config.RecordingConfig{})
	session := &model.Session{ID: "s-1"}

	var provisioned core.ProvisionCredentialsParams
	env.credentials.EXPECT().
		Provision(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.ProvisionCredentialsParams) (*core.ProvisionedCredentials, error) {
			provisioned = params
			return &core.ProvisionedCredentials{ConnectionID: 7, SharingProfileID: 11}, nil
		})
	env.tunnel.EXPECT().
		Login(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, creds core.TunnelCredentials) (string, error) {
			assert.Equal(t, provisioned.Username, creds.Username)
			assert.Equal(t, provisioned.Password, creds.Password)
			return "tok-1", nil
		})

	outcome, err := env.svc.Provision(context.Background(), session, rdpGrant())
	require.NoError(t, err)

	assert.Equal(t, `{"authToken":"tok-1"}`, outcome.TokenPayload)
	assert.Equal(t, "tok-1", outcome.Update.AuthToken)
	require.NotNil(t, outcome.Update.SharingProfileID)
	assert.Equal(t, int64(11), *outcome.Update.SharingProfileID)
	assert.False(t, outcome.Update.TransparentMode)

	assert.Len(t, provisioned.Username, 16)
	assert.Len(t, provisioned.Password, 32)
	assert.Equal(t, "10.0.0.10", provisioned.Parameters["hostname"])
	assert.Equal(t, "3389", provisioned.Parameters["port"])
	assert.Equal(t, "svc-user", provisioned.Parameters["username"])
	assert.Equal(t, "svc-pass", provisioned.Parameters["password"])
	assert.Equal(t, "CORP", provisioned.Parameters["domain"])
	assert.Equal(t, "true", provisioned.Parameters["enable-drive"])
	assert.NotContains(t, provisioned.Parameters, "disable-copy")
	assert.NotContains(t, provisioned.Parameters, "recording-path")
}

func TestProvisionStandardRecordingParameters(t *testing.T) {
	env := newProvisionTestEnv(t, config.RecordingConfig{RecordingsDir: "/var/recordings"})
	session := &model.Session{ID: "s-1"}

	env.credentials.EXPECT().
		Provision(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.ProvisionCredentialsParams) (*core.ProvisionedCredentials, error) {
			assert.Equal(t, "/var/recordings", params.Parameters["recording-path"])
			assert.Equal(t, "s-1", params.Parameters["recording-name"])
			assert.Equal(t, "true", params.Parameters["recording-include-keys"])
			return &core.ProvisionedCredentials{}, nil
		})
	env.tunnel.EXPECT().Login(gomock.Any(), gomock.Any()).Return("tok-1", nil)

	_, err := env.svc.Provision(context.Background(), session, rdpGrant())
	require.NoError(t, err)
}

func TestProvisionStandardRestrictedRule(t *testing.T) {
	env := newProvisionTestEnv(t, config.RecordingConfig{})
	grant := rdpGrant()
	grant.AccessRule.Meta.DisableClipboard = true
	grant.AccessRule.Meta.DisableFileTransfer = true

	env.credentials.EXPECT().
		Provision(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.ProvisionCredentialsParams) (*core.ProvisionedCredentials, error) {
			assert.Equal(t, "true", params.Parameters["disable-copy"])
			assert.Equal(t, "true", params.Parameters["disable-paste"])
			assert.NotContains(t, params.Parameters, "enable-drive")
			return &core.ProvisionedCredentials{}, nil
		})
	env.tunnel.EXPECT().Login(gomock.Any(), gomock.Any()).Return("tok-1", nil)

	_, err := env.svc.Provision(context.Background(), &model.Session{ID: "s-1"}, grant)
	require.NoError(t, err)
}

func TestProvisionStandardLoginFailureRevokesCredentials(t *testing.T) {
	env := newProvisionTestEnv(t, config.RecordingConfig{})

	var username string
	env.credentials.EXPECT().
		Provision(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.ProvisionCredentialsParams) (*core.ProvisionedCredentials, error) {
			username = params.Username
			return &core.ProvisionedCredentials{}, nil
		})
	env.tunnel.EXPECT().Login(gomock.Any(), gomock.Any()).Return("", errors.New("bad gateway"))
	env.credentials.EXPECT().
		Revoke(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, name string) error {
			assert.Equal(t, username, name)
			return nil
		})

	_, err := env.svc.Provision(context.Background(), &model.Session{ID: "s-1"}, rdpGrant())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeProvisioningFailed, apperrors.GetCode(err))
	assert.Contains(t, err.Error(), "Invalid tunnel response")
}

func TestProvisionStandardEmptyTokenRevokesCredentials(t *testing.T) {
	env := newProvisionTestEnv(t, config.RecordingConfig{})
	env.credentials.EXPECT().Provision(gomock.Any(), gomock.Any()).Return(&core.ProvisionedCredentials{}, nil)
	env.tunnel.EXPECT().Login(gomock.Any(), gomock.Any()).Return("", nil)
	env.credentials.EXPECT().Revoke(gomock.Any(), gomock.Any()).Return(nil)

	_, err := env.svc.Provision(context.Background(), &model.Session{ID: "s-1"}, rdpGrant())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeProvisioningFailed, apperrors.GetCode(err))
}

func TestProvisionTransparentMissingTemplate(t *testing.T) {
	env := newProvisionTestEnv(t, config.RecordingConfig{})
	env.settings.EXPECT().Lookup(gomock.Any(), model.SettingTransparentModeRDP).Return("", false, nil)

	_, err := env.svc.Provision(context.Background(), &model.Session{ID: "s-1"}, transparentGrant())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodePolicyDenied, apperrors.GetCode(err))
	assert.Contains(t, err.Error(), "Configure transparent mode requirements")
}

func TestProvisionTransparentSuccess(t *testing.T) {
	env := newProvisionTestEnv(t, config.RecordingConfig{})
	session := &model.Session{ID: "s-1"}

	env.settings.EXPECT().
		Lookup(gomock.Any(), model.SettingTransparentModeRDP).
		Return("full address:s:%h", true, nil)
	env.transparent.EXPECT().
		CreateSession(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req core.TransparentSessionRequest) (*core.TransparentSessionResult, error) {
			assert.Equal(t, "s-1", req.SessionID)
			assert.Equal(t, "10.0.0.10", req.Hostname)
			assert.Equal(t, 3389, req.Port)
			assert.Equal(t, "full address:s:%h", req.RDPTemplate)
			return &core.TransparentSessionResult{
				Success: true,
				Download: &core.TransparentDownload{
					Filename:      "s-1.rdp",
					RDPConnection: "full address:s:10.0.0.10",
				},
			}, nil
		})
	env.descriptors.EXPECT().
		Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.SaveDescriptorParams) error {
			assert.Equal(t, "s-1", params.SessionID)
			assert.Equal(t, "s-1.rdp", params.Filename)
			content, err := io.ReadAll(params.Content)
			require.NoError(t, err)
			assert.Equal(t, "full address:s:10.0.0.10", string(content))
			return nil
		})

	outcome, err := env.svc.Provision(context.Background(), session, transparentGrant())
	require.NoError(t, err)
	assert.Equal(t, `{"transparentFile":"s-1.rdp"}`, outcome.TokenPayload)
	assert.True(t, outcome.Update.TransparentMode)
	assert.Equal(t, "s-1.rdp", outcome.Update.TransparentFile)
}

func TestProvisionTransparentUpstreamRefusal(t *testing.T) {
	env := newProvisionTestEnv(t, config.RecordingConfig{})
	env.settings.EXPECT().Lookup(gomock.Any(), model.SettingTransparentModeRDP).Return("tpl", true, nil)
	env.transparent.EXPECT().
		CreateSession(gomock.Any(), gomock.Any()).
		Return(&core.TransparentSessionResult{Success: false, Message: "no capacity"}, nil)

	_, err := env.svc.Provision(context.Background(), &model.Session{ID: "s-1"}, transparentGrant())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeProvisioningFailed, apperrors.GetCode(err))
	assert.Contains(t, err.Error(), "no capacity")
}

func TestProvisionTransparentRefusalWithoutMessage(t *testing.T) {
	env := newProvisionTestEnv(t, config.RecordingConfig{})
	env.settings.EXPECT().Lookup(gomock.Any(), model.SettingTransparentModeRDP).Return("tpl", true, nil)
	env.transparent.EXPECT().
		CreateSession(gomock.Any(), gomock.Any()).
		Return(&core.TransparentSessionResult{Success: false}, nil)

	_, err := env.svc.Provision(context.Background(), &model.Session{ID: "s-1"}, transparentGrant())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contact the support team")
}

func TestProvisionTransparentMissingDownload(t *testing.T) {
	env := newProvisionTestEnv(t, config.RecordingConfig{})
	env.settings.EXPECT().Lookup(gomock.Any(), model.SettingTransparentModeRDP).Return("tpl", true, nil)
	env.transparent.EXPECT().
		CreateSession(gomock.Any(), gomock.Any()).
		Return(&core.TransparentSessionResult{Success: true}, nil)

	_, err := env.svc.Provision(context.Background(), &model.Session{ID: "s-1"}, transparentGrant())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeProvisioningFailed, apperrors.GetCode(err))
}

func TestProvisionTransparentDescriptorSaveIsBestEffort(t *testing.T) {
	env := newProvisionTestEnv(t, config.RecordingConfig{})
	env.settings.EXPECT().Lookup(gomock.Any(), model.SettingTransparentModeRDP).Return("tpl", true, nil)
	env.transparent.EXPECT().
		CreateSession(gomock.Any(), gomock.Any()).
		Return(&core.TransparentSessionResult{
			Success:  true,
			Download: &core.TransparentDownload{Filename: "s-1.rdp", RDPConnection: "tpl"},
		}, nil)
	env.descriptors.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	outcome, err := env.svc.Provision(context.Background(), &model.Session{ID: "s-1"}, transparentGrant())
	require.NoError(t, err)
	assert.Equal(t, "s-1.rdp", outcome.Update.TransparentFile)
}
