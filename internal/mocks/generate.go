// Package mocks provides mock implementations for testing the session broker.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository
// and upstream-client interfaces. The mocks are generated using go:generate directives and
// provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockSessionRepository(ctrl)
//	mockRepo.EXPECT().GetByID(gomock.Any(), "s-1").Return(session, nil)
package mocks

// Generate mocks for the persistence ports from internal/core: session rows,
// directory lookups, flattened access grants and system settings.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=repositories_mock.go github.com/rajapam/broker/internal/core SessionRepository,DirectoryRepository,AccessRepository,SettingsRepository

// Generate mocks for the upstream collaborator ports: the tunnel and
// transparent proxy services, the credential backend and the license source.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=upstreams_mock.go github.com/rajapam/broker/internal/core TunnelAPI,TransparentAPI,CredentialStore,LicenseSource

// Generate mocks for the recording pipeline ports: the delayed encode queue,
// the encoder microservice and the descriptor store.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=encoding_mock.go github.com/rajapam/broker/internal/core EncodeQueue,EncoderAPI,DescriptorStore
