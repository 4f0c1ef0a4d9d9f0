// Package mocks provides mock implementations for testing the hostel portal.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	identity := mocks.NewMockIdentityService(ctrl)
//	identity.EXPECT().Resolve(gomock.Any(), "token").Return(id, nil)
package mocks

// Generate mock for IdentityService interface from internal/ports package.
// This creates MockIdentityService with methods for all IdentityService interface methods:
// Resolve, Role
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_service_mock.go github.com/hostelhub/portal/internal/ports IdentityService
