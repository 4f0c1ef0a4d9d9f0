package ports_test

import (
	"testing"

	mocks "github.com/hostelhub/portal/internal/mocks/auth"
	"github.com/hostelhub/portal/internal/ports"
)

// This test only verifies that our mocks conform to the ports at compile time.
func TestMocksImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.TokenResolver = (*mocks.StaticTokenResolver)(nil)
	var _ ports.ProfileStore = (*mocks.MemoryProfileStore)(nil)
	var _ ports.Accounts = (*mocks.MockAccounts)(nil)
	var _ ports.LoginThrottle = (*mocks.MemoryThrottle)(nil)
}
