package postgresql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestHelper provides common testing utilities
type TestHelper struct {
	Container *TestContainer
	T         *testing.T
	keep      []string
}

// NewTestHelperWithConfig starts a container for the lifetime of t. It is
// skipped in short mode since it needs a docker daemon.
func NewTestHelperWithConfig(t *testing.T, config *TestContainerConfig) *TestHelper {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	if config == nil {
		config = DefaultTestContainerConfig()
	}

	container, err := NewTestContainer(context.Background(), config)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := container.Close(); err != nil {
			t.Logf("Failed to close test container: %v", err)
		}
	})

	return &TestHelper{
		Container: container,
		T:         t,
		keep:      config.KeepTables,
	}
}

// NewTestHelperWithSetup creates a test helper whose database is prepared
// by setup, typically a migration runner.
func NewTestHelperWithSetup(t *testing.T, setup SetupFunc) *TestHelper {
	config := DefaultTestContainerConfig()
	config.Setup = setup
	return NewTestHelperWithConfig(t, config)
}

// CleanupTables truncates all tables between tests, keeping the migration
// bookkeeping.
func (h *TestHelper) CleanupTables() {
	require.NoError(h.T, h.Container.TruncateAllTables(h.keep...))
}

// GetClient returns the PostgreSQL client
func (h *TestHelper) GetClient() PostgreSQLClient {
	return h.Container.Client
}
