package factory

import (
	"time"

	"github.com/mcoot/skillmatch/internal/config"
	"github.com/mcoot/skillmatch/internal/dependencies/mocks"
	"github.com/mcoot/skillmatch/internal/dispatch"
	"github.com/mcoot/skillmatch/internal/metrics"
	"github.com/mcoot/skillmatch/internal/storage/memory"
	"github.com/mcoot/skillmatch/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Memory     *memory.Storage
}

// NewTestApp creates an App with default config and mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithConfig(config.New())
}

// NewTestAppWithConfig creates an App with the given config and mocked
// dependencies. Storage is always in memory and dispatch is logged only.
func NewTestAppWithConfig(cfg *config.Config) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	logger := testutil.NopLogger()

	app := newWithDependencies(cfg, store, mockClock, mockRandom,
		dispatch.NewLogDispatcher(logger), metrics.NewManager(), logger)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Memory:     store,
	}
}
