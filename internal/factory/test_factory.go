package factory

import (
	"time"

	"github.com/mcoot/omokgame/internal/dependencies/mocks"
	"github.com/mcoot/omokgame/internal/services/auth"
	"github.com/mcoot/omokgame/internal/storage"
	"github.com/mcoot/omokgame/internal/storage/memory"
	"github.com/mcoot/omokgame/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an in-memory App with mocked clock and random
func NewTestApp() *TestApp {
	store := memory.New()
	return NewTestAppWithStores(store, store, memory.NewLocker())
}

// NewTestAppWithStores wires mocked clock and random around the given stores,
// e.g. a redis store backed by miniredis
func NewTestAppWithStores(games storage.GameStore, profiles storage.ProfileStore, locker storage.Locker) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(dependencies{
		games:    games,
		profiles: profiles,
		locker:   locker,
		clock:    mockClock,
		random:   mockRandom,
		authCfg:  auth.DefaultConfig(),
		logger:   testutil.NopLogger(),
	})

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
