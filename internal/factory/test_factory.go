package factory

import (
	"time"

	"github.com/mcoot/mathlan/internal/config"
	"github.com/mcoot/mathlan/internal/dependencies/mocks"
	"github.com/mcoot/mathlan/internal/storage/memory"
	"github.com/mcoot/mathlan/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// TestConfig returns defaults bound to loopback with announcing disabled
func TestConfig() *config.Config {
	cfg, err := config.Load(config.New(), "")
	if err != nil {
		panic(err)
	}
	cfg.Host.BindHost = "127.0.0.1"
	cfg.Host.Port = 0
	cfg.Host.AdvertiseIP = "127.0.0.1"
	cfg.Host.DisableAnnounce = true
	cfg.Discovery.BindHost = "127.0.0.1"
	cfg.Discovery.Port = 0
	return cfg
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// A nil cfg uses TestConfig.
func NewTestApp(cfg *config.Config) *TestApp {
	if cfg == nil {
		cfg = TestConfig()
	}
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(cfg, store, mockClock, mockRandom, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
