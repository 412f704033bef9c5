package factory

import (
	"time"

	"github.com/mcoot/geoduel/internal/dependencies/mocks"
	"github.com/mcoot/geoduel/internal/engine"
	"github.com/mcoot/geoduel/internal/middleware"
	"github.com/mcoot/geoduel/internal/model"
	"github.com/mcoot/geoduel/internal/services/catalog"
	"github.com/mcoot/geoduel/internal/services/ratelimit"
	"github.com/mcoot/geoduel/internal/storage/memory"
	"github.com/mcoot/geoduel/internal/testutil"
)

// TestRegions is the catalog a TestApp plays with
var TestRegions = map[model.Region][]model.Entity{
	model.RegionEurope: {
		{Name: "France", Lat: 46.2, Lng: 2.2},
		{Name: "Spain", Lat: 40.4, Lng: -3.7},
		{Name: "Italy", Lat: 41.9, Lng: 12.6},
	},
	model.RegionAsia: {
		{Name: "Japan", Lat: 36.2, Lng: 138.3},
		{Name: "Nepal", Lat: 28.4, Lng: 84.1},
	},
}

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Memory     *memory.Storage
}

// NewTestApp creates an App configured for testing with mocked
// dependencies, two-round games and no HTTP throttle. The loop is not
// started; callers run it with App.Loop.Run.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	cat, err := catalog.NewFromRegions(TestRegions, mockRandom)
	if err != nil {
		panic(err)
	}

	cfg := engine.DefaultConfig()
	cfg.TotalRounds = 2

	app := newWithDependencies(store, mockClock, mockRandom, cat, cfg,
		ratelimit.DefaultLimits(), middleware.ThrottleConfig{}, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Memory:     store,
	}
}
