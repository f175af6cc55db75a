package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/mooover/mooover-services/db/memstore"
	"github.com/mooover/mooover-services/internal/events"
	"github.com/mooover/mooover-services/internal/services"
	"github.com/mooover/mooover-services/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, event events.Event) error {
	args := m.Called(event.Type, event.Period)
	return args.Error(0)
}

func (m *MockNotifier) Close() {}

// failingStore rejects every unit of work.
type failingStore struct {
	*memstore.Store
}

func (f failingStore) Atomically(ctx context.Context, fn func(services.Repository) error) error {
	return assert.AnError
}

func newScheduler(t *testing.T, store services.Store, notifier events.Notifier, loc *time.Location) *Scheduler {
	t.Helper()
	logger := zerolog.Nop()
	s, err := New(store, notifier, Config{Location: loc}, &logger)
	require.NoError(t, err)
	return s
}

func seed(t *testing.T) *memstore.Store {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	coord := services.NewCoordinator(store, nil)
	for _, id := range []string{"alice", "bob"} {
		u, err := models.NewUser(models.Profile{Sub: id})
		require.NoError(t, err)
		require.NoError(t, store.CreateUser(ctx, u))
	}
	_, err := coord.CreateGroup(ctx, "alice", "team-a", "Team A")
	require.NoError(t, err)
	require.NoError(t, coord.LogSteps(ctx, "alice", 300))
	require.NoError(t, coord.LogSteps(ctx, "bob", 40))
	return store
}

func TestNextAfter(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	s := newScheduler(t, memstore.New(), nil, loc)

	tests := []struct {
		name   string
		period Period
		from   time.Time
		want   time.Time
	}{
		{"daily midday", Daily, time.Date(2024, 5, 15, 13, 45, 0, 0, loc), time.Date(2024, 5, 16, 0, 0, 0, 0, loc)},
		{"daily at midnight", Daily, time.Date(2024, 5, 16, 0, 0, 0, 0, loc), time.Date(2024, 5, 17, 0, 0, 0, 0, loc)},
		{"daily end of month", Daily, time.Date(2024, 5, 31, 23, 59, 0, 0, loc), time.Date(2024, 6, 1, 0, 0, 0, 0, loc)},
		{"weekly wednesday", Weekly, time.Date(2024, 5, 15, 13, 45, 0, 0, loc), time.Date(2024, 5, 20, 0, 0, 0, 0, loc)},
		{"weekly sunday night", Weekly, time.Date(2024, 5, 19, 23, 59, 0, 0, loc), time.Date(2024, 5, 20, 0, 0, 0, 0, loc)},
		{"weekly monday morning", Weekly, time.Date(2024, 5, 20, 0, 30, 0, 0, loc), time.Date(2024, 5, 27, 0, 0, 0, 0, loc)},
		{"converts to location", Daily, time.Date(2024, 5, 15, 22, 30, 0, 0, time.UTC), time.Date(2024, 5, 17, 0, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.NextAfter(tt.period, tt.from)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestNextAfter_WeeklyMatchesDaysUntilMonday(t *testing.T) {
	s := newScheduler(t, memstore.New(), nil, time.UTC)
	for day := 13; day <= 19; day++ { // Monday 13 to Sunday 19 May 2024
		from := time.Date(2024, 5, day, 10, 0, 0, 0, time.UTC)
		midnight := time.Date(2024, 5, day, 0, 0, 0, 0, time.UTC)
		daysAhead := 7 - (int(from.Weekday())+6)%7
		want := midnight.AddDate(0, 0, daysAhead)
		got := s.NextAfter(Weekly, from)
		assert.True(t, want.Equal(got), "from %s: want %s, got %s", from.Weekday(), want, got)
	}
}

func TestNew_InvalidSchedule(t *testing.T) {
	logger := zerolog.Nop()
	_, err := New(memstore.New(), nil, Config{Daily: "every day"}, &logger)
	assert.Error(t, err)
}

func TestRunNow_Daily(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	notifier := new(MockNotifier)
	notifier.On("Notify", events.StepsReset, "daily").Return(nil).Once()

	result, err := newScheduler(t, store, notifier, time.UTC).RunNow(ctx, Daily)

	require.NoError(t, err)
	assert.Equal(t, services.ResetResult{Users: 2, Groups: 1}, result)

	alice, _ := store.GetUser(ctx, "alice")
	assert.Equal(t, 0, alice.TodaySteps)
	assert.Equal(t, 300, alice.ThisWeekSteps)
	group, _ := store.GetGroup(ctx, "team-a")
	assert.Equal(t, 0, group.TodaySteps)
	assert.Equal(t, 300, group.ThisWeekSteps)
	notifier.AssertExpectations(t)
}

func TestRunNow_WeeklyLeavesTodayUntouched(t *testing.T) {
	ctx := context.Background()
	store := seed(t)

	_, err := newScheduler(t, store, nil, time.UTC).RunNow(ctx, Weekly)
	require.NoError(t, err)

	bob, _ := store.GetUser(ctx, "bob")
	assert.Equal(t, 40, bob.TodaySteps)
	assert.Equal(t, 0, bob.ThisWeekSteps)
	group, _ := store.GetGroup(ctx, "team-a")
	assert.Equal(t, 300, group.TodaySteps)
	assert.Equal(t, 0, group.ThisWeekSteps)
}

func TestRunNow_Failure(t *testing.T) {
	notifier := new(MockNotifier)
	s := newScheduler(t, failingStore{memstore.New()}, notifier, time.UTC)

	_, err := s.RunNow(context.Background(), Daily)

	assert.ErrorIs(t, err, assert.AnError)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestRunNow_UnknownPeriod(t *testing.T) {
	_, err := newScheduler(t, memstore.New(), nil, time.UTC).RunNow(context.Background(), Period("monthly"))
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s := newScheduler(t, memstore.New(), nil, time.UTC)
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
