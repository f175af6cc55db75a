package db_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mooover/mooover-services/db"
	"github.com/mooover/mooover-services/internal/apperr"
	"github.com/mooover/mooover-services/internal/services"
	"github.com/mooover/mooover-services/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a PostgreSQL container and returns a migrated store.
func setupPostgres(t *testing.T) *db.StepsDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:13",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}

	postgresC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("could not start container: %v", err)
	}
	t.Cleanup(func() { postgresC.Terminate(ctx) })

	host, err := postgresC.Host(ctx)
	require.NoError(t, err)
	port, err := postgresC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, port.Port())

	logger := zerolog.Nop()
	var store *db.StepsDB
	// the port can be open before the server accepts connections
	for i := 0; i < 10; i++ {
		store, err = db.NewStepsDB(connStr, &logger)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Migrate(ctx))
	return store
}

func TestPostgres_MembershipLifecycle(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()
	users := services.NewUserDirectory(store)
	groups := services.NewGroupRegistry(store)
	coord := services.NewCoordinator(store, nil)

	_, err := users.Create(ctx, models.Profile{Sub: "alice", Name: "Alice"})
	require.NoError(t, err)
	_, err = users.Create(ctx, models.Profile{Sub: "alice"})
	assert.Equal(t, apperr.ReasonUserExists, apperr.ReasonOf(err))

	_, err = coord.CreateGroup(ctx, "alice", "team-a", "Team A")
	require.NoError(t, err)
	require.NoError(t, coord.LogSteps(ctx, "alice", 100))

	bob, err := users.Create(ctx, models.Profile{Sub: "bob"})
	require.NoError(t, err)
	bob.TodaySteps, bob.ThisWeekSteps = 50, 50
	require.NoError(t, users.Update(ctx, *bob))
	require.NoError(t, coord.AddMember(ctx, "bob", "team-a"))

	g, err := groups.Get(ctx, "team-a")
	require.NoError(t, err)
	assert.Equal(t, 150, g.TodaySteps)

	_, err = coord.CreateGroup(ctx, "bob", "team-b", "Team B")
	assert.Equal(t, apperr.ReasonAlreadyInGroup, apperr.ReasonOf(err))
	_, err = groups.Get(ctx, "team-b")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	deleted, err := coord.RemoveMember(ctx, "alice", "team-a")
	require.NoError(t, err)
	assert.False(t, deleted)
	g, err = groups.Get(ctx, "team-a")
	require.NoError(t, err)
	assert.Equal(t, 50, g.TodaySteps)

	deleted, err = coord.RemoveMember(ctx, "bob", "team-a")
	require.NoError(t, err)
	assert.True(t, deleted)
	_, err = coord.GroupOf(ctx, "bob")
	assert.True(t, apperr.Is(err, apperr.KindNoContent))
}

func TestPostgres_ConcurrentLogSteps(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()
	users := services.NewUserDirectory(store)
	coord := services.NewCoordinator(store, nil)

	for _, id := range []string{"alice", "bob"} {
		_, err := users.Create(ctx, models.Profile{Sub: id})
		require.NoError(t, err)
	}
	_, err := coord.CreateGroup(ctx, "alice", "team-a", "Team A")
	require.NoError(t, err)
	require.NoError(t, coord.AddMember(ctx, "bob", "team-a"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "alice"
			if i%2 == 1 {
				id = "bob"
			}
			assert.NoError(t, coord.LogSteps(ctx, id, 10))
		}(i)
	}
	wg.Wait()

	g, err := store.GetGroup(ctx, "team-a")
	require.NoError(t, err)
	assert.Equal(t, 200, g.TodaySteps)
	assert.Equal(t, 200, g.ThisWeekSteps)

	err = store.Atomically(ctx, func(repo services.Repository) error {
		_, err := repo.ResetDailySteps(ctx)
		return err
	})
	require.NoError(t, err)
	g, err = store.GetGroup(ctx, "team-a")
	require.NoError(t, err)
	assert.Equal(t, 0, g.TodaySteps)
	assert.Equal(t, 200, g.ThisWeekSteps)
}
