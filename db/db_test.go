package db

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/mooover/mooover-services/internal/apperr"
	"github.com/mooover/mooover-services/internal/services"
	"github.com/mooover/mooover-services/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{"id", "name", "given_name", "family_name", "nickname", "email", "picture",
	"today_steps", "this_week_steps", "daily_steps_goal", "weekly_steps_goal", "app_theme"}

func newMockDB(t *testing.T) (*StepsDB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	logger := zerolog.Nop()
	t.Cleanup(func() { conn.Close() })
	return NewStepsDBFromConn(conn, &logger), mock
}

func TestGetUser(t *testing.T) {
	store, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("alice", "Alice", "Alice", "Doe", "al", "a@example.com", "", 10, 20, 5000, 35000, "dark"))

	u, err := store.GetUser(context.Background(), "alice")

	require.NoError(t, err)
	assert.Equal(t, "alice", u.Sub)
	assert.Equal(t, 10, u.TodaySteps)
	assert.Equal(t, 20, u.ThisWeekSteps)
	assert.Equal(t, "dark", u.AppTheme)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUser_NotFound(t *testing.T) {
	store, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err := store.GetUser(context.Background(), "ghost")

	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_Duplicate(t *testing.T) {
	store, mock := newMockDB(t)
	u, _ := models.NewUser(models.Profile{Sub: "alice"})
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.CreateUser(context.Background(), u)

	assert.True(t, apperr.Is(err, apperr.KindDuplicate))
	assert.Equal(t, apperr.ReasonUserExists, apperr.ReasonOf(err))
}

func TestUpdateUser_NoRows(t *testing.T) {
	store, mock := newMockDB(t)
	u, _ := models.NewUser(models.Profile{Sub: "ghost"})
	mock.ExpectExec("UPDATE users SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateUser(context.Background(), u)

	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestIncrementGroupSteps(t *testing.T) {
	store, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("today_steps = GREATEST(0, today_steps + $2)")).
		WithArgs("team-a", -50, -70).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.IncrementGroupSteps(context.Background(), "team-a", -50, -70)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementUserSteps_OutOfRange(t *testing.T) {
	store, mock := newMockDB(t)
	mock.ExpectExec("UPDATE users SET").
		WithArgs("alice", models.MaxSteps).
		WillReturnError(&pq.Error{Code: "22003"})

	err := store.IncrementUserSteps(context.Background(), "alice", models.MaxSteps)

	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMember_Errors(t *testing.T) {
	tests := []struct {
		name   string
		code   pq.ErrorCode
		kind   apperr.Kind
		reason apperr.Reason
	}{
		{"second group", "23505", apperr.KindDuplicate, apperr.ReasonAlreadyInGroup},
		{"missing reference", "23503", apperr.KindNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockDB(t)
			mock.ExpectExec("INSERT INTO memberships").
				WithArgs("alice", "team-a").
				WillReturnError(&pq.Error{Code: tt.code})

			err := store.AddMember(context.Background(), "alice", "team-a")

			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Equal(t, tt.reason, apperr.ReasonOf(err))
		})
	}
}

func TestRemoveMember_NotMember(t *testing.T) {
	store, mock := newMockDB(t)
	mock.ExpectExec("DELETE FROM memberships").
		WithArgs("bob", "team-a").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.RemoveMember(context.Background(), "bob", "team-a")

	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGroupOfUser_NoGroup(t *testing.T) {
	store, mock := newMockDB(t)
	mock.ExpectQuery("FROM memberships m").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"nickname", "name", "today_steps", "this_week_steps",
			"daily_steps_goal", "weekly_steps_goal"}))

	g, err := store.GroupOfUser(context.Background(), "alice")

	assert.NoError(t, err)
	assert.Nil(t, g)
}

func TestUnexpectedErrorIsInternal(t *testing.T) {
	store, mock := newMockDB(t)
	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("connection reset"))

	_, err := store.CountMembers(context.Background(), "team-a")

	assert.True(t, apperr.Is(err, apperr.KindInternal))
}

func TestAtomically_Commit(t *testing.T) {
	store, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET today_steps = 0").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("UPDATE groups SET today_steps = 0").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var result services.ResetResult
	err := store.Atomically(context.Background(), func(repo services.Repository) error {
		var err error
		result, err = repo.ResetDailySteps(context.Background())
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, services.ResetResult{Users: 3, Groups: 1}, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomically_RollbackOnError(t *testing.T) {
	store, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	failure := apperr.Duplicate(apperr.ReasonAlreadyInGroup, "user alice already has a group")
	err := store.Atomically(context.Background(), func(repo services.Repository) error {
		if err := repo.IncrementUserSteps(context.Background(), "alice", 10); err != nil {
			return err
		}
		return failure
	})

	assert.Equal(t, failure, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
