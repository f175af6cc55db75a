package db

import (
	"context"
	"database/sql"

	"github.com/mooover/mooover-services/internal/apperr"
	"github.com/mooover/mooover-services/models"
)

const userColumns = `id, name, given_name, family_name, nickname, email, picture,
	today_steps, this_week_steps, daily_steps_goal, weekly_steps_goal, app_theme`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.Sub, &u.Name, &u.GivenName, &u.FamilyName, &u.Nickname, &u.Email, &u.Picture,
		&u.TodaySteps, &u.ThisWeekSteps, &u.DailyStepsGoal, &u.WeeklyStepsGoal, &u.AppTheme)
	return u, err
}

func userNotFound(id string) error {
	return apperr.NotFound("user %s not found", id)
}

func (r repo) getUser(ctx context.Context, id, suffix string) (*models.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`+suffix, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapError(err, userNotFound(id), nil)
	}
	return &u, nil
}

func (r repo) GetUser(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, id, "")
}

// LockUser holds the row lock until the surrounding transaction ends.
func (r repo) LockUser(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, id, " FOR UPDATE")
}

func (r repo) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, mapError(err, nil, nil)
	}
	return collectUsers(rows)
}

func collectUsers(rows *sql.Rows) ([]models.User, error) {
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapError(err, nil, nil)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, nil, nil)
	}
	return users, nil
}

func (r repo) CreateUser(ctx context.Context, u models.User) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.Sub, u.Name, u.GivenName, u.FamilyName, u.Nickname, u.Email, u.Picture,
		u.TodaySteps, u.ThisWeekSteps, u.DailyStepsGoal, u.WeeklyStepsGoal, u.AppTheme)
	return mapError(err, nil, apperr.Duplicate(apperr.ReasonUserExists, "user %s already exists", u.Sub))
}

func (r repo) UpdateUser(ctx context.Context, u models.User) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET
			name = $2, given_name = $3, family_name = $4, nickname = $5, email = $6, picture = $7,
			today_steps = $8, this_week_steps = $9, daily_steps_goal = $10, weekly_steps_goal = $11,
			app_theme = $12
		WHERE id = $1`,
		u.Sub, u.Name, u.GivenName, u.FamilyName, u.Nickname, u.Email, u.Picture,
		u.TodaySteps, u.ThisWeekSteps, u.DailyStepsGoal, u.WeeklyStepsGoal, u.AppTheme)
	if err != nil {
		return mapError(err, nil, nil)
	}
	return expectRow(res, userNotFound(u.Sub))
}

// IncrementUserSteps adds delta to both counters in a single statement.
func (r repo) IncrementUserSteps(ctx context.Context, id string, delta int) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET
			today_steps = GREATEST(0, today_steps + $2),
			this_week_steps = GREATEST(0, this_week_steps + $2)
		WHERE id = $1`, id, delta)
	if err != nil {
		return mapError(err, nil, nil)
	}
	return expectRow(res, userNotFound(id))
}
