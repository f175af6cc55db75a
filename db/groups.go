package db

import (
	"context"

	"github.com/mooover/mooover-services/internal/apperr"
	"github.com/mooover/mooover-services/models"
)

const groupColumns = `nickname, name, today_steps, this_week_steps, daily_steps_goal, weekly_steps_goal`

func scanGroup(row scanner) (models.Group, error) {
	var g models.Group
	err := row.Scan(&g.Nickname, &g.Name, &g.TodaySteps, &g.ThisWeekSteps, &g.DailyStepsGoal, &g.WeeklyStepsGoal)
	return g, err
}

func groupNotFound(id string) error {
	return apperr.NotFound("group %s not found", id)
}

func (r repo) getGroup(ctx context.Context, id, suffix string) (*models.Group, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM groups WHERE nickname = $1`+suffix, id)
	g, err := scanGroup(row)
	if err != nil {
		return nil, mapError(err, groupNotFound(id), nil)
	}
	return &g, nil
}

func (r repo) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	return r.getGroup(ctx, id, "")
}

func (r repo) LockGroup(ctx context.Context, id string) (*models.Group, error) {
	return r.getGroup(ctx, id, " FOR UPDATE")
}

func (r repo) ListGroups(ctx context.Context) ([]models.Group, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+groupColumns+` FROM groups ORDER BY created_at, nickname`)
	if err != nil {
		return nil, mapError(err, nil, nil)
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, mapError(err, nil, nil)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, nil, nil)
	}
	return groups, nil
}

func (r repo) CreateGroup(ctx context.Context, g models.Group) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO groups (`+groupColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		g.Nickname, g.Name, g.TodaySteps, g.ThisWeekSteps, g.DailyStepsGoal, g.WeeklyStepsGoal)
	return mapError(err, nil, apperr.Duplicate(apperr.ReasonNicknameTaken, "group nickname %s is already taken", g.Nickname))
}

func (r repo) UpdateGroup(ctx context.Context, g models.Group) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE groups SET
			name = $2, today_steps = $3, this_week_steps = $4, daily_steps_goal = $5, weekly_steps_goal = $6
		WHERE nickname = $1`,
		g.Nickname, g.Name, g.TodaySteps, g.ThisWeekSteps, g.DailyStepsGoal, g.WeeklyStepsGoal)
	if err != nil {
		return mapError(err, nil, nil)
	}
	return expectRow(res, groupNotFound(g.Nickname))
}

// DeleteGroup removes the group. Memberships go with it through the foreign key cascade.
func (r repo) DeleteGroup(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM groups WHERE nickname = $1`, id)
	if err != nil {
		return mapError(err, nil, nil)
	}
	return expectRow(res, groupNotFound(id))
}

func (r repo) IncrementGroupSteps(ctx context.Context, id string, today, week int) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE groups SET
			today_steps = GREATEST(0, today_steps + $2),
			this_week_steps = GREATEST(0, this_week_steps + $3)
		WHERE nickname = $1`, id, today, week)
	if err != nil {
		return mapError(err, nil, nil)
	}
	return expectRow(res, groupNotFound(id))
}
