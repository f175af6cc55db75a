package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mooover/mooover-services/internal/apperr"
	"github.com/mooover/mooover-services/internal/services"
	"github.com/mooover/mooover-services/models"
)

func (r repo) GroupOfUser(ctx context.Context, userID string) (*models.Group, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT g.nickname, g.name, g.today_steps, g.this_week_steps, g.daily_steps_goal, g.weekly_steps_goal
		FROM memberships m
		JOIN groups g ON g.nickname = m.group_id
		WHERE m.user_id = $1`, userID)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, nil, nil)
	}
	return &g, nil
}

func (r repo) GroupMembers(ctx context.Context, groupID string) ([]models.User, error) {
	if _, err := r.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT u.id, u.name, u.given_name, u.family_name, u.nickname, u.email, u.picture,
			u.today_steps, u.this_week_steps, u.daily_steps_goal, u.weekly_steps_goal, u.app_theme
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.group_id = $1
		ORDER BY u.created_at, u.id`, groupID)
	if err != nil {
		return nil, mapError(err, nil, nil)
	}
	return collectUsers(rows)
}

func (r repo) CountMembers(ctx context.Context, groupID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM memberships WHERE group_id = $1`, groupID).Scan(&n)
	if err != nil {
		return 0, mapError(err, nil, nil)
	}
	return n, nil
}

// AddMember relies on the memberships primary key to reject a second group for the user.
func (r repo) AddMember(ctx context.Context, userID, groupID string) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO memberships (user_id, group_id) VALUES ($1, $2)`, userID, groupID)
	return mapError(err,
		apperr.NotFound("user %s or group %s not found", userID, groupID),
		apperr.Duplicate(apperr.ReasonAlreadyInGroup, "user %s is already a member of a group", userID))
}

func (r repo) RemoveMember(ctx context.Context, userID, groupID string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM memberships WHERE user_id = $1 AND group_id = $2`, userID, groupID)
	if err != nil {
		return mapError(err, nil, nil)
	}
	return expectRow(res, apperr.NotFound("user %s is not a member of group %s", userID, groupID))
}

func (r repo) ResetDailySteps(ctx context.Context) (services.ResetResult, error) {
	return r.reset(ctx, "today_steps")
}

func (r repo) ResetWeeklySteps(ctx context.Context) (services.ResetResult, error) {
	return r.reset(ctx, "this_week_steps")
}

// reset zeroes column on every user and group. column is never user input.
func (r repo) reset(ctx context.Context, column string) (services.ResetResult, error) {
	var result services.ResetResult

	res, err := r.q.ExecContext(ctx, `UPDATE users SET `+column+` = 0`)
	if err != nil {
		return result, mapError(err, nil, nil)
	}
	if result.Users, err = res.RowsAffected(); err != nil {
		return result, apperr.Internal(err, "database error")
	}

	res, err = r.q.ExecContext(ctx, `UPDATE groups SET `+column+` = 0`)
	if err != nil {
		return result, mapError(err, nil, nil)
	}
	if result.Groups, err = res.RowsAffected(); err != nil {
		return result, apperr.Internal(err, "database error")
	}
	return result, nil
}
