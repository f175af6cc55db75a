package models

import (
	"strings"

	"github.com/mooover/mooover-services/internal/apperr"
)

// Request payloads use pointer fields so that absent keys can be told apart from zero values.

type CreateUserRequest struct {
	Sub        *string `json:"sub"`
	Name       *string `json:"name"`
	GivenName  *string `json:"given_name"`
	FamilyName *string `json:"family_name"`
	Nickname   *string `json:"nickname"`
	Email      *string `json:"email"`
	Picture    *string `json:"picture"`
}

// Profile returns the profile carried by the request.
func (r CreateUserRequest) Profile() (Profile, error) {
	var f fields
	p := Profile{
		Sub:        f.id("sub", r.Sub),
		Name:       f.str("name", r.Name),
		GivenName:  f.str("given_name", r.GivenName),
		FamilyName: f.str("family_name", r.FamilyName),
		Nickname:   f.str("nickname", r.Nickname),
		Email:      f.str("email", r.Email),
		Picture:    f.str("picture", r.Picture),
	}
	return p, f.err()
}

type UpdateUserRequest struct {
	Sub             *string `json:"sub"`
	Name            *string `json:"name"`
	GivenName       *string `json:"given_name"`
	FamilyName      *string `json:"family_name"`
	Nickname        *string `json:"nickname"`
	Email           *string `json:"email"`
	Picture         *string `json:"picture"`
	TodaySteps      *int    `json:"today_steps"`
	ThisWeekSteps   *int    `json:"this_week_steps"`
	DailyStepsGoal  *int    `json:"daily_steps_goal"`
	WeeklyStepsGoal *int    `json:"weekly_steps_goal"`
	AppTheme        *string `json:"app_theme"`
}

// User returns the replacement record for the user identified by id. Every field except
// sub is required; when sub is given it must equal id.
func (r UpdateUserRequest) User(id string) (User, error) {
	if r.Sub != nil && *r.Sub != id {
		return User{}, apperr.Validation("sub %q does not match user %q", *r.Sub, id)
	}
	var f fields
	u := User{
		Sub:             id,
		Name:            f.str("name", r.Name),
		GivenName:       f.str("given_name", r.GivenName),
		FamilyName:      f.str("family_name", r.FamilyName),
		Nickname:        f.str("nickname", r.Nickname),
		Email:           f.str("email", r.Email),
		Picture:         f.str("picture", r.Picture),
		TodaySteps:      f.num("today_steps", r.TodaySteps),
		ThisWeekSteps:   f.num("this_week_steps", r.ThisWeekSteps),
		DailyStepsGoal:  f.num("daily_steps_goal", r.DailyStepsGoal),
		WeeklyStepsGoal: f.num("weekly_steps_goal", r.WeeklyStepsGoal),
		AppTheme:        f.str("app_theme", r.AppTheme),
	}
	if err := f.err(); err != nil {
		return User{}, err
	}
	return u, u.Validate()
}

type CreateGroupRequest struct {
	UserID   *string `json:"user_id"`
	Nickname *string `json:"nickname"`
	Name     *string `json:"name"`
}

// Fields returns the creator id, nickname and name carried by the request.
func (r CreateGroupRequest) Fields() (userID, nickname, name string, err error) {
	var f fields
	userID = f.id("user_id", r.UserID)
	nickname = f.id("nickname", r.Nickname)
	name = f.str("name", r.Name)
	return userID, nickname, name, f.err()
}

type UpdateGroupRequest struct {
	Nickname        *string `json:"nickname"`
	Name            *string `json:"name"`
	DailyStepsGoal  *int    `json:"daily_steps_goal"`
	WeeklyStepsGoal *int    `json:"weekly_steps_goal"`
}

// Group returns the replacement record for the group identified by id. The aggregate
// counters are owned by the membership operations and are not part of the request.
func (r UpdateGroupRequest) Group(id string) (Group, error) {
	if r.Nickname != nil && *r.Nickname != id {
		return Group{}, apperr.Validation("nickname %q does not match group %q", *r.Nickname, id)
	}
	var f fields
	g := Group{
		Nickname:        id,
		Name:            f.str("name", r.Name),
		DailyStepsGoal:  f.num("daily_steps_goal", r.DailyStepsGoal),
		WeeklyStepsGoal: f.num("weekly_steps_goal", r.WeeklyStepsGoal),
	}
	if err := f.err(); err != nil {
		return Group{}, err
	}
	return g, g.Validate()
}

type MemberRequest struct {
	UserID *string `json:"user_id"`
}

func (r MemberRequest) User() (string, error) {
	var f fields
	id := f.id("user_id", r.UserID)
	return id, f.err()
}

type StepsRequest struct {
	Steps *int `json:"steps"`
}

func (r StepsRequest) Delta() (int, error) {
	var f fields
	steps := f.num("steps", r.Steps)
	if err := f.err(); err != nil {
		return 0, err
	}
	if err := CheckDelta(steps); err != nil {
		return 0, err
	}
	return steps, nil
}

// CheckDelta rejects step increments that are negative or larger than a counter can hold.
func CheckDelta(steps int) error {
	if steps < 0 {
		return apperr.Validation("steps must not be negative")
	}
	if steps > MaxSteps {
		return apperr.Validation("steps must not exceed %d", MaxSteps)
	}
	return nil
}

// fields collects the names of absent required fields.
type fields struct {
	missing []string
}

func (f *fields) str(name string, v *string) string {
	if v == nil {
		f.missing = append(f.missing, name)
		return ""
	}
	return *v
}

// id is like str but also rejects empty values.
func (f *fields) id(name string, v *string) string {
	if v == nil || *v == "" {
		f.missing = append(f.missing, name)
		return ""
	}
	return *v
}

func (f *fields) num(name string, v *int) int {
	if v == nil {
		f.missing = append(f.missing, name)
		return 0
	}
	return *v
}

func (f *fields) err() error {
	if len(f.missing) == 0 {
		return nil
	}
	return apperr.Validation("missing required fields: %s", strings.Join(f.missing, ", "))
}
