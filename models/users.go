package models

import (
	"math"

	"github.com/mooover/mooover-services/internal/apperr"
)

const (
	DefaultDailyStepsGoal  = 5000
	DefaultWeeklyStepsGoal = 35000

	// MaxSteps bounds every counter and goal. Counters are stored as 32-bit integers.
	MaxSteps = math.MaxInt32

	ThemeLight = "light"
	ThemeDark  = "dark"
)

// User represents a registered user and their step counters.
type User struct {
	Sub             string `json:"sub"`
	Name            string `json:"name"`
	GivenName       string `json:"given_name"`
	FamilyName      string `json:"family_name"`
	Nickname        string `json:"nickname"`
	Email           string `json:"email"`
	Picture         string `json:"picture"`
	TodaySteps      int    `json:"today_steps"`
	ThisWeekSteps   int    `json:"this_week_steps"`
	DailyStepsGoal  int    `json:"daily_steps_goal"`
	WeeklyStepsGoal int    `json:"weekly_steps_goal"`
	AppTheme        string `json:"app_theme"`
}

// Profile holds the identity fields issued by the token provider on first registration.
type Profile struct {
	Sub        string
	Name       string
	GivenName  string
	FamilyName string
	Nickname   string
	Email      string
	Picture    string
}

// NewUser builds a freshly registered user with zero steps and the default goals and theme.
func NewUser(p Profile) (User, error) {
	u := User{
		Sub:             p.Sub,
		Name:            p.Name,
		GivenName:       p.GivenName,
		FamilyName:      p.FamilyName,
		Nickname:        p.Nickname,
		Email:           p.Email,
		Picture:         p.Picture,
		DailyStepsGoal:  DefaultDailyStepsGoal,
		WeeklyStepsGoal: DefaultWeeklyStepsGoal,
		AppTheme:        ThemeLight,
	}
	return u, u.Validate()
}

// Validate checks the constraints every stored user must satisfy.
func (u User) Validate() error {
	if u.Sub == "" {
		return apperr.Validation("sub must not be empty")
	}
	if err := checkCounters(u.TodaySteps, u.ThisWeekSteps, u.DailyStepsGoal, u.WeeklyStepsGoal); err != nil {
		return err
	}
	if u.AppTheme != ThemeLight && u.AppTheme != ThemeDark {
		return apperr.Validation("app_theme must be %q or %q", ThemeLight, ThemeDark)
	}
	return nil
}

func checkCounters(today, week, dailyGoal, weeklyGoal int) error {
	if today < 0 || week < 0 {
		return apperr.Validation("steps must not be negative")
	}
	if dailyGoal <= 0 || weeklyGoal <= 0 {
		return apperr.Validation("steps goals must be positive")
	}
	if today > MaxSteps || week > MaxSteps || dailyGoal > MaxSteps || weeklyGoal > MaxSteps {
		return apperr.Validation("steps must not exceed %d", MaxSteps)
	}
	return nil
}

// StepsResponse reports the current counters of a user or a group.
type StepsResponse struct {
	TodaySteps    int `json:"today_steps"`
	ThisWeekSteps int `json:"this_week_steps"`
}
