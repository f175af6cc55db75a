package models

import (
	"strings"

	"github.com/mooover/mooover-services/internal/apperr"
)

// Group represents a group of users. Its step counters aggregate those of its members.
type Group struct {
	Nickname        string `json:"nickname"`
	Name            string `json:"name"`
	TodaySteps      int    `json:"today_steps"`
	ThisWeekSteps   int    `json:"this_week_steps"`
	DailyStepsGoal  int    `json:"daily_steps_goal"`
	WeeklyStepsGoal int    `json:"weekly_steps_goal"`
}

// NewGroup builds a group with empty aggregates and the default goals.
func NewGroup(nickname, name string) (Group, error) {
	g := Group{
		Nickname:        nickname,
		Name:            name,
		DailyStepsGoal:  DefaultDailyStepsGoal,
		WeeklyStepsGoal: DefaultWeeklyStepsGoal,
	}
	return g, g.Validate()
}

func (g Group) Validate() error {
	if g.Nickname == "" {
		return apperr.Validation("nickname must not be empty")
	}
	return checkCounters(g.TodaySteps, g.ThisWeekSteps, g.DailyStepsGoal, g.WeeklyStepsGoal)
}

// GroupFilter selects groups by nickname and optionally by display name.
// Loose matching is case-sensitive substring containment, otherwise equality.
type GroupFilter struct {
	Query    string
	NameAlso bool
	Loose    bool
}

// Matches reports whether g is selected by the filter. An empty query selects everything.
func (f GroupFilter) Matches(g Group) bool {
	if f.Query == "" {
		return true
	}
	match := func(s string) bool {
		if f.Loose {
			return strings.Contains(s, f.Query)
		}
		return s == f.Query
	}
	return match(g.Nickname) || (f.NameAlso && match(g.Name))
}
