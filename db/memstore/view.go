package memstore

import (
	"context"
	"slices"

	"github.com/mooover/mooover-services/internal/apperr"
	"github.com/mooover/mooover-services/internal/services"
	"github.com/mooover/mooover-services/models"
)

// view implements the repository operations on a state the caller has locked.
type view struct {
	st *state
}

func (v view) GetUser(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, ok := v.st.users[id]
	if !ok {
		return nil, apperr.NotFound("user %s not found", id)
	}
	return &u, nil
}

func (v view) LockUser(ctx context.Context, id string) (*models.User, error) {
	return v.GetUser(ctx, id)
}

func (v view) ListUsers(ctx context.Context) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(v.st.userOrder))
	for _, id := range v.st.userOrder {
		users = append(users, v.st.users[id])
	}
	return users, nil
}

func (v view) CreateUser(ctx context.Context, user models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := v.st.users[user.Sub]; ok {
		return apperr.Duplicate(apperr.ReasonUserExists, "user %s already exists", user.Sub)
	}
	v.st.users[user.Sub] = user
	v.st.userOrder = append(v.st.userOrder, user.Sub)
	return nil
}

func (v view) UpdateUser(ctx context.Context, user models.User) error {
	if _, err := v.GetUser(ctx, user.Sub); err != nil {
		return err
	}
	v.st.users[user.Sub] = user
	return nil
}

func (v view) IncrementUserSteps(ctx context.Context, id string, delta int) error {
	u, err := v.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if u.TodaySteps, err = addSteps(u.TodaySteps, delta); err != nil {
		return err
	}
	if u.ThisWeekSteps, err = addSteps(u.ThisWeekSteps, delta); err != nil {
		return err
	}
	v.st.users[id] = *u
	return nil
}

func (v view) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g, ok := v.st.groups[id]
	if !ok {
		return nil, apperr.NotFound("group %s not found", id)
	}
	return &g, nil
}

func (v view) LockGroup(ctx context.Context, id string) (*models.Group, error) {
	return v.GetGroup(ctx, id)
}

func (v view) ListGroups(ctx context.Context) ([]models.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	groups := make([]models.Group, 0, len(v.st.groupOrder))
	for _, id := range v.st.groupOrder {
		groups = append(groups, v.st.groups[id])
	}
	return groups, nil
}

func (v view) CreateGroup(ctx context.Context, group models.Group) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := v.st.groups[group.Nickname]; ok {
		return apperr.Duplicate(apperr.ReasonNicknameTaken, "group %s already exists", group.Nickname)
	}
	v.st.groups[group.Nickname] = group
	v.st.groupOrder = append(v.st.groupOrder, group.Nickname)
	return nil
}

func (v view) UpdateGroup(ctx context.Context, group models.Group) error {
	if _, err := v.GetGroup(ctx, group.Nickname); err != nil {
		return err
	}
	v.st.groups[group.Nickname] = group
	return nil
}

func (v view) DeleteGroup(ctx context.Context, id string) error {
	if _, err := v.GetGroup(ctx, id); err != nil {
		return err
	}
	delete(v.st.groups, id)
	v.st.groupOrder = slices.DeleteFunc(v.st.groupOrder, func(n string) bool { return n == id })
	for userID, groupID := range v.st.memberOf {
		if groupID == id {
			delete(v.st.memberOf, userID)
		}
	}
	return nil
}

func (v view) IncrementGroupSteps(ctx context.Context, id string, today, week int) error {
	g, err := v.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	if g.TodaySteps, err = addSteps(g.TodaySteps, today); err != nil {
		return err
	}
	if g.ThisWeekSteps, err = addSteps(g.ThisWeekSteps, week); err != nil {
		return err
	}
	v.st.groups[id] = *g
	return nil
}

func (v view) GroupOfUser(ctx context.Context, userID string) (*models.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	groupID, ok := v.st.memberOf[userID]
	if !ok {
		return nil, nil
	}
	return v.GetGroup(ctx, groupID)
}

func (v view) GroupMembers(ctx context.Context, groupID string) ([]models.User, error) {
	if _, err := v.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	members := []models.User{}
	for _, id := range v.st.userOrder {
		if v.st.memberOf[id] == groupID {
			members = append(members, v.st.users[id])
		}
	}
	return members, nil
}

func (v view) CountMembers(ctx context.Context, groupID string) (int, error) {
	members, err := v.GroupMembers(ctx, groupID)
	return len(members), err
}

func (v view) AddMember(ctx context.Context, userID, groupID string) error {
	if _, err := v.GetUser(ctx, userID); err != nil {
		return err
	}
	if _, err := v.GetGroup(ctx, groupID); err != nil {
		return err
	}
	if _, ok := v.st.memberOf[userID]; ok {
		return apperr.Duplicate(apperr.ReasonAlreadyInGroup, "user %s is already a member of a group", userID)
	}
	v.st.memberOf[userID] = groupID
	return nil
}

func (v view) RemoveMember(ctx context.Context, userID, groupID string) error {
	if _, err := v.GetUser(ctx, userID); err != nil {
		return err
	}
	if _, err := v.GetGroup(ctx, groupID); err != nil {
		return err
	}
	if v.st.memberOf[userID] != groupID {
		return apperr.NotFound("user %s is not a member of group %s", userID, groupID)
	}
	delete(v.st.memberOf, userID)
	return nil
}

func (v view) ResetDailySteps(ctx context.Context) (services.ResetResult, error) {
	if err := ctx.Err(); err != nil {
		return services.ResetResult{}, err
	}
	for id, u := range v.st.users {
		u.TodaySteps = 0
		v.st.users[id] = u
	}
	for id, g := range v.st.groups {
		g.TodaySteps = 0
		v.st.groups[id] = g
	}
	return services.ResetResult{Users: int64(len(v.st.users)), Groups: int64(len(v.st.groups))}, nil
}

func (v view) ResetWeeklySteps(ctx context.Context) (services.ResetResult, error) {
	if err := ctx.Err(); err != nil {
		return services.ResetResult{}, err
	}
	for id, u := range v.st.users {
		u.ThisWeekSteps = 0
		v.st.users[id] = u
	}
	for id, g := range v.st.groups {
		g.ThisWeekSteps = 0
		v.st.groups[id] = g
	}
	return services.ResetResult{Users: int64(len(v.st.users)), Groups: int64(len(v.st.groups))}, nil
}

// addSteps applies delta to a counter, clamping at zero. Like the PostgreSQL INTEGER column,
// a counter past models.MaxSteps is an error rather than a wrap.
func addSteps(counter, delta int) (int, error) {
	if delta > models.MaxSteps || delta < -models.MaxSteps {
		return counter, apperr.Validation("steps must not exceed %d", models.MaxSteps)
	}
	n := counter + delta
	if n > models.MaxSteps {
		return counter, apperr.Validation("steps must not exceed %d", models.MaxSteps)
	}
	return max(0, n), nil
}
