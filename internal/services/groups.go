package services

import (
	"context"

	"github.com/mooover/mooover-services/models"
)

// GroupRegistry owns group records. Membership changes go through Coordinator.
type GroupRegistry struct {
	store Store
}

func NewGroupRegistry(store Store) *GroupRegistry {
	return &GroupRegistry{store: store}
}

func (g *GroupRegistry) Get(ctx context.Context, id string) (*models.Group, error) {
	return g.store.GetGroup(ctx, id)
}

// List returns the groups selected by filter, in store order.
func (g *GroupRegistry) List(ctx context.Context, filter models.GroupFilter) ([]models.Group, error) {
	groups, err := g.store.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	filtered := make([]models.Group, 0, len(groups))
	for _, group := range groups {
		if filter.Matches(group) {
			filtered = append(filtered, group)
		}
	}
	return filtered, nil
}

// Update replaces the name and goals of an existing group. The aggregate counters keep
// their stored values.
func (g *GroupRegistry) Update(ctx context.Context, group models.Group) error {
	if err := group.Validate(); err != nil {
		return err
	}
	return g.store.Atomically(ctx, func(repo Repository) error {
		current, err := repo.LockGroup(ctx, group.Nickname)
		if err != nil {
			return err
		}
		group.TodaySteps = current.TodaySteps
		group.ThisWeekSteps = current.ThisWeekSteps
		return repo.UpdateGroup(ctx, group)
	})
}

// Delete removes the group together with its membership relations.
func (g *GroupRegistry) Delete(ctx context.Context, id string) error {
	return g.store.DeleteGroup(ctx, id)
}

func (g *GroupRegistry) Members(ctx context.Context, id string) ([]models.User, error) {
	members, err := g.store.GroupMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []models.User{}
	}
	return members, nil
}

func (g *GroupRegistry) Steps(ctx context.Context, id string) (models.StepsResponse, error) {
	group, err := g.store.GetGroup(ctx, id)
	if err != nil {
		return models.StepsResponse{}, err
	}
	return models.StepsResponse{TodaySteps: group.TodaySteps, ThisWeekSteps: group.ThisWeekSteps}, nil
}
