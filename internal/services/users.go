package services

import (
	"context"

	"github.com/mooover/mooover-services/models"
)

// UserDirectory owns user records and their step counters.
type UserDirectory struct {
	store Store
}

func NewUserDirectory(store Store) *UserDirectory {
	return &UserDirectory{store: store}
}

// Get returns the user or a NotFound error.
func (d *UserDirectory) Get(ctx context.Context, id string) (*models.User, error) {
	return d.store.GetUser(ctx, id)
}

func (d *UserDirectory) List(ctx context.Context) ([]models.User, error) {
	users, err := d.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// Create registers a user with default counters, goals and theme.
func (d *UserDirectory) Create(ctx context.Context, profile models.Profile) (*models.User, error) {
	user, err := models.NewUser(profile)
	if err != nil {
		return nil, err
	}
	if err := d.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Update replaces every field of an existing user. A change to the step counters of a
// grouped user is carried over to the group's counters in the same unit of work.
func (d *UserDirectory) Update(ctx context.Context, user models.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	return d.store.Atomically(ctx, func(repo Repository) error {
		current, err := repo.LockUser(ctx, user.Sub)
		if err != nil {
			return err
		}
		group, err := repo.GroupOfUser(ctx, user.Sub)
		if err != nil {
			return err
		}
		if group != nil {
			if _, err := repo.LockGroup(ctx, group.Nickname); err != nil {
				return err
			}
		}

		if err := repo.UpdateUser(ctx, user); err != nil {
			return err
		}
		if group == nil {
			return nil
		}
		return repo.IncrementGroupSteps(ctx, group.Nickname,
			user.TodaySteps-current.TodaySteps, user.ThisWeekSteps-current.ThisWeekSteps)
	})
}

func (d *UserDirectory) Steps(ctx context.Context, id string) (models.StepsResponse, error) {
	user, err := d.store.GetUser(ctx, id)
	if err != nil {
		return models.StepsResponse{}, err
	}
	return models.StepsResponse{TodaySteps: user.TodaySteps, ThisWeekSteps: user.ThisWeekSteps}, nil
}
