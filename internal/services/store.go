package services

import (
	"context"

	"github.com/mooover/mooover-services/models"
)

// Repository is the set of point operations the entity store offers. Inside a unit of work
// started with Store.Atomically the same operations run against one transaction.
type Repository interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	// LockUser is GetUser that additionally holds the user row until the unit of work ends.
	LockUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, user models.User) error
	UpdateUser(ctx context.Context, user models.User) error
	IncrementUserSteps(ctx context.Context, id string, delta int) error

	GetGroup(ctx context.Context, id string) (*models.Group, error)
	LockGroup(ctx context.Context, id string) (*models.Group, error)
	ListGroups(ctx context.Context) ([]models.Group, error)
	CreateGroup(ctx context.Context, group models.Group) error
	UpdateGroup(ctx context.Context, group models.Group) error
	DeleteGroup(ctx context.Context, id string) error
	// IncrementGroupSteps adds the deltas to the group counters, never going below zero.
	IncrementGroupSteps(ctx context.Context, id string, today, week int) error

	// GroupOfUser returns nil without error when the user has no group.
	GroupOfUser(ctx context.Context, userID string) (*models.Group, error)
	GroupMembers(ctx context.Context, groupID string) ([]models.User, error)
	CountMembers(ctx context.Context, groupID string) (int, error)
	AddMember(ctx context.Context, userID, groupID string) error
	RemoveMember(ctx context.Context, userID, groupID string) error

	ResetDailySteps(ctx context.Context) (ResetResult, error)
	ResetWeeklySteps(ctx context.Context) (ResetResult, error)
}

// Store is a Repository that can group operations into atomic units of work.
type Store interface {
	Repository
	// Atomically runs fn against a transactional view of the store. Changes made through
	// the view are committed when fn returns nil and discarded otherwise.
	Atomically(ctx context.Context, fn func(repo Repository) error) error
	Close() error
}

// ResetResult reports how many records a reset touched.
type ResetResult struct {
	Users  int64
	Groups int64
}
