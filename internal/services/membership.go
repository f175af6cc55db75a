package services

import (
	"context"

	"github.com/mooover/mooover-services/internal/apperr"
	"github.com/mooover/mooover-services/internal/events"
	"github.com/mooover/mooover-services/internal/metrics"
	"github.com/mooover/mooover-services/models"
	"github.com/rs/zerolog"
)

// Coordinator enforces the membership invariants across users and groups:
// a user belongs to at most one group, a group's counters are the sums of its members'
// counters, and a group without members does not exist.
//
// Every operation is one unit of work on the store. Rows are locked user first, then group.
type Coordinator struct {
	store    Store
	notifier events.Notifier
}

func NewCoordinator(store Store, notifier events.Notifier) *Coordinator {
	if notifier == nil {
		notifier = events.NopNotifier{}
	}
	return &Coordinator{store: store, notifier: notifier}
}

// GroupOf returns the group of a user. It fails with NotFound when the user does not exist
// and with NoContent when the user has no group.
func (c *Coordinator) GroupOf(ctx context.Context, userID string) (*models.Group, error) {
	if _, err := c.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	group, err := c.store.GroupOfUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, apperr.NoContent("user %s has no group", userID)
	}
	return group, nil
}

// CreateGroup creates a group whose only member is the creator. The group counters start
// at the creator's current counters.
func (c *Coordinator) CreateGroup(ctx context.Context, creatorID, nickname, name string) (*models.Group, error) {
	group, err := models.NewGroup(nickname, name)
	if err != nil {
		return nil, err
	}

	err = c.store.Atomically(ctx, func(repo Repository) error {
		creator, err := repo.LockUser(ctx, creatorID)
		if err != nil {
			return err
		}
		current, err := repo.GroupOfUser(ctx, creatorID)
		if err != nil {
			return err
		}
		if current != nil {
			return apperr.Duplicate(apperr.ReasonAlreadyInGroup, "user %s already has a group", creatorID)
		}

		group.TodaySteps = creator.TodaySteps
		group.ThisWeekSteps = creator.ThisWeekSteps
		if err := repo.CreateGroup(ctx, group); err != nil {
			return err
		}
		return repo.AddMember(ctx, creatorID, nickname)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordMembershipChange("group_created")
	c.notify(ctx, events.NewEvent(events.GroupCreated, creatorID, nickname))
	return &group, nil
}

// AddMember puts a user without a group into groupID and adds the user's counters to the
// group's.
func (c *Coordinator) AddMember(ctx context.Context, userID, groupID string) error {
	err := c.store.Atomically(ctx, func(repo Repository) error {
		user, err := repo.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		if _, err := repo.LockGroup(ctx, groupID); err != nil {
			return err
		}

		current, err := repo.GroupOfUser(ctx, userID)
		if err != nil {
			return err
		}
		if current != nil {
			if current.Nickname == groupID {
				return apperr.Duplicate(apperr.ReasonAlreadyInThisGroup, "user %s is already a member of the group", userID)
			}
			return apperr.Duplicate(apperr.ReasonAlreadyInGroup, "user %s is already a member of a group", userID)
		}

		if err := repo.AddMember(ctx, userID, groupID); err != nil {
			return err
		}
		return repo.IncrementGroupSteps(ctx, groupID, user.TodaySteps, user.ThisWeekSteps)
	})
	if err != nil {
		return err
	}

	metrics.RecordMembershipChange("member_added")
	c.notify(ctx, events.NewEvent(events.MemberAdded, userID, groupID))
	return nil
}

// RemoveMember takes a user out of groupID. The group is deleted when it has no members
// left, otherwise the user's counters are subtracted from it. The returned flag reports
// whether the group was deleted.
func (c *Coordinator) RemoveMember(ctx context.Context, userID, groupID string) (bool, error) {
	var deleted bool
	err := c.store.Atomically(ctx, func(repo Repository) error {
		deleted = false
		user, err := repo.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		if _, err := repo.LockGroup(ctx, groupID); err != nil {
			return err
		}
		if err := repo.RemoveMember(ctx, userID, groupID); err != nil {
			return err
		}

		remaining, err := repo.CountMembers(ctx, groupID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			deleted = true
			return repo.DeleteGroup(ctx, groupID)
		}
		return repo.IncrementGroupSteps(ctx, groupID, -user.TodaySteps, -user.ThisWeekSteps)
	})
	if err != nil {
		return false, err
	}

	metrics.RecordMembershipChange("member_removed")
	c.notify(ctx, events.NewEvent(events.MemberRemoved, userID, groupID))
	if deleted {
		metrics.RecordMembershipChange("group_deleted")
		c.notify(ctx, events.NewEvent(events.GroupDeleted, "", groupID))
	}
	return deleted, nil
}

// LogSteps adds delta to the user's daily and weekly counters and to those of the user's
// group, if any, in one unit of work.
func (c *Coordinator) LogSteps(ctx context.Context, userID string, delta int) error {
	if err := models.CheckDelta(delta); err != nil {
		return err
	}

	var groupID string
	err := c.store.Atomically(ctx, func(repo Repository) error {
		groupID = ""
		if _, err := repo.LockUser(ctx, userID); err != nil {
			return err
		}
		if err := repo.IncrementUserSteps(ctx, userID, delta); err != nil {
			return err
		}

		group, err := repo.GroupOfUser(ctx, userID)
		if err != nil {
			return err
		}
		if group == nil {
			return nil
		}
		groupID = group.Nickname
		return repo.IncrementGroupSteps(ctx, groupID, delta, delta)
	})
	if err != nil {
		return err
	}

	metrics.RecordStepsLogged(delta)
	event := events.NewEvent(events.StepsLogged, userID, groupID)
	event.Steps = delta
	c.notify(ctx, event)
	return nil
}

func (c *Coordinator) notify(ctx context.Context, event events.Event) {
	if err := c.notifier.Notify(ctx, event); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", string(event.Type)).Msg("failed to publish event")
	}
}
