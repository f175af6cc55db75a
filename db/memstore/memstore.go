// Package memstore is an in-process implementation of the entity store. Every operation,
// and every unit of work as a whole, is serialized behind one mutex.
package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/mooover/mooover-services/internal/services"
	"github.com/mooover/mooover-services/models"
)

type Store struct {
	mu sync.Mutex
	st *state
}

var (
	_ services.Store      = (*Store)(nil)
	_ services.Repository = view{}
)

func New() *Store {
	return &Store{st: newState()}
}

// Atomically runs fn with the store locked. On error the state from before fn is restored.
func (s *Store) Atomically(ctx context.Context, fn func(repo services.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.st.clone()
	if err := fn(view{st: s.st}); err != nil {
		*s.st = *snapshot
		return err
	}
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) do(fn func(v view) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(view{st: s.st})
}

func (s *Store) GetUser(ctx context.Context, id string) (u *models.User, err error) {
	err = s.do(func(v view) error { u, err = v.GetUser(ctx, id); return err })
	return u, err
}

func (s *Store) LockUser(ctx context.Context, id string) (*models.User, error) {
	return s.GetUser(ctx, id)
}

func (s *Store) ListUsers(ctx context.Context) (users []models.User, err error) {
	err = s.do(func(v view) error { users, err = v.ListUsers(ctx); return err })
	return users, err
}

func (s *Store) CreateUser(ctx context.Context, user models.User) error {
	return s.do(func(v view) error { return v.CreateUser(ctx, user) })
}

func (s *Store) UpdateUser(ctx context.Context, user models.User) error {
	return s.do(func(v view) error { return v.UpdateUser(ctx, user) })
}

func (s *Store) IncrementUserSteps(ctx context.Context, id string, delta int) error {
	return s.do(func(v view) error { return v.IncrementUserSteps(ctx, id, delta) })
}

func (s *Store) GetGroup(ctx context.Context, id string) (g *models.Group, err error) {
	err = s.do(func(v view) error { g, err = v.GetGroup(ctx, id); return err })
	return g, err
}

func (s *Store) LockGroup(ctx context.Context, id string) (*models.Group, error) {
	return s.GetGroup(ctx, id)
}

func (s *Store) ListGroups(ctx context.Context) (groups []models.Group, err error) {
	err = s.do(func(v view) error { groups, err = v.ListGroups(ctx); return err })
	return groups, err
}

func (s *Store) CreateGroup(ctx context.Context, group models.Group) error {
	return s.do(func(v view) error { return v.CreateGroup(ctx, group) })
}

func (s *Store) UpdateGroup(ctx context.Context, group models.Group) error {
	return s.do(func(v view) error { return v.UpdateGroup(ctx, group) })
}

func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	return s.do(func(v view) error { return v.DeleteGroup(ctx, id) })
}

func (s *Store) IncrementGroupSteps(ctx context.Context, id string, today, week int) error {
	return s.do(func(v view) error { return v.IncrementGroupSteps(ctx, id, today, week) })
}

func (s *Store) GroupOfUser(ctx context.Context, userID string) (g *models.Group, err error) {
	err = s.do(func(v view) error { g, err = v.GroupOfUser(ctx, userID); return err })
	return g, err
}

func (s *Store) GroupMembers(ctx context.Context, groupID string) (users []models.User, err error) {
	err = s.do(func(v view) error { users, err = v.GroupMembers(ctx, groupID); return err })
	return users, err
}

func (s *Store) CountMembers(ctx context.Context, groupID string) (n int, err error) {
	err = s.do(func(v view) error { n, err = v.CountMembers(ctx, groupID); return err })
	return n, err
}

func (s *Store) AddMember(ctx context.Context, userID, groupID string) error {
	return s.do(func(v view) error { return v.AddMember(ctx, userID, groupID) })
}

func (s *Store) RemoveMember(ctx context.Context, userID, groupID string) error {
	return s.do(func(v view) error { return v.RemoveMember(ctx, userID, groupID) })
}

func (s *Store) ResetDailySteps(ctx context.Context) (res services.ResetResult, err error) {
	err = s.do(func(v view) error { res, err = v.ResetDailySteps(ctx); return err })
	return res, err
}

func (s *Store) ResetWeeklySteps(ctx context.Context) (res services.ResetResult, err error) {
	err = s.do(func(v view) error { res, err = v.ResetWeeklySteps(ctx); return err })
	return res, err
}

type state struct {
	users      map[string]models.User
	userOrder  []string
	groups     map[string]models.Group
	groupOrder []string
	memberOf   map[string]string // user id -> group nickname
}

func newState() *state {
	return &state{
		users:    map[string]models.User{},
		groups:   map[string]models.Group{},
		memberOf: map[string]string{},
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.groups {
		c.groups[k] = v
	}
	for k, v := range st.memberOf {
		c.memberOf[k] = v
	}
	c.userOrder = slices.Clone(st.userOrder)
	c.groupOrder = slices.Clone(st.groupOrder)
	return c
}
