package handlers

import (
	"context"

	"github.com/mooover/mooover-services/models"
	"github.com/stretchr/testify/mock"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Get(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserService) List(ctx context.Context) ([]models.User, error) {
	args := m.Called()
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

func (m *MockUserService) Create(ctx context.Context, profile models.Profile) (*models.User, error) {
	args := m.Called(profile)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, user models.User) error {
	return m.Called(user).Error(0)
}

func (m *MockUserService) Steps(ctx context.Context, id string) (models.StepsResponse, error) {
	args := m.Called(id)
	return args.Get(0).(models.StepsResponse), args.Error(1)
}

type MockGroupService struct {
	mock.Mock
}

func (m *MockGroupService) Get(ctx context.Context, id string) (*models.Group, error) {
	args := m.Called(id)
	group, _ := args.Get(0).(*models.Group)
	return group, args.Error(1)
}

func (m *MockGroupService) List(ctx context.Context, filter models.GroupFilter) ([]models.Group, error) {
	args := m.Called(filter)
	groups, _ := args.Get(0).([]models.Group)
	return groups, args.Error(1)
}

func (m *MockGroupService) Update(ctx context.Context, group models.Group) error {
	return m.Called(group).Error(0)
}

func (m *MockGroupService) Delete(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

func (m *MockGroupService) Members(ctx context.Context, id string) ([]models.User, error) {
	args := m.Called(id)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

func (m *MockGroupService) Steps(ctx context.Context, id string) (models.StepsResponse, error) {
	args := m.Called(id)
	return args.Get(0).(models.StepsResponse), args.Error(1)
}

type MockMembershipService struct {
	mock.Mock
}

func (m *MockMembershipService) GroupOf(ctx context.Context, userID string) (*models.Group, error) {
	args := m.Called(userID)
	group, _ := args.Get(0).(*models.Group)
	return group, args.Error(1)
}

func (m *MockMembershipService) CreateGroup(ctx context.Context, creatorID, nickname, name string) (*models.Group, error) {
	args := m.Called(creatorID, nickname, name)
	group, _ := args.Get(0).(*models.Group)
	return group, args.Error(1)
}

func (m *MockMembershipService) AddMember(ctx context.Context, userID, groupID string) error {
	return m.Called(userID, groupID).Error(0)
}

func (m *MockMembershipService) RemoveMember(ctx context.Context, userID, groupID string) (bool, error) {
	args := m.Called(userID, groupID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMembershipService) LogSteps(ctx context.Context, userID string, delta int) error {
	return m.Called(userID, delta).Error(0)
}
