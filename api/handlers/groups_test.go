package handlers

import (
	"net/http"
	"testing"

	"github.com/mooover/mooover-services/internal/apperr"
	"github.com/mooover/mooover-services/models"
	"github.com/stretchr/testify/assert"
)

func TestListGroups_Filter(t *testing.T) {
	tests := []struct {
		target string
		filter models.GroupFilter
	}{
		{"/api/v1/groups", models.GroupFilter{NameAlso: true, Loose: true}},
		{"/api/v1/groups?nickname=team", models.GroupFilter{Query: "team", NameAlso: true, Loose: true}},
		{"/api/v1/groups?nickname=team-a&loose=false&name_also=false", models.GroupFilter{Query: "team-a"}},
	}
	for _, tt := range tests {
		groups := new(MockGroupService)
		groups.On("List", tt.filter).Return([]models.Group{{Nickname: "team-a"}}, nil)

		w := serve(ListGroups(groups), http.MethodGet, tt.target, "", nil)

		assert.Equal(t, http.StatusOK, w.Code, tt.target)
		groups.AssertExpectations(t)
	}
}

func TestListGroups_BadFlag(t *testing.T) {
	w := serve(ListGroups(new(MockGroupService)), http.MethodGet, "/api/v1/groups?loose=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateGroup(t *testing.T) {
	membership := new(MockMembershipService)
	membership.On("CreateGroup", "alice", "team-a", "Team A").Return(&models.Group{Nickname: "team-a"}, nil)
	membership.On("CreateGroup", "bob", "team-a", "Other").
		Return(nil, apperr.Duplicate(apperr.ReasonNicknameTaken, "group nickname team-a is already taken"))
	membership.On("CreateGroup", "carol", "team-c", "C").
		Return(nil, apperr.Duplicate(apperr.ReasonAlreadyInGroup, "user carol already has a group"))

	w := serve(CreateGroup(membership), http.MethodPost, "/api/v1/groups",
		`{"user_id":"alice","nickname":"team-a","name":"Team A"}`, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/api/v1/groups/team-a", w.Header().Get("Location"))
	assert.Equal(t, "Group added", decodeResponse(t, w).Message)

	w = serve(CreateGroup(membership), http.MethodPost, "/api/v1/groups",
		`{"user_id":"bob","nickname":"team-a","name":"Other"}`, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "duplicate/nickname_taken", decodeResponse(t, w).ErrorCode)

	w = serve(CreateGroup(membership), http.MethodPost, "/api/v1/groups",
		`{"user_id":"carol","nickname":"team-c","name":"C"}`, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "duplicate/already_in_group", decodeResponse(t, w).ErrorCode)

	w = serve(CreateGroup(membership), http.MethodPost, "/api/v1/groups", `{"user_id":"alice"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetGroupAndSteps(t *testing.T) {
	groups := new(MockGroupService)
	groups.On("Get", "team-a").Return(&models.Group{Nickname: "team-a", Name: "Team A"}, nil)
	groups.On("Steps", "team-a").Return(models.StepsResponse{TodaySteps: 150, ThisWeekSteps: 150}, nil)
	groups.On("Get", "nope").Return(nil, apperr.NotFound("group nope not found"))

	w := serve(GetGroup(groups), http.MethodGet, "/", "", map[string]string{"id": "team-a"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Team A"`)

	w = serve(GetGroupSteps(groups), http.MethodGet, "/", "", map[string]string{"id": "team-a"})
	assert.JSONEq(t, `{"today_steps":150,"this_week_steps":150}`, w.Body.String())

	w = serve(GetGroup(groups), http.MethodGet, "/", "", map[string]string{"id": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateGroup(t *testing.T) {
	groups := new(MockGroupService)
	groups.On("Update", models.Group{Nickname: "team-a", Name: "Renamed",
		DailyStepsGoal: 6000, WeeklyStepsGoal: 40000}).Return(nil)

	body := `{"nickname":"team-a","name":"Renamed","today_steps":10,"this_week_steps":20,
		"daily_steps_goal":6000,"weekly_steps_goal":40000}`
	w := serve(UpdateGroup(groups), http.MethodPut, "/", body, map[string]string{"id": "team-a"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Group updated", decodeResponse(t, w).Message)

	w = serve(UpdateGroup(groups), http.MethodPut, "/", `{"name":"x"}`, map[string]string{"id": "team-a"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	groups.AssertNumberOfCalls(t, "Update", 1)
}

func TestDeleteGroup(t *testing.T) {
	groups := new(MockGroupService)
	groups.On("Delete", "team-a").Return(nil)
	groups.On("Delete", "nope").Return(apperr.NotFound("group nope not found"))

	w := serve(DeleteGroup(groups), http.MethodDelete, "/", "", map[string]string{"id": "team-a"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Group deleted", decodeResponse(t, w).Message)

	w = serve(DeleteGroup(groups), http.MethodDelete, "/", "", map[string]string{"id": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGroupMembers(t *testing.T) {
	groups := new(MockGroupService)
	groups.On("Members", "team-a").Return([]models.User{{Sub: "alice"}, {Sub: "bob"}}, nil)

	w := serve(GetGroupMembers(groups), http.MethodGet, "/", "", map[string]string{"id": "team-a"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sub":"bob"`)
}

func TestAddGroupMember(t *testing.T) {
	membership := new(MockMembershipService)
	membership.On("AddMember", "bob", "team-a").Return(nil)
	membership.On("AddMember", "alice", "team-a").
		Return(apperr.Duplicate(apperr.ReasonAlreadyInThisGroup, "user alice is already a member of the group"))

	w := serve(AddGroupMember(membership), http.MethodPut, "/", `{"user_id":"bob"}`, map[string]string{"id": "team-a"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User added", decodeResponse(t, w).Message)

	w = serve(AddGroupMember(membership), http.MethodPut, "/", `{"user_id":"alice"}`, map[string]string{"id": "team-a"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "duplicate/already_in_this_group", decodeResponse(t, w).ErrorCode)

	w = serve(AddGroupMember(membership), http.MethodPut, "/", `{}`, map[string]string{"id": "team-a"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRemoveGroupMember(t *testing.T) {
	membership := new(MockMembershipService)
	membership.On("RemoveMember", "bob", "team-a").Return(true, nil)
	membership.On("RemoveMember", "carol", "team-a").Return(false, apperr.NotFound("user carol is not a member of group team-a"))

	w := serve(RemoveGroupMember(membership), http.MethodDelete, "/", "", map[string]string{"id": "team-a", "user_id": "bob"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User removed", decodeResponse(t, w).Message)

	w = serve(RemoveGroupMember(membership), http.MethodDelete, "/", "", map[string]string{"id": "team-a", "user_id": "carol"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
