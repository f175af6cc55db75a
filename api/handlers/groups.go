package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/mooover/mooover-services/internal/apperr"
	"github.com/mooover/mooover-services/models"
	"github.com/rs/zerolog"
)

// parseFilter reads the group search parameters. name_also and loose default to true.
func parseFilter(r *http.Request) (models.GroupFilter, error) {
	q := r.URL.Query()
	filter := models.GroupFilter{Query: q.Get("nickname"), NameAlso: true, Loose: true}

	for name, dst := range map[string]*bool{"name_also": &filter.NameAlso, "loose": &filter.Loose} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apperr.Validation("%s must be a boolean", name)
		}
		*dst = v
	}
	return filter, nil
}

// @Summary Search groups
// @Description Without a nickname every group is returned.
// @Tags group
// @Produce json
// @Param nickname query string false "Text to match"
// @Param name_also query bool false "Also match the group name" default(true)
// @Param loose query bool false "Substring instead of exact match" default(true)
// @Success 200 {array} models.Group
// @Failure 400 {object} models.Response
// @Failure 401 {object} models.Response
// @Router /groups [get]
func ListGroups(groups GroupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseFilter(r)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		list, err := groups.List(r.Context(), filter)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteResponse(w, http.StatusOK, list)
	}
}

// @Summary Create a group
// @Description Creates a group whose only member is the given user.
// @Tags group
// @Accept json
// @Produce json
// @Param group body models.CreateGroupRequest true "Creator and group"
// @Success 201 {object} models.Response
// @Failure 400 {object} models.Response
// @Failure 401 {object} models.Response
// @Failure 404 {object} models.Response
// @Failure 409 {object} models.Response
// @Router /groups [post]
func CreateGroup(membership MembershipService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateGroupRequest
		if err := decodeBody(r, &req); err != nil {
			WriteError(w, r, err)
			return
		}
		userID, nickname, name, err := req.Fields()
		if err != nil {
			WriteError(w, r, err)
			return
		}

		logger := zerolog.Ctx(r.Context()).With().Str("group", nickname).Str("user", userID).Logger()

		if _, err := membership.CreateGroup(r.Context(), userID, nickname, name); err != nil {
			WriteError(w, r, err)
			return
		}

		logger.Info().Msg("group created")
		WriteMessage(w, http.StatusCreated, "Group added", strings.TrimSuffix(r.URL.Path, "/")+"/"+nickname)
	}
}

// @Summary Get a group
// @Tags group
// @Produce json
// @Param id path string true "Group nickname"
// @Success 200 {object} models.Group
// @Failure 401 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /groups/{id} [get]
func GetGroup(groups GroupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		group, err := groups.Get(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteResponse(w, http.StatusOK, group)
	}
}

// @Summary Replace a group
// @Description Replaces the name and goals. The aggregate step counters keep their values.
// @Tags group
// @Accept json
// @Produce json
// @Param id path string true "Group nickname"
// @Param group body models.UpdateGroupRequest true "Group"
// @Success 200 {object} models.Response
// @Failure 400 {object} models.Response
// @Failure 401 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /groups/{id} [put]
func UpdateGroup(groups GroupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.UpdateGroupRequest
		if err := decodeBody(r, &req); err != nil {
			WriteError(w, r, err)
			return
		}
		group, err := req.Group(mux.Vars(r)["id"])
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if err := groups.Update(r.Context(), group); err != nil {
			WriteError(w, r, err)
			return
		}
		WriteMessage(w, http.StatusOK, "Group updated")
	}
}

// @Summary Delete a group
// @Tags group
// @Produce json
// @Param id path string true "Group nickname"
// @Success 200 {object} models.Response
// @Failure 401 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /groups/{id} [delete]
func DeleteGroup(groups GroupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if err := groups.Delete(r.Context(), id); err != nil {
			WriteError(w, r, err)
			return
		}
		zerolog.Ctx(r.Context()).Info().Str("group", id).Msg("group deleted")
		WriteMessage(w, http.StatusOK, "Group deleted")
	}
}

// @Summary Get the step counters of a group
// @Tags group steps
// @Produce json
// @Param id path string true "Group nickname"
// @Success 200 {object} models.StepsResponse
// @Failure 401 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /groups/{id}/steps [get]
func GetGroupSteps(groups GroupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		steps, err := groups.Steps(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteResponse(w, http.StatusOK, steps)
	}
}

// @Summary List the members of a group
// @Tags group user
// @Produce json
// @Param id path string true "Group nickname"
// @Success 200 {array} models.User
// @Failure 401 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /groups/{id}/members [get]
func GetGroupMembers(groups GroupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		members, err := groups.Members(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteResponse(w, http.StatusOK, members)
	}
}

// @Summary Add a member to a group
// @Tags group user
// @Accept json
// @Produce json
// @Param id path string true "Group nickname"
// @Param member body models.MemberRequest true "User to add"
// @Success 200 {object} models.Response
// @Failure 400 {object} models.Response
// @Failure 401 {object} models.Response
// @Failure 404 {object} models.Response
// @Failure 409 {object} models.Response
// @Router /groups/{id}/members [put]
func AddGroupMember(membership MembershipService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.MemberRequest
		if err := decodeBody(r, &req); err != nil {
			WriteError(w, r, err)
			return
		}
		userID, err := req.User()
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if err := membership.AddMember(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
			WriteError(w, r, err)
			return
		}
		WriteMessage(w, http.StatusOK, "User added")
	}
}

// @Summary Remove a member from a group
// @Description The group is deleted when its last member leaves.
// @Tags group user
// @Produce json
// @Param id path string true "Group nickname"
// @Param user_id path string true "User ID"
// @Success 200 {object} models.Response
// @Failure 401 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /groups/{id}/members/{user_id} [delete]
func RemoveGroupMember(membership MembershipService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		deleted, err := membership.RemoveMember(r.Context(), vars["user_id"], vars["id"])
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if deleted {
			zerolog.Ctx(r.Context()).Info().Str("group", vars["id"]).Msg("group deleted after last member left")
		}
		WriteMessage(w, http.StatusOK, "User removed")
	}
}
