package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/mooover/mooover-services/models"
	"github.com/rs/zerolog"
)

// @Summary List users
// @Tags user
// @Produce json
// @Success 200 {array} models.User
// @Failure 401 {object} models.Response
// @Failure 500 {object} models.Response
// @Router /users [get]
func ListUsers(users UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := users.List(r.Context())
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteResponse(w, http.StatusOK, list)
	}
}

// @Summary Register a user
// @Description Registers a user with zero steps, the default goals and the light theme.
// @Tags user
// @Accept json
// @Produce json
// @Param user body models.CreateUserRequest true "User profile"
// @Success 201 {object} models.Response
// @Failure 400 {object} models.Response
// @Failure 401 {object} models.Response
// @Failure 409 {object} models.Response
// @Failure 500 {object} models.Response
// @Router /users [post]
func CreateUser(users UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateUserRequest
		if err := decodeBody(r, &req); err != nil {
			WriteError(w, r, err)
			return
		}
		profile, err := req.Profile()
		if err != nil {
			WriteError(w, r, err)
			return
		}

		logger := zerolog.Ctx(r.Context()).With().Str("user", profile.Sub).Logger()

		if _, err := users.Create(r.Context(), profile); err != nil {
			WriteError(w, r, err)
			return
		}

		logger.Info().Msg("user registered")
		WriteMessage(w, http.StatusCreated, "User added", strings.TrimSuffix(r.URL.Path, "/")+"/"+profile.Sub)
	}
}

// @Summary Get a user
// @Tags user
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 401 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /users/{id} [get]
func GetUser(users UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := users.Get(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteResponse(w, http.StatusOK, user)
	}
}

// @Summary Replace a user
// @Description Every field except sub is required. When sub is given it must match the path.
// @Tags user
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param user body models.UpdateUserRequest true "User"
// @Success 200 {object} models.Response
// @Failure 400 {object} models.Response
// @Failure 401 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /users/{id} [put]
func UpdateUser(users UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.UpdateUserRequest
		if err := decodeBody(r, &req); err != nil {
			WriteError(w, r, err)
			return
		}
		user, err := req.User(mux.Vars(r)["id"])
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if err := users.Update(r.Context(), user); err != nil {
			WriteError(w, r, err)
			return
		}
		WriteMessage(w, http.StatusOK, "User updated")
	}
}

// @Summary Get the group of a user
// @Tags user group
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.Group
// @Success 204 "The user has no group"
// @Failure 401 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /users/{id}/group [get]
func GetUserGroup(membership MembershipService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		group, err := membership.GroupOf(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteResponse(w, http.StatusOK, group)
	}
}

// @Summary Get the step counters of a user
// @Tags user steps
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.StepsResponse
// @Failure 401 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /users/{id}/steps [get]
func GetUserSteps(users UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		steps, err := users.Steps(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteResponse(w, http.StatusOK, steps)
	}
}
