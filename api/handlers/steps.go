package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mooover/mooover-services/models"
)

// @Summary Log steps for a user
// @Description Adds the steps to the daily and weekly counters of the user and of the user's group.
// @Tags steps
// @Accept json
// @Produce json
// @Param user_id path string true "User ID"
// @Param steps body models.StepsRequest true "Steps walked"
// @Success 200 {object} models.Response
// @Failure 400 {object} models.Response
// @Failure 401 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /steps/{user_id} [post]
func LogSteps(membership MembershipService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["user_id"]

		var req models.StepsRequest
		if err := decodeBody(r, &req); err != nil {
			WriteError(w, r, err)
			return
		}
		delta, err := req.Delta()
		if err != nil {
			WriteError(w, r, err)
			return
		}

		if err := membership.LogSteps(r.Context(), userID, delta); err != nil {
			WriteError(w, r, err)
			return
		}
		WriteMessage(w, http.StatusOK, "Steps added")
	}
}

// @Summary Check the bearer token
// @Tags auth
// @Produce json
// @Success 200 {string} string "authenticated"
// @Failure 401 {object} models.Response
// @Router /auth/status [get]
func AuthStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteResponse(w, http.StatusOK, "authenticated")
	}
}
