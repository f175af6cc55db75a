package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mooover/mooover-services/internal/apperr"
	"github.com/mooover/mooover-services/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// UserService is the user directory as seen by the handlers.
type UserService interface {
	Get(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, profile models.Profile) (*models.User, error)
	Update(ctx context.Context, user models.User) error
	Steps(ctx context.Context, id string) (models.StepsResponse, error)
}

// GroupService is the group registry as seen by the handlers.
type GroupService interface {
	Get(ctx context.Context, id string) (*models.Group, error)
	List(ctx context.Context, filter models.GroupFilter) ([]models.Group, error)
	Update(ctx context.Context, group models.Group) error
	Delete(ctx context.Context, id string) error
	Members(ctx context.Context, id string) ([]models.User, error)
	Steps(ctx context.Context, id string) (models.StepsResponse, error)
}

// MembershipService performs the operations that touch users and groups together.
type MembershipService interface {
	GroupOf(ctx context.Context, userID string) (*models.Group, error)
	CreateGroup(ctx context.Context, creatorID, nickname, name string) (*models.Group, error)
	AddMember(ctx context.Context, userID, groupID string) error
	RemoveMember(ctx context.Context, userID, groupID string) (bool, error)
	LogSteps(ctx context.Context, userID string, delta int) error
}

const internalErrorMessage = "internal server error"

func WriteResponse(w http.ResponseWriter, statusCode int, response interface{}, location ...string) {

	w.Header().Set("Content-Type", "application/json")

	// We don't want to cache API responses so the client receives most curent data
	w.Header().Set("Cache-Control", "max-age=0")

	// Conditionally set the Location header if provided
	if len(location) > 0 && location[0] != "" {
		w.Header().Set("Location", location[0])
	}

	w.WriteHeader(statusCode)

	if response != nil {
		if err := json.NewEncoder(w).Encode(response); err != nil {
			log.Error().Err(err).Msg("failed to encode response")
		}
	}
}

// WriteMessage reports a successful mutation.
func WriteMessage(w http.ResponseWriter, statusCode int, message string, location ...string) {
	WriteResponse(w, statusCode, models.Response{Success: 1, Message: message}, location...)
}

// WriteError maps err to its status code and writes the error body. Internal failures are
// logged and reported with a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())

	status := StatusOf(err)
	switch status {
	case http.StatusNoContent:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.StatusInternalServerError:
		logger.Error().Err(err).Msg("request failed")
		WriteResponse(w, status, models.Response{
			Success:      0,
			ErrorCode:    apperr.KindInternal.String(),
			ErrorDetails: internalErrorMessage,
		})
		return
	}

	logger.Debug().Err(err).Int("status", status).Msg("request rejected")
	resp := models.Response{Success: 0, ErrorDetails: err.Error()}
	if appErr, ok := apperr.As(err); ok {
		resp.ErrorCode = appErr.Code()
		resp.ErrorDetails = appErr.Message
	}
	WriteResponse(w, status, resp)
}

// StatusOf returns the HTTP status code reported for err.
func StatusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindDuplicate:
		return http.StatusConflict
	case apperr.KindNoContent:
		return http.StatusNoContent
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a JSON request body into v.
func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is empty")
		}
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}

// Ping answers liveness probes.
// @Summary Liveness probe
// @Tags ping
// @Produce json
// @Success 200 {string} string "pong"
// @Router /ping [get]
func Ping() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteResponse(w, http.StatusOK, "pong")
	}
}
