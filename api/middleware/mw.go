package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mooover/mooover-services/internal/apperr"
	"github.com/mooover/mooover-services/internal/authn"
	"github.com/mooover/mooover-services/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const ClaimsKey contextKey = "claims"

// RequestIDHeader carries the request id back to the caller.
const RequestIDHeader = "X-Request-ID"

// TokenValidator checks a bearer token and returns its claims.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*authn.Claims, error)
}

// ClaimsFromContext returns the claims stored by JWTMiddleware.
func ClaimsFromContext(ctx context.Context) (*authn.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*authn.Claims)
	return claims, ok
}

// JWTMiddleware validates the bearer token and adds its claims to the request context.
func JWTMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				logger := zerolog.Ctx(r.Context()).With().
					Str("handler", "JWTMiddleware").Logger()

				token, err := authn.BearerToken(r.Header.Get("Authorization"))
				if err != nil {
					logger.Debug().Err(err).Msg("rejected authorization header")
					writeError(w, http.StatusUnauthorized, err)
					return
				}

				claims, err := validator.Validate(r.Context(), token)
				if err != nil {
					logger.Warn().Err(err).Msg("invalid bearer token")
					writeError(w, http.StatusUnauthorized, err)
					return
				}

				ctx := context.WithValue(r.Context(), ClaimsKey, claims)
				ctx = zerolog.Ctx(ctx).With().Str("sub", claims.Subject).Logger().WithContext(ctx)
				next.ServeHTTP(w, r.WithContext(ctx))
			},
		)
	}
}

// WithLogger adds a logger carrying a fresh request id to the context and logs the
// completed request.
func WithLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			logger := log.With().
				Str("request_id", requestID).
				Str("host", r.Host).
				Str("method", r.Method).
				Str("url", r.URL.String()).
				Str("remote_addr", r.RemoteAddr).
				Logger()

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			// Add the logger to the context
			ctx := logger.WithContext(r.Context())
			next.ServeHTTP(rec, r.WithContext(ctx))

			logger.Debug().
				Int("status", rec.status).
				Dur("took", time.Since(start)).
				Msg("request handled")
		},
	)
}

// WithTimeout bounds the lifetime of the request context.
func WithTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				ctx, cancel := context.WithTimeout(r.Context(), d)
				defer cancel()
				next.ServeHTTP(w, r.WithContext(ctx))
			},
		)
	}
}

// writeError reports an authentication or throttling failure in the common error body.
func writeError(w http.ResponseWriter, status int, err error) {
	resp := models.Response{Success: 0, ErrorDetails: err.Error()}
	if appErr, ok := apperr.As(err); ok {
		resp.ErrorCode = appErr.Code()
		resp.ErrorDetails = appErr.Message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
