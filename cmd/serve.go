package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/mooover/mooover-services/api/handlers"
	"github.com/mooover/mooover-services/api/middleware"
	docs "github.com/mooover/mooover-services/docs"
	"github.com/mooover/mooover-services/internal/appconfig"
	"github.com/mooover/mooover-services/internal/authn"
	"github.com/mooover/mooover-services/internal/metrics"
	"github.com/mooover/mooover-services/internal/services"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpSwagger "github.com/swaggo/http-swagger"
)

const shutdownTimeout = 15 * time.Second

// facades are the services behind the HTTP handlers.
type facades struct {
	Users      handlers.UserService
	Groups     handlers.GroupService
	Membership handlers.MembershipService
}

// @title Mooover Services API
// @version v1
// @description Users, groups and step counters of the Mooover step-tracking application.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server for handling API requests",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := setUp()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := openStore(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open the entity store")
		}
		defer store.Close()

		notifier, err := openNotifier(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize event publisher")
		}
		defer notifier.Close()

		svc := facades{
			Users:      services.NewUserDirectory(store),
			Groups:     services.NewGroupRegistry(store),
			Membership: services.NewCoordinator(store, notifier),
		}

		keys := authn.NewKeySet(cfg.Auth.JWKSURL, cfg.Auth.RefreshInterval, &http.Client{Timeout: 10 * time.Second})
		validator := authn.NewValidator(authn.Config{
			Issuer:          cfg.Auth.Issuer,
			Audience:        cfg.Auth.Audience,
			Algorithm:       cfg.Auth.Algorithm,
			JWKSURL:         cfg.Auth.JWKSURL,
			RefreshInterval: cfg.Auth.RefreshInterval,
		}, keys)

		var limiter *middleware.RateLimiter
		if cfg.RateLimit.RequestsPerSecond > 0 {
			limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		}

		if cfg.Serves(appconfig.ServiceSteps) && cfg.Scheduler.Enabled {
			sched, err := newScheduler(cfg, store, notifier)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to initialize reset scheduler")
			}
			sched.Start()
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := sched.Stop(stopCtx); err != nil {
					log.Error().Err(err).Msg("reset scheduler did not stop in time")
				}
			}()
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           newRouter(cfg, svc, validator, limiter),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			log.Info().Msg(fmt.Sprintf("Server started at %s:%d", host, port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("could not start server")
				stop()
			}
		}()

		<-ctx.Done()
		log.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&host, "host", "0.0.0.0", "host to run the server on")
	serveCmd.Flags().IntVar(&port, "port", 8080, "port to run the server on")
}

// newRouter registers the routes of every enabled façade. Liveness probes, metrics and docs
// are public, everything else requires a bearer token.
func newRouter(cfg *appconfig.Config, svc facades, validator middleware.TokenValidator, limiter *middleware.RateLimiter) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.WithLogger)
	r.Use(metrics.InstrumentHandler)

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// Docs
	docs.SwaggerInfo.Host = cfg.Host
	docs.SwaggerInfo.BasePath = cfg.BasePath
	r.PathPrefix(cfg.DocsPath).Handler(httpSwagger.Handler(
		httpSwagger.URL(path.Join(cfg.DocsPath, "/doc.json")),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	)).Methods(http.MethodGet)

	api := r.PathPrefix(cfg.BasePath).Subrouter()

	// Liveness probes are registered ahead of the {id} routes they would otherwise match
	api.HandleFunc("/ping", handlers.Ping()).Methods(http.MethodGet)
	for service, prefix := range map[string]string{
		appconfig.ServiceUser:  "/users",
		appconfig.ServiceGroup: "/groups",
		appconfig.ServiceSteps: "/steps",
		appconfig.ServiceAuth:  "/auth",
	} {
		if cfg.Serves(service) {
			api.HandleFunc(prefix+"/ping", handlers.Ping()).Methods(http.MethodGet)
		}
	}

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.JWTMiddleware(validator))
	if limiter != nil {
		protected.Use(limiter.Middleware)
	}
	protected.Use(middleware.WithTimeout(cfg.RequestTimeout))

	if cfg.Serves(appconfig.ServiceUser) {
		protected.HandleFunc("/users", handlers.ListUsers(svc.Users)).Methods(http.MethodGet)
		protected.HandleFunc("/users", handlers.CreateUser(svc.Users)).Methods(http.MethodPost)
		protected.HandleFunc("/users/{id}", handlers.GetUser(svc.Users)).Methods(http.MethodGet)
		protected.HandleFunc("/users/{id}", handlers.UpdateUser(svc.Users)).Methods(http.MethodPut)
		protected.HandleFunc("/users/{id}/group", handlers.GetUserGroup(svc.Membership)).Methods(http.MethodGet)
		protected.HandleFunc("/users/{id}/steps", handlers.GetUserSteps(svc.Users)).Methods(http.MethodGet)
	}

	if cfg.Serves(appconfig.ServiceGroup) {
		protected.HandleFunc("/groups", handlers.ListGroups(svc.Groups)).Methods(http.MethodGet)
		protected.HandleFunc("/groups", handlers.CreateGroup(svc.Membership)).Methods(http.MethodPost)
		protected.HandleFunc("/groups/{id}", handlers.GetGroup(svc.Groups)).Methods(http.MethodGet)
		protected.HandleFunc("/groups/{id}", handlers.UpdateGroup(svc.Groups)).Methods(http.MethodPut)
		protected.HandleFunc("/groups/{id}", handlers.DeleteGroup(svc.Groups)).Methods(http.MethodDelete)
		protected.HandleFunc("/groups/{id}/steps", handlers.GetGroupSteps(svc.Groups)).Methods(http.MethodGet)
		protected.HandleFunc("/groups/{id}/members", handlers.GetGroupMembers(svc.Groups)).Methods(http.MethodGet)
		protected.HandleFunc("/groups/{id}/members", handlers.AddGroupMember(svc.Membership)).Methods(http.MethodPut)
		protected.HandleFunc("/groups/{id}/members/{user_id}", handlers.RemoveGroupMember(svc.Membership)).Methods(http.MethodDelete)
	}

	if cfg.Serves(appconfig.ServiceSteps) {
		protected.HandleFunc("/steps/{user_id}", handlers.LogSteps(svc.Membership)).Methods(http.MethodPost)
	}

	if cfg.Serves(appconfig.ServiceAuth) {
		protected.HandleFunc("/auth/status", handlers.AuthStatus()).Methods(http.MethodGet)
	}

	return r
}
