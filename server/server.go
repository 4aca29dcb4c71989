// Package server wires the HTTP API: echo routing, session middleware, and
// the handlers for auth, accounts, users, projects and hashlists.
package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"github.com/zitadel/oidc/v3/pkg/client/rp"

	"github.com/hashfleet/hashfleet/apitypes"
	"github.com/hashfleet/hashfleet/config"
	"github.com/hashfleet/hashfleet/password"
	"github.com/hashfleet/hashfleet/roles"
	"github.com/hashfleet/hashfleet/session"
	"github.com/hashfleet/hashfleet/storage"
)

type Server struct {
	echo      *echo.Echo
	cfg       *config.ServerConfig
	users     storage.UserRepository
	projects  storage.ProjectRepository
	hashlists storage.HashlistRepository
	sessions  session.Handler
	hasher    password.Hasher
	oidcRP    rp.RelyingParty
}

type Options struct {
	Config    *config.ServerConfig
	Users     storage.UserRepository
	Projects  storage.ProjectRepository
	Hashlists storage.HashlistRepository
	Sessions  session.Handler
	Hasher    password.Hasher
}

func New(opts Options) (*Server, error) {
	s := &Server{
		cfg:       opts.Config,
		users:     opts.Users,
		projects:  opts.Projects,
		hashlists: opts.Hashlists,
		sessions:  opts.Sessions,
		hasher:    opts.Hasher,
	}
	if s.hasher == nil {
		s.hasher = password.NewBcryptHasher()
	}

	if s.cfg.OIDCEnabled() {
		relyingParty, err := rp.NewRelyingPartyOIDC(
			context.Background(),
			s.cfg.OIDCIssuer,
			s.cfg.OIDCClientID,
			s.cfg.OIDCClientSecret,
			s.cfg.OIDCRedirectURL,
			[]string{"openid", "profile", "email"},
		)
		if err != nil {
			return nil, err
		}
		s.oidcRP = relyingParty
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(requestLogger())
	s.registerRoutes()
	return s, nil
}

// SkipPaths lists the endpoints reachable without a session.
func SkipPaths() []string {
	return []string{
		"/api/v1/ping",
		"/api/v1/auth/login/credentials",
		"/api/v1/auth/login/oidc/redirect",
		"/api/v1/auth/login/oidc/callback",
	}
}

func (s *Server) registerRoutes() {
	api := s.echo.Group("/api/v1")
	api.Use(s.sessions.Middleware())
	api.Use(s.enforceAccountGates)

	api.GET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, "pong")
	})

	auth := api.Group("/auth")
	auth.POST("/login/credentials", s.handleLoginCredentials)
	auth.GET("/login/oidc/redirect", s.handleOIDCRedirect)
	auth.POST("/login/oidc/callback", s.handleOIDCCallback)
	auth.GET("/whoami", s.handleWhoami)
	auth.PUT("/refresh", s.handleRefresh)
	auth.POST("/logout", s.handleLogout)
	auth.POST("/change-temporary-password", s.handleChangeTemporaryPassword)
	auth.POST("/mfa/totp/start-enrollment", s.handleMFAStartEnrollment)
	auth.POST("/mfa/totp/finish-enrollment", s.handleMFAFinishEnrollment)
	auth.POST("/mfa/totp/challenge", s.handleMFAChallenge)

	account := api.Group("/account")
	account.PUT("/change-password", s.handleAccountChangePassword)

	user := api.Group("/user")
	user.POST("/create", s.handleUserCreate)
	user.GET("/all", s.handleUserGetAll)

	project := api.Group("/project")
	project.POST("/create", s.handleProjectCreate)
	project.GET("/all", s.handleProjectGetAll)
	project.GET("/:id", s.handleProjectGet)
	project.DELETE("/:id", s.handleProjectDelete)
	project.GET("/:id/hashlists", s.handleHashlistsForProject)

	hashlist := api.Group("/hashlist")
	hashlist.POST("/create", s.handleHashlistCreate)
	hashlist.GET("/:id", s.handleHashlistGet)
	hashlist.POST("/:id/append-hashes", s.handleHashlistAppend)
}

// enforceAccountGates blocks a gated session from everything except the auth
// group, so a user with an outstanding password change or MFA challenge can
// only resolve the gate, refresh, or log out.
func (s *Server) enforceAccountGates(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		if path == "/api/v1/ping" || strings.HasPrefix(path, "/api/v1/auth/") {
			return next(c)
		}

		sess := session.FromContext(c)
		if sess == nil {
			return next(c)
		}

		user, err := s.currentUser(c, sess)
		if err != nil {
			return err
		}

		if user.HasRole(roles.RequiresPasswordChange) {
			return echo.NewHTTPError(http.StatusUnauthorized, apitypes.ErrorResponseDTO{
				Message: "You must change your temporary password before continuing",
				Code:    apitypes.ErrorCodeForbidden,
			})
		}
		if user.HasRole(roles.MFAEnrolled) && !sess.HasCompletedMFA {
			return echo.NewHTTPError(http.StatusUnauthorized, apitypes.ErrorResponseDTO{
				Message: "You must complete the multi-factor challenge before continuing",
				Code:    apitypes.ErrorCodeForbidden,
			})
		}
		return next(c)
	}
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(addr string) error {
	log.Info().Str("addr", addr).Msg("http server listening")
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Err(v.Error).
				Msg("request")
			return nil
		},
	})
}
