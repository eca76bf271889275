// Package server exposes the dispatch queue over HTTP.
package server

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/atlantishq/dispatchd/internal/config"
	"github.com/atlantishq/dispatchd/internal/directory"
	"github.com/atlantishq/dispatchd/internal/sqlite"
)

// Server wires the fiber app, storage and directory together.
type Server struct {
	app      *fiber.App
	config   *config.Config
	sqlite   *sqlite.DB
	resolver directory.Resolver
	log      *slog.Logger
}

// Options contains the dependencies needed to build a Server.
type Options struct {
	Config   *config.Config
	SQLite   *sqlite.DB
	Resolver directory.Resolver
	Logger   *slog.Logger
}

// New creates the HTTP server and registers all routes.
func New(opts Options) *Server {
	s := &Server{
		config:   opts.Config,
		sqlite:   opts.SQLite,
		resolver: opts.Resolver,
		log:      opts.Logger.With("component", "server"),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "dispatchd",
		DisableStartupMessage: true,
		ReadTimeout:           opts.Config.Server.ReadTimeout,
		WriteTimeout:          opts.Config.Server.WriteTimeout,
		ErrorHandler:          s.errorHandler,
	})

	s.app.Use(s.requestID())
	s.app.Use(s.requestLogger())

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	accessToken := s.requireToken(s.config.Auth.AccessToken)
	dispatchToken := s.requireToken(s.config.Auth.DispatchToken)

	// Submission: shared access token, or a webhook path minted for one user.
	s.app.Post("/smart-send", s.handleSmartSend)
	s.app.Post("/smart-send/:webhook", s.handleSmartSend)

	// Worker protocol. Confirm and failure reports carry uuids, which are
	// unguessable capabilities, so they take no extra token.
	s.app.Get("/get-dispatch", dispatchToken, s.handleGetDispatch)
	s.app.Post("/confirm-dispatch", s.handleConfirmDispatch)
	s.app.Post("/report-dispatch-failed", s.handleReportDispatchFailed)
	s.app.Get("/get-dispatch-status", s.handleDispatchStatus)

	// Settings surface.
	s.app.Get("/settings", accessToken, s.handleGetSettings)
	s.app.Post("/settings", accessToken, s.handleUpdateSettings)
	s.app.Get("/webhooks", accessToken, s.handleListWebhooks)
	s.app.Post("/webhooks", accessToken, s.handleCreateWebhook)
	s.app.Delete("/webhooks", accessToken, s.handleDeleteWebhook)
	s.app.Get("/downtime", accessToken, s.handleGetDowntime)
	s.app.Post("/downtime", accessToken, s.handleSetDowntime)
	s.app.Delete("/downtime", accessToken, s.handleClearDowntime)

	s.app.Get("/health", s.handleHealth)
	s.app.Get("/metrics", s.handleMetrics)
}

// errorHandler converts unhandled fiber errors into the standard envelope.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return SendError(c, code, err.Error())
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("http server listening", "addr", s.config.Server.ListenAddr)
	return s.app.Listen(s.config.Server.ListenAddr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
