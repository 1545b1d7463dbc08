package web

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-webpush/pkg/commands"
	"github.com/goliatone/go-webpush/pkg/interfaces/logger"
)

// Dependencies wires the HTTP boundary to the command handlers.
type Dependencies struct {
	Subscribe        command.Commander[commands.SubscribeRequest]
	SendNotification command.Commander[commands.SendRequest]
	PublicKey        string
	Logger           logger.Logger
}

// Server hosts the subscribe/send endpoints on fiber.
type Server struct {
	app       *fiber.App
	subscribe command.Commander[commands.SubscribeRequest]
	send      command.Commander[commands.SendRequest]
	publicKey string
	log       logger.Logger
}

var (
	ErrSubscribeRequired = errors.New("web: subscribe command is required")
	ErrSendRequired      = errors.New("web: send notification command is required")
)

// New builds the fiber app and registers routes.
func New(deps Dependencies) (*Server, error) {
	if deps.Subscribe == nil {
		return nil, ErrSubscribeRequired
	}
	if deps.SendNotification == nil {
		return nil, ErrSendRequired
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	s := &Server{
		subscribe: deps.Subscribe,
		send:      deps.SendNotification,
		publicKey: deps.PublicKey,
		log:       deps.Logger,
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "go-webpush",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.routes()
	return s, nil
}

// FromRegistry is a convenience for wiring from the public command registry.
func FromRegistry(reg *commands.Registry, publicKey string, l logger.Logger) (*Server, error) {
	if reg == nil {
		return nil, ErrSubscribeRequired
	}
	return New(Dependencies{
		Subscribe:        reg.Subscribe,
		SendNotification: reg.SendNotification,
		PublicKey:        publicKey,
		Logger:           l,
	})
}

func (s *Server) routes() {
	s.app.Use(RequestLogger(s.log))

	s.app.Get("/healthz", s.Health)
	s.app.Get("/vapid-public-key", s.VAPIDPublicKey)
	s.app.Post("/subscribe", s.Subscribe)
	s.app.Post("/notifications/send", s.SendNotification)
}

// App exposes the underlying fiber app (used by tests).
func (s *Server) App() *fiber.App { return s.app }

// Listen blocks serving addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.Info("http server listening", logger.F("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		code = ferr.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.log.Error("http handler failed", logger.F("path", c.Path()), logger.Err(err))
	}
	return c.Status(code).JSON(fiber.Map{"success": false, "error": err.Error()})
}
