package web

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-webpush/internal/dispatcher"
	"github.com/goliatone/go-webpush/pkg/commands"
	"github.com/goliatone/go-webpush/pkg/domain"
	"github.com/goliatone/go-webpush/pkg/interfaces/logger"
)

// SentMessage is returned once a broadcast has been accepted.
const SentMessage = "Notificação enviada com sucesso!"

// Health reports liveness.
func (s *Server) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// VAPIDPublicKey returns the application server key used by PushManager.subscribe.
func (s *Server) VAPIDPublicKey(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"key": s.publicKey})
}

// Subscribe stores the browser subscription under a fresh anonymous subscriber.
// The body may be JSON or a form using keys[p256dh] / keys.p256dh fields.
func (s *Server) Subscribe(c *fiber.Ctx) error {
	var req commands.SubscribeRequest
	if err := c.BodyParser(&req.SubscribeInput); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid request"})
	}

	if err := s.subscribe.Execute(c.UserContext(), req); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"success": false, "errors": verr.Fields})
		}
		s.log.Error("subscribe failed", logger.Err(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "failed to store subscription"})
	}
	return c.JSON(fiber.Map{"success": true})
}

// SendNotification validates the message and hands it to the broadcast queue.
// Form posts carrying a Referer are redirected back with a status flag.
func (s *Server) SendNotification(c *fiber.Ctx) error {
	form := isForm(c)
	var req commands.SendRequest
	if err := c.BodyParser(&req); err != nil {
		if form {
			return s.redirectBack(c, "error", "invalid request")
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid request"})
	}

	err := s.send.Execute(c.UserContext(), req)
	if form && c.Get(fiber.HeaderReferer) != "" {
		if err != nil {
			return s.redirectBack(c, "error", errorMessage(err))
		}
		return s.redirectBack(c, "success", SentMessage)
	}

	var verr *domain.ValidationError
	switch {
	case err == nil:
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true, "message": SentMessage})
	case errors.As(err, &verr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"success": false, "errors": verr.Fields})
	case errors.Is(err, dispatcher.ErrQueueFull), errors.Is(err, dispatcher.ErrPoolStopped):
		s.log.Warn("broadcast rejected", logger.Err(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"success": false, "error": "broadcast queue unavailable"})
	default:
		s.log.Error("send notification failed", logger.Err(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "failed to send notification"})
	}
}

func (s *Server) redirectBack(c *fiber.Ctx, key, message string) error {
	target, err := url.Parse(c.Get(fiber.HeaderReferer))
	if err != nil || target.String() == "" {
		target = &url.URL{Path: "/"}
	}
	query := target.Query()
	query.Del("success")
	query.Del("error")
	query.Set(key, message)
	target.RawQuery = query.Encode()
	return c.Redirect(target.String(), fiber.StatusSeeOther)
}

func isForm(c *fiber.Ctx) bool {
	ct := strings.ToLower(string(c.Request().Header.ContentType()))
	return strings.HasPrefix(ct, fiber.MIMEApplicationForm) || strings.HasPrefix(ct, fiber.MIMEMultipartForm)
}

func errorMessage(err error) string {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		for _, field := range []string{"title", "body"} {
			if msg, ok := verr.Fields[field]; ok {
				return msg
			}
		}
	}
	return "failed to send notification"
}
