package broadcast

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-webpush/pkg/adapters"
	"github.com/goliatone/go-webpush/pkg/domain"
	"github.com/goliatone/go-webpush/pkg/interfaces/logger"
	"github.com/google/uuid"
)

const (
	// DefaultTitle is used when a broadcast is triggered without a title.
	DefaultTitle = "Notificação Agendada PoC"
	// DemoTitle is the title used by the test-notifications command.
	DemoTitle = "Notificação push de demonstração"

	defaultBodyPrefix = "Esta é uma notificação de teste agendada. Horário: "
	demoBodyPrefix    = "Esta é uma mensagem de teste enviada pelo sistema. Horário: "

	// TimestampLayout renders timestamps embedded in default bodies.
	TimestampLayout = "2006-01-02 15:04:05"
)

// RecipientSource loads every subscriber holding a usable subscription.
type RecipientSource interface {
	ListSubscribersWithSubscription(ctx context.Context) ([]domain.Recipient, error)
}

// SubscriptionRemover deletes expired subscriptions when pruning is enabled.
type SubscriptionRemover interface {
	Remove(ctx context.Context, subscriptionID uuid.UUID) error
}

// Dependencies wires the broadcast action.
type Dependencies struct {
	Recipients RecipientSource
	Channel    adapters.DeliveryChannel
	Remover    SubscriptionRemover
	Logger     logger.Logger
	Clock      func() time.Time
	MaxWorkers int
	PruneGone  bool
}

// Service fans one payload out to every stored subscription.
type Service struct {
	recipients RecipientSource
	channel    adapters.DeliveryChannel
	remover    SubscriptionRemover
	log        logger.Logger
	clock      func() time.Time
	maxWorkers int
	pruneGone  bool
}

var (
	ErrMissingRecipients = errors.New("broadcast: recipient source is required")
	ErrMissingChannel    = errors.New("broadcast: delivery channel is required")
	ErrMissingRemover    = errors.New("broadcast: pruning requires a subscription remover")
)

// New builds the broadcast service.
func New(deps Dependencies) (*Service, error) {
	if deps.Recipients == nil {
		return nil, ErrMissingRecipients
	}
	if deps.Channel == nil {
		return nil, ErrMissingChannel
	}
	if deps.PruneGone && deps.Remover == nil {
		return nil, ErrMissingRemover
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.MaxWorkers <= 0 {
		deps.MaxWorkers = 4
	}
	return &Service{
		recipients: deps.Recipients,
		channel:    deps.Channel,
		remover:    deps.Remover,
		log:        deps.Logger,
		clock:      deps.Clock,
		maxWorkers: deps.MaxWorkers,
		pruneGone:  deps.PruneGone,
	}, nil
}

// Payload builds the notification for title/body, substituting the scheduled
// defaults for blank values.
func (s *Service) Payload(title, body string) domain.NotificationPayload {
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}
	if strings.TrimSpace(body) == "" {
		body = defaultBodyPrefix + s.clock().Format(TimestampLayout)
	}
	return domain.NewNotificationPayload(title, body)
}

// DemoMessage returns the title/body sent by the test-notifications command.
func DemoMessage(now time.Time) (title, body string) {
	return DemoTitle, demoBodyPrefix + now.Format(TimestampLayout)
}

// Demo broadcasts the test-notifications message stamped with the current time.
func (s *Service) Demo(ctx context.Context) (domain.DeliveryReport, error) {
	title, body := DemoMessage(s.clock())
	return s.Broadcast(ctx, title, body)
}

type outcome struct {
	recipient domain.Recipient
	err       error
}

// Broadcast delivers one payload to every recipient. Per-recipient failures are
// counted, never returned; only loading recipients or an invalid payload fail.
func (s *Service) Broadcast(ctx context.Context, title, body string) (domain.DeliveryReport, error) {
	recipients, err := s.recipients.ListSubscribersWithSubscription(ctx)
	if err != nil {
		return domain.DeliveryReport{}, domain.NewStorageError("load recipients", err)
	}
	if len(recipients) == 0 {
		s.log.Info("broadcast skipped: no subscribers")
		return domain.DeliveryReport{}, nil
	}

	payload := s.Payload(title, body)
	if err := payload.Validate(); err != nil {
		return domain.DeliveryReport{}, err
	}

	jobs := make(chan domain.Recipient, len(recipients))
	results := make(chan outcome, len(recipients))
	var wg sync.WaitGroup
	workerCount := min(s.maxWorkers, len(recipients))

	for range workerCount {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for recipient := range jobs {
				results <- outcome{recipient: recipient, err: s.deliver(ctx, recipient, payload)}
			}
		}()
	}

	for _, recipient := range recipients {
		jobs <- recipient
	}
	close(jobs)
	wg.Wait()
	close(results)

	report := domain.DeliveryReport{Attempted: len(recipients)}
	for res := range results {
		if res.err == nil {
			report.Succeeded++
			continue
		}
		report.Failed++
		s.log.Warn("broadcast delivery failed",
			logger.F("subscriber_id", res.recipient.Subscriber.ID.String()),
			logger.Err(res.err),
		)
		if s.pruneGone && domain.IsGone(res.err) {
			if err := s.remover.Remove(ctx, res.recipient.Subscription.ID); err != nil {
				s.log.Error("prune subscription failed", logger.Err(err))
				continue
			}
			report.Pruned++
		}
	}

	s.log.Info("broadcast completed",
		logger.F("attempted", report.Attempted),
		logger.F("succeeded", report.Succeeded),
		logger.F("failed", report.Failed),
		logger.F("pruned", report.Pruned),
	)
	return report, nil
}

func (s *Service) deliver(ctx context.Context, recipient domain.Recipient, payload domain.NotificationPayload) (err error) {
	if err := ctx.Err(); err != nil {
		return &domain.DeliveryError{Endpoint: recipient.Subscription.Endpoint, Err: err}
	}
	defer func() {
		if r := recover(); r != nil {
			err = &domain.DeliveryError{Endpoint: recipient.Subscription.Endpoint, Err: errors.New("delivery channel panicked")}
		}
	}()
	return s.channel.Send(ctx, recipient.Subscription, payload)
}
