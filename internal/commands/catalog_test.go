package commands

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-webpush/pkg/domain"
	"github.com/goliatone/go-webpush/pkg/interfaces/queue"
	"github.com/goliatone/go-webpush/pkg/subscriptions"
	"github.com/google/uuid"
)

type stubSubscriptions struct {
	id    uuid.UUID
	err   error
	input subscriptions.SubscribeInput
}

func (s *stubSubscriptions) Subscribe(_ context.Context, input subscriptions.SubscribeInput) (uuid.UUID, error) {
	s.input = input
	return s.id, s.err
}

type broadcastCall struct{ title, body string }

type stubBroadcasts struct {
	calls  []broadcastCall
	demos  int
	report domain.DeliveryReport
}

func (s *stubBroadcasts) Broadcast(_ context.Context, title, body string) (domain.DeliveryReport, error) {
	s.calls = append(s.calls, broadcastCall{title, body})
	return s.report, nil
}

func (s *stubBroadcasts) Demo(context.Context) (domain.DeliveryReport, error) {
	s.demos++
	return s.report, nil
}

type recordingQueue struct {
	jobs []queue.Job
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job queue.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func newCatalog(t *testing.T, subs *stubSubscriptions, bc *stubBroadcasts, q queue.Queue) *Catalog {
	t.Helper()
	cat, err := NewCatalog(Dependencies{Subscriptions: subs, Broadcasts: bc, Queue: q})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return cat
}

func TestNewCatalogRequiresServices(t *testing.T) {
	if _, err := NewCatalog(Dependencies{}); !errors.Is(err, ErrSubscriptionsRequired) {
		t.Fatalf("expected ErrSubscriptionsRequired, got %v", err)
	}
	if _, err := NewCatalog(Dependencies{Subscriptions: &stubSubscriptions{}}); !errors.Is(err, ErrBroadcastsRequired) {
		t.Fatalf("expected ErrBroadcastsRequired, got %v", err)
	}
}

func TestSubscribeCommandReturnsSubscriberID(t *testing.T) {
	subs := &stubSubscriptions{id: uuid.New()}
	cat := newCatalog(t, subs, &stubBroadcasts{}, nil)

	var got uuid.UUID
	req := SubscribeRequest{
		SubscribeInput: subscriptions.SubscribeInput{Endpoint: "https://push.example.com/1"},
		SubscriberID:   &got,
	}
	if err := cat.Subscribe.Execute(context.Background(), req); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if got != subs.id || subs.input.Endpoint != "https://push.example.com/1" {
		t.Fatalf("unexpected subscribe result %s %+v", got, subs.input)
	}
}

func TestSendNotificationValidates(t *testing.T) {
	q := &recordingQueue{}
	cat := newCatalog(t, &stubSubscriptions{}, &stubBroadcasts{}, q)

	err := cat.SendNotification.Execute(context.Background(), SendRequest{Title: strings.Repeat("x", 256), Body: " "})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := verr.Fields["title"]; !ok {
		t.Fatalf("expected title error, got %v", verr.Fields)
	}
	if _, ok := verr.Fields["body"]; !ok {
		t.Fatalf("expected body error, got %v", verr.Fields)
	}
	if len(q.jobs) != 0 {
		t.Fatalf("invalid requests must not be enqueued")
	}
}

func TestSendNotificationEnqueues(t *testing.T) {
	q := &recordingQueue{}
	bc := &stubBroadcasts{}
	cat := newCatalog(t, &stubSubscriptions{}, bc, q)

	if err := cat.SendNotification.Execute(context.Background(), SendRequest{Title: " Hello ", Body: "World"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(q.jobs) != 1 || q.jobs[0].Key != JobBroadcast {
		t.Fatalf("expected one broadcast job, got %+v", q.jobs)
	}
	req, ok := q.jobs[0].Payload.(BroadcastRequest)
	if !ok || req.Title != "Hello" || req.Body != "World" {
		t.Fatalf("unexpected payload %+v", q.jobs[0].Payload)
	}
	if len(bc.calls) != 0 {
		t.Fatalf("queued sends must not broadcast inline")
	}

	if err := BroadcastHandler(bc)(context.Background(), q.jobs[0]); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(bc.calls) != 1 || bc.calls[0] != (broadcastCall{"Hello", "World"}) {
		t.Fatalf("handler must broadcast the queued message, got %+v", bc.calls)
	}
}

func TestSendNotificationInlineWithoutQueue(t *testing.T) {
	bc := &stubBroadcasts{}
	cat := newCatalog(t, &stubSubscriptions{}, bc, nil)
	if err := cat.SendNotification.Execute(context.Background(), SendRequest{Title: "t", Body: "b"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(bc.calls) != 1 {
		t.Fatalf("expected inline broadcast, got %d", len(bc.calls))
	}
}

func TestSendNotificationQueueFailure(t *testing.T) {
	boom := errors.New("full")
	cat := newCatalog(t, &stubSubscriptions{}, &stubBroadcasts{}, &recordingQueue{err: boom})
	if err := cat.SendNotification.Execute(context.Background(), SendRequest{Title: "t", Body: "b"}); !errors.Is(err, boom) {
		t.Fatalf("expected queue error, got %v", err)
	}
}

func TestSendTestNotificationsFillsReport(t *testing.T) {
	bc := &stubBroadcasts{report: domain.DeliveryReport{Attempted: 2, Succeeded: 2}}
	cat := newCatalog(t, &stubSubscriptions{}, bc, nil)

	var report domain.DeliveryReport
	if err := cat.SendTestNotifications.Execute(context.Background(), SendTestNotifications{Report: &report}); err != nil {
		t.Fatalf("send test: %v", err)
	}
	if bc.demos != 1 || report != bc.report {
		t.Fatalf("expected demo report, got %+v", report)
	}
}

func TestScheduledBroadcastUsesDefaults(t *testing.T) {
	q := &recordingQueue{}
	cat := newCatalog(t, &stubSubscriptions{}, &stubBroadcasts{}, q)
	if err := cat.ScheduledBroadcast.Execute(context.Background(), ScheduledBroadcast{}); err != nil {
		t.Fatalf("scheduled: %v", err)
	}
	if len(q.jobs) != 1 || q.jobs[0].Payload != (BroadcastRequest{}) {
		t.Fatalf("expected a blank broadcast job, got %+v", q.jobs)
	}
}

func TestBroadcastHandlerRejectsUnknownPayload(t *testing.T) {
	err := BroadcastHandler(&stubBroadcasts{})(context.Background(), queue.Job{Key: JobBroadcast, Payload: 42})
	if !errors.Is(err, ErrUnexpectedPayload) {
		t.Fatalf("expected ErrUnexpectedPayload, got %v", err)
	}
}
