package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-webpush/internal/dispatcher"
	"github.com/goliatone/go-webpush/pkg/commands"
	"github.com/goliatone/go-webpush/pkg/domain"
)

type subscribeFunc func(context.Context, commands.SubscribeRequest) error

func (f subscribeFunc) Execute(ctx context.Context, msg commands.SubscribeRequest) error {
	return f(ctx, msg)
}

type sendFunc func(context.Context, commands.SendRequest) error

func (f sendFunc) Execute(ctx context.Context, msg commands.SendRequest) error {
	return f(ctx, msg)
}

var (
	_ command.Commander[commands.SubscribeRequest] = subscribeFunc(nil)
	_ command.Commander[commands.SendRequest]      = sendFunc(nil)
)

func newTestServer(t *testing.T, sub subscribeFunc, send sendFunc) *Server {
	t.Helper()
	if sub == nil {
		sub = func(context.Context, commands.SubscribeRequest) error { return nil }
	}
	if send == nil {
		send = func(context.Context, commands.SendRequest) error { return nil }
	}
	srv, err := New(Dependencies{Subscribe: sub, SendNotification: send, PublicKey: "BPublicKey"})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

func do(t *testing.T, srv *Server, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	var body map[string]any
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
	}
	return resp, body
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func TestVAPIDPublicKeyAndHealth(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, body := do(t, srv, httptest.NewRequest(http.MethodGet, "/vapid-public-key", nil))
	if resp.StatusCode != http.StatusOK || body["key"] != "BPublicKey" {
		t.Fatalf("unexpected key response %d %v", resp.StatusCode, body)
	}
	resp, body = do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health response %d %v", resp.StatusCode, body)
	}
}

func TestSubscribeSuccess(t *testing.T) {
	var got commands.SubscribeRequest
	srv := newTestServer(t, func(_ context.Context, msg commands.SubscribeRequest) error {
		got = msg
		return nil
	}, nil)

	resp, body := do(t, srv, jsonRequest(http.MethodPost, "/subscribe",
		`{"endpoint":"https://push.example.com/1","expirationTime":null,"keys":{"p256dh":"BKey","auth":"secret"}}`))
	if resp.StatusCode != http.StatusOK || body["success"] != true {
		t.Fatalf("unexpected response %d %v", resp.StatusCode, body)
	}
	if got.Endpoint != "https://push.example.com/1" || got.Keys.P256dh != "BKey" || got.Keys.Auth != "secret" {
		t.Fatalf("subscription not forwarded: %+v", got)
	}
}

func TestSubscribeAcceptsFormInput(t *testing.T) {
	var got commands.SubscribeRequest
	srv := newTestServer(t, func(_ context.Context, msg commands.SubscribeRequest) error {
		got = msg
		return nil
	}, nil)

	form := url.Values{
		"endpoint":     {"https://push.example.com/form"},
		"keys[p256dh]": {"BKey"},
		"keys[auth]":   {"secret"},
	}
	req := httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, body := do(t, srv, req)
	if resp.StatusCode != http.StatusOK || body["success"] != true {
		t.Fatalf("unexpected response %d %v", resp.StatusCode, body)
	}
	if got.Endpoint != "https://push.example.com/form" || got.Keys.P256dh != "BKey" || got.Keys.Auth != "secret" {
		t.Fatalf("form subscription not forwarded: %+v", got)
	}
}

func TestSubscribeMalformedJSON(t *testing.T) {
	called := false
	srv := newTestServer(t, func(context.Context, commands.SubscribeRequest) error {
		called = true
		return nil
	}, nil)

	resp, body := do(t, srv, jsonRequest(http.MethodPost, "/subscribe", `{"endpoint":`))
	if resp.StatusCode != http.StatusBadRequest || body["success"] != false || body["error"] != "invalid request" {
		t.Fatalf("unexpected response %d %v", resp.StatusCode, body)
	}
	if called {
		t.Fatalf("command must not run for malformed input")
	}
}

func TestSubscribeValidationAndStorageErrors(t *testing.T) {
	srv := newTestServer(t, func(context.Context, commands.SubscribeRequest) error {
		return domain.NewValidationError("keys.auth", "auth secret is required")
	}, nil)
	resp, body := do(t, srv, jsonRequest(http.MethodPost, "/subscribe", `{"endpoint":"https://x"}`))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	fields, _ := body["errors"].(map[string]any)
	if fields["keys.auth"] == nil {
		t.Fatalf("expected field errors, got %v", body)
	}

	srv = newTestServer(t, func(context.Context, commands.SubscribeRequest) error {
		return domain.NewStorageError("subscribe", errors.New("disk full"))
	}, nil)
	resp, body = do(t, srv, jsonRequest(http.MethodPost, "/subscribe", `{"endpoint":"https://x"}`))
	if resp.StatusCode != http.StatusInternalServerError || body["success"] != false {
		t.Fatalf("expected 500, got %d %v", resp.StatusCode, body)
	}
}

func TestSendNotificationAccepted(t *testing.T) {
	var got commands.SendRequest
	srv := newTestServer(t, nil, func(_ context.Context, msg commands.SendRequest) error {
		got = msg
		return nil
	})

	resp, body := do(t, srv, jsonRequest(http.MethodPost, "/notifications/send", `{"title":"Olá","body":"Mundo"}`))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if body["success"] != true || body["message"] != SentMessage {
		t.Fatalf("unexpected body %v", body)
	}
	if got.Title != "Olá" || got.Body != "Mundo" {
		t.Fatalf("request not forwarded: %+v", got)
	}
}

func TestSendNotificationErrors(t *testing.T) {
	srv := newTestServer(t, nil, func(context.Context, commands.SendRequest) error {
		return domain.NewValidationError("title", "title is required")
	})
	resp, body := do(t, srv, jsonRequest(http.MethodPost, "/notifications/send", `{"body":"x"}`))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if fields, _ := body["errors"].(map[string]any); fields["title"] == nil {
		t.Fatalf("expected title error, got %v", body)
	}

	srv = newTestServer(t, nil, func(context.Context, commands.SendRequest) error {
		return dispatcher.ErrQueueFull
	})
	resp, _ = do(t, srv, jsonRequest(http.MethodPost, "/notifications/send", `{"title":"t","body":"b"}`))
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for a full queue, got %d", resp.StatusCode)
	}

	resp, body = do(t, srv, jsonRequest(http.MethodPost, "/notifications/send", `{"title":`))
	if resp.StatusCode != http.StatusBadRequest || body["error"] != "invalid request" {
		t.Fatalf("expected 400, got %d %v", resp.StatusCode, body)
	}
}

func TestSendNotificationFormRedirectsBack(t *testing.T) {
	srv := newTestServer(t, nil, func(_ context.Context, msg commands.SendRequest) error {
		if msg.Title == "" {
			return domain.NewValidationError("title", "title is required")
		}
		return nil
	})

	form := url.Values{"title": {"Hello"}, "body": {"World"}}
	req := httptest.NewRequest(http.MethodPost, "/notifications/send", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	req.Header.Set(fiber.HeaderReferer, "http://localhost:8480/admin?tab=push")
	resp, _ := do(t, srv, req)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
	location, err := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if location.Path != "/admin" || location.Query().Get("tab") != "push" || location.Query().Get("success") != SentMessage {
		t.Fatalf("unexpected redirect %s", location)
	}

	form = url.Values{"body": {"World"}}
	req = httptest.NewRequest(http.MethodPost, "/notifications/send", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	req.Header.Set(fiber.HeaderReferer, "http://localhost:8480/admin")
	resp, _ = do(t, srv, req)
	location, _ = url.Parse(resp.Header.Get(fiber.HeaderLocation))
	if resp.StatusCode != http.StatusSeeOther || location.Query().Get("error") != "title is required" {
		t.Fatalf("expected error redirect, got %d %s", resp.StatusCode, location)
	}
}

func TestNewRequiresCommands(t *testing.T) {
	if _, err := New(Dependencies{}); !errors.Is(err, ErrSubscribeRequired) {
		t.Fatalf("expected ErrSubscribeRequired, got %v", err)
	}
}
