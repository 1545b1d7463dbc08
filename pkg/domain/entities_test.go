package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestPushSubscriptionValidate(t *testing.T) {
	valid := PushSubscription{Endpoint: "https://fcm.googleapis.com/fcm/send/abc", P256dh: "key", Auth: "secret"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid subscription, got %v", err)
	}

	err := PushSubscription{Endpoint: "not a url", P256dh: " "}.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"endpoint", "keys.p256dh", "keys.auth"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Fatalf("expected %s to be reported, got %v", field, verr.Fields)
		}
	}
}

func TestPushSubscriptionComplete(t *testing.T) {
	if (PushSubscription{Endpoint: "https://x", P256dh: "k", Auth: ""}).Complete() {
		t.Fatalf("missing auth must not be complete")
	}
	if !(PushSubscription{Endpoint: "https://x", P256dh: "k", Auth: "a"}).Complete() {
		t.Fatalf("expected complete subscription")
	}
}

func TestNotificationPayloadValidate(t *testing.T) {
	if err := NewNotificationPayload("Hello", "World").Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := NewNotificationPayload(strings.Repeat("á", MaxTitleLength+1), "").Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := verr.Fields["title"]; !ok {
		t.Fatalf("expected title error, got %v", verr.Fields)
	}
	if _, ok := verr.Fields["body"]; !ok {
		t.Fatalf("expected body error, got %v", verr.Fields)
	}

	if err := NewNotificationPayload(strings.Repeat("á", MaxTitleLength), "b").Validate(); err != nil {
		t.Fatalf("title of exactly %d runes must pass, got %v", MaxTitleLength, err)
	}
}

func TestNotificationPayloadJSON(t *testing.T) {
	raw, err := json.Marshal(NotificationPayload{Title: "Hi", Body: "There"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var shape map[string]any
	if err := json.Unmarshal(raw, &shape); err != nil {
		t.Fatalf("unmarshal map: %v", err)
	}
	if shape["title"] != "Hi" || shape["body"] != "There" || shape["url"] != "/" {
		t.Fatalf("unexpected payload %s", raw)
	}
	data, ok := shape["data"].(map[string]any)
	if !ok || data["url"] != "/" {
		t.Fatalf("expected data.url to default to /, got %s", raw)
	}

	var decoded NotificationPayload
	if err := json.Unmarshal([]byte(`{"title":"T","body":"B","data":{"url":"/inbox"}}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.URL != "/inbox" {
		t.Fatalf("expected url from data, got %q", decoded.URL)
	}
}

func TestErrorHelpers(t *testing.T) {
	gone := &DeliveryError{StatusCode: 410}
	if !IsGone(gone) || !IsDeliveryError(gone) {
		t.Fatalf("410 must be reported as gone")
	}
	if IsGone(&DeliveryError{StatusCode: 500}) {
		t.Fatalf("500 must not be reported as gone")
	}

	cause := errors.New("disk full")
	wrapped := NewStorageError("save", cause)
	if !IsStorageError(wrapped) || !errors.Is(wrapped, cause) {
		t.Fatalf("expected storage error wrapping cause, got %v", wrapped)
	}
	if again := NewStorageError("outer", wrapped); again != wrapped {
		t.Fatalf("storage errors must not be double wrapped")
	}
	if NewStorageError("noop", nil) != nil {
		t.Fatalf("nil error must stay nil")
	}
	if (&ValidationError{}).OrNil() != nil {
		t.Fatalf("empty validation error must collapse to nil")
	}
}
