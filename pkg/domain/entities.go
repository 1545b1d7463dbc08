package domain

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	// DefaultSubscriptionTable is the table used for push subscriptions unless configured otherwise.
	DefaultSubscriptionTable = "push_subscriptions"
	// DefaultContentEncoding is the Web Push content coding used by modern browsers.
	DefaultContentEncoding = "aes128gcm"
	// DefaultIcon is the notification icon shipped with the PWA shell.
	DefaultIcon = "/pwa-192x192.png"
	// DefaultURL is opened by the service worker when the notification is clicked.
	DefaultURL = "/"
	// MaxTitleLength bounds notification titles (in runes).
	MaxTitleLength = 255
)

// RecordMeta captures identifiers and audit fields shared across entities.
type RecordMeta struct {
	ID        uuid.UUID `bun:",pk,type:uuid" json:"id"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	DeletedAt time.Time `bun:",soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureID assigns a UUID when the struct is about to be persisted.
func (m *RecordMeta) EnsureID() {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
}

// Subscriber is the anonymous identity created for every subscribe call.
type Subscriber struct {
	bun.BaseModel `bun:"table:anonymous_subscribers"`
	RecordMeta
}

// PushSubscription stores the browser issued credential for a subscriber.
// The table name can be overridden at the repository level.
type PushSubscription struct {
	bun.BaseModel `bun:"table:push_subscriptions,alias:ps"`

	ID              uuid.UUID `bun:",pk,type:uuid" json:"id"`
	SubscriberID    uuid.UUID `bun:",unique,notnull,type:uuid" json:"subscriber_id"`
	Endpoint        string    `bun:",unique,notnull" json:"endpoint"`
	P256dh          string    `bun:"p256dh,notnull" json:"p256dh"`
	Auth            string    `bun:",notnull" json:"auth"`
	ContentEncoding string    `bun:",nullzero" json:"content_encoding,omitempty"`
	CreatedAt       time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// EnsureID assigns a UUID when the subscription is about to be persisted.
func (s *PushSubscription) EnsureID() {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
}

// Complete reports whether every credential field is present.
func (s PushSubscription) Complete() bool {
	return strings.TrimSpace(s.Endpoint) != "" &&
		strings.TrimSpace(s.P256dh) != "" &&
		strings.TrimSpace(s.Auth) != ""
}

// Validate checks the credential triple. Partial records are never usable.
func (s PushSubscription) Validate() error {
	verr := &ValidationError{}
	endpoint := strings.TrimSpace(s.Endpoint)
	if endpoint == "" {
		verr.Add("endpoint", "endpoint is required")
	} else if !isHTTPURL(endpoint) {
		verr.Add("endpoint", "endpoint must be an absolute http(s) URL")
	}
	if strings.TrimSpace(s.P256dh) == "" {
		verr.Add("keys.p256dh", "p256dh key is required")
	}
	if strings.TrimSpace(s.Auth) == "" {
		verr.Add("keys.auth", "auth secret is required")
	}
	return verr.OrNil()
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return false
	}
	return u.Host != ""
}

// Recipient pairs a subscriber with its usable subscription.
type Recipient struct {
	Subscriber   Subscriber
	Subscription PushSubscription
}

// Action is a notification button rendered by the service worker.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// DefaultActions mirrors the action shipped with the demo notification.
func DefaultActions() []Action {
	return []Action{{Action: "explore", Title: "Explorar"}}
}

// NotificationPayload is the ephemeral message pushed to every subscription.
type NotificationPayload struct {
	Title   string
	Body    string
	URL     string
	Icon    string
	Tag     string
	Actions []Action
}

// NewNotificationPayload builds a payload with the fixed icon, default url and actions.
func NewNotificationPayload(title, body string) NotificationPayload {
	return NotificationPayload{
		Title:   title,
		Body:    body,
		URL:     DefaultURL,
		Icon:    DefaultIcon,
		Actions: DefaultActions(),
	}
}

// Validate enforces the service worker contract: title and body are mandatory.
func (p NotificationPayload) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(p.Title) == "" {
		verr.Add("title", "title is required")
	} else if utf8.RuneCountInString(p.Title) > MaxTitleLength {
		verr.Add("title", "title must not exceed 255 characters")
	}
	if strings.TrimSpace(p.Body) == "" {
		verr.Add("body", "body is required")
	}
	return verr.OrNil()
}

type payloadData struct {
	URL string `json:"url"`
}

type payloadJSON struct {
	Title   string      `json:"title"`
	Body    string      `json:"body"`
	URL     string      `json:"url"`
	Icon    string      `json:"icon,omitempty"`
	Tag     string      `json:"tag,omitempty"`
	Actions []Action    `json:"actions,omitempty"`
	Data    payloadData `json:"data"`
}

// MarshalJSON renders the payload consumed by the service worker.
// url is emitted both at the top level and under data.
func (p NotificationPayload) MarshalJSON() ([]byte, error) {
	target := p.URL
	if strings.TrimSpace(target) == "" {
		target = DefaultURL
	}
	return json.Marshal(payloadJSON{
		Title:   p.Title,
		Body:    p.Body,
		URL:     target,
		Icon:    p.Icon,
		Tag:     p.Tag,
		Actions: p.Actions,
		Data:    payloadData{URL: target},
	})
}

// UnmarshalJSON accepts the service worker shape, defaulting url to "/".
func (p *NotificationPayload) UnmarshalJSON(data []byte) error {
	var raw payloadJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	target := raw.URL
	if target == "" {
		target = raw.Data.URL
	}
	if target == "" {
		target = DefaultURL
	}
	*p = NotificationPayload{
		Title:   raw.Title,
		Body:    raw.Body,
		URL:     target,
		Icon:    raw.Icon,
		Tag:     raw.Tag,
		Actions: raw.Actions,
	}
	return nil
}

// DeliveryReport summarizes a broadcast fan-out.
type DeliveryReport struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Pruned    int `json:"pruned,omitempty"`
}
