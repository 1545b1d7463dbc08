package webpush

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	webpushgo "github.com/SherClockHolmes/webpush-go"
	"github.com/goliatone/go-webpush/pkg/adapters"
	"github.com/goliatone/go-webpush/pkg/domain"
	"github.com/goliatone/go-webpush/pkg/interfaces/logger"
)

// recordOverhead is the aes128gcm framing added around a payload: the 16 byte
// auth tag, the 86 byte header (salt, record size, key id) and the delimiter.
const recordOverhead = 16 + 86 + 1

const maxErrorBody = 512

// Adapter signs requests with VAPID and delivers them to browser push services.
type Adapter struct {
	name   string
	base   adapters.BaseAdapter
	cfg    Config
	client *http.Client
}

var _ adapters.DeliveryChannel = (*Adapter)(nil)

// Config holds VAPID identity and transport knobs.
type Config struct {
	Subject           string
	VAPIDPublicKey    string
	VAPIDPrivateKey   string
	PayloadEncryption bool
	AutomaticPadding  bool
	TTL               int
	Urgency           string
	Timeout           time.Duration
	Proxy             string
	DryRun            bool
}

type Option func(*Adapter)

// WithName overrides the adapter name.
func WithName(name string) Option {
	return func(a *Adapter) {
		if strings.TrimSpace(name) != "" {
			a.name = name
		}
	}
}

// WithConfig sets the adapter configuration.
func WithConfig(cfg Config) Option {
	return func(a *Adapter) {
		a.cfg = cfg
	}
}

// WithClient injects a custom HTTP client. Proxy and Timeout are then ignored.
func WithClient(c *http.Client) Option {
	return func(a *Adapter) {
		if c != nil {
			a.client = c
		}
	}
}

// New constructs the Web Push adapter.
func New(l logger.Logger, opts ...Option) (*Adapter, error) {
	adapter := &Adapter{
		name: "webpush",
		base: adapters.NewBaseAdapter(l),
		cfg: Config{
			PayloadEncryption: true,
			AutomaticPadding:  true,
			TTL:               24 * 60 * 60,
			Urgency:           string(webpushgo.UrgencyNormal),
			Timeout:           30 * time.Second,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(adapter)
		}
	}
	if adapter.client == nil {
		client, err := newHTTPClient(adapter.cfg)
		if err != nil {
			return nil, err
		}
		adapter.client = client
	}
	return adapter, nil
}

func newHTTPClient(cfg Config) (*http.Client, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	if strings.TrimSpace(cfg.Proxy) == "" {
		return client, nil
	}
	proxyURL, err := url.Parse(cfg.Proxy)
	if err != nil {
		return nil, fmt.Errorf("webpush: invalid proxy url: %w", err)
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyURL(proxyURL)
	client.Transport = transport
	return client, nil
}

func (a *Adapter) Name() string { return a.name }

// PublicKey returns the VAPID application server key handed to browsers.
func (a *Adapter) PublicKey() string { return a.cfg.VAPIDPublicKey }

// Send pushes payload to sub. Any non-2xx response is a *domain.DeliveryError.
func (a *Adapter) Send(ctx context.Context, sub domain.PushSubscription, payload domain.NotificationPayload) error {
	if a.cfg.DryRun {
		a.base.Logger().Info("[webpush:dry-run] send skipped",
			logger.F("endpoint", adapters.MaskEndpoint(sub.Endpoint)),
			logger.F("title", payload.Title),
		)
		return nil
	}
	if !sub.Complete() {
		return &domain.DeliveryError{Endpoint: sub.Endpoint, Err: errors.New("subscription is incomplete")}
	}

	resp, err := a.deliver(ctx, sub, payload)
	if err != nil {
		derr := &domain.DeliveryError{Endpoint: sub.Endpoint, Err: err}
		a.base.LogFailure(a.name, sub.Endpoint, derr)
		return derr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		derr := &domain.DeliveryError{
			Endpoint:   sub.Endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
		a.base.LogFailure(a.name, sub.Endpoint, derr)
		return derr
	}
	io.Copy(io.Discard, resp.Body)
	a.base.LogSuccess(a.name, sub.Endpoint, resp.StatusCode)
	return nil
}

// deliver sends the encrypted JSON payload, or a bodiless push when payload
// encryption is disabled. Push services reject unencrypted data.
func (a *Adapter) deliver(ctx context.Context, sub domain.PushSubscription, payload domain.NotificationPayload) (*http.Response, error) {
	if !a.cfg.PayloadEncryption {
		return a.sendBodiless(ctx, sub.Endpoint)
	}
	message, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("webpush: encode payload: %w", err)
	}
	return webpushgo.SendNotificationWithContext(ctx, message, &webpushgo.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpushgo.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, a.options(len(message)))
}

func (a *Adapter) options(messageLen int) *webpushgo.Options {
	opts := &webpushgo.Options{
		HTTPClient:      a.client,
		Subscriber:      librarySubscriber(a.cfg.Subject),
		TTL:             a.cfg.TTL,
		Urgency:         webpushgo.Urgency(a.cfg.Urgency),
		VAPIDPublicKey:  a.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: a.cfg.VAPIDPrivateKey,
	}
	if !a.cfg.AutomaticPadding {
		opts.RecordSize = uint32(messageLen + recordOverhead)
	}
	return opts
}

// GenerateVAPIDKeys returns a new base64url encoded key pair.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpushgo.GenerateVAPIDKeys()
	if err != nil {
		return "", "", fmt.Errorf("webpush: generate vapid keys: %w", err)
	}
	return publicKey, privateKey, nil
}
