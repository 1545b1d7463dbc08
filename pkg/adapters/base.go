package adapters

import (
	"github.com/goliatone/go-webpush/pkg/interfaces/logger"
	masker "github.com/goliatone/go-masker"
)

// BaseAdapter provides shared helpers for delivery channels.
type BaseAdapter struct {
	logger logger.Logger
}

func NewBaseAdapter(l logger.Logger) BaseAdapter {
	if l == nil {
		l = &logger.Nop{}
	}
	return BaseAdapter{logger: l}
}

func (b BaseAdapter) LogSuccess(name, endpoint string, status int) {
	b.Logger().Debug("push delivered",
		logger.F("adapter", name),
		logger.F("endpoint", MaskEndpoint(endpoint)),
		logger.F("status", status),
	)
}

func (b BaseAdapter) LogFailure(name, endpoint string, err error) {
	b.Logger().Warn("push delivery failed",
		logger.F("adapter", name),
		logger.F("endpoint", MaskEndpoint(endpoint)),
		logger.Err(err),
	)
}

// Logger exposes the adapter logger for structured diagnostics.
func (b BaseAdapter) Logger() logger.Logger {
	if b.logger == nil {
		return &logger.Nop{}
	}
	return b.logger
}

// MaskEndpoint hides the per-device token carried in push endpoint URLs.
func MaskEndpoint(endpoint string) string {
	if endpoint == "" {
		return ""
	}
	if masked, err := masker.Default.String("preserveEnds(12,4)", endpoint); err == nil {
		return masked
	}
	runes := []rune(endpoint)
	if len(runes) <= 16 {
		return "****"
	}
	return string(runes[:12]) + "****" + string(runes[len(runes)-4:])
}
