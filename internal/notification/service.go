package notification

import (
	"context"
	"log"
	"time"
)

const defaultSendTimeout = 10 * time.Second

// Service fans alerts out to every configured backend. Delivery is
// fire-and-forget: failures are logged and swallowed, and slow channels
// never block the trading path. Send contexts are detached from the
// caller's so an aborted tick still delivers its alert.
type Service struct {
	backends []Notifier
	timeout  time.Duration
}

// NewService builds a fan-out service. With no backends it falls back to
// the log notifier so alerts are never silently dropped.
func NewService(backends ...Notifier) *Service {
	if len(backends) == 0 {
		backends = []Notifier{NewLogNotifier()}
	}
	return &Service{backends: backends, timeout: defaultSendTimeout}
}

// Notify sends an informational trading alert. Never returns an error.
func (s *Service) Notify(ctx context.Context, text string) {
	s.Dispatch(Alert{Level: AlertInfo, Title: "Trading Agent", Message: text})
}

// Warn sends a warning-level alert (connection trouble, skipped ticks).
func (s *Service) Warn(text string) {
	s.Dispatch(Alert{Level: AlertWarning, Title: "Trading Agent", Message: text})
}

// Critical sends a critical alert (order failures, fatal conditions).
func (s *Service) Critical(text string) {
	s.Dispatch(Alert{Level: AlertCritical, Title: "Trading Agent", Message: text})
}

// Dispatch sends one alert to all backends in the background.
func (s *Service) Dispatch(alert Alert) {
	for _, backend := range s.backends {
		go func(n Notifier) {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			if err := n.Send(ctx, alert); err != nil {
				log.Printf("[notify] delivery failed: %v", err)
			}
		}(backend)
	}
}
